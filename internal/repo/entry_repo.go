// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Entry model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
//
// Error semantics:
//   - When an entry is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated. Classification into client-facing
//     errors happens in the services package.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-guestbook-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateEntry inserts a new Entry with a random UUID and a UTC timestamp.
//
// On success, it returns the persisted Entry. On failure, it returns a DB error.
func CreateEntry(ctx context.Context, db *gorm.DB, clientID, author, body string) (*domain.Entry, error) {
	now := time.Now().UTC()
	e := &domain.Entry{
		ID:        uuid.NewString(),
		Author:    author,
		Body:      body,
		ClientID:  clientID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

// GetEntry fetches a single entry by ID. If the record does not exist (or was
// soft-deleted), it returns ErrNotFound.
func GetEntry(ctx context.Context, db *gorm.DB, id string) (*domain.Entry, error) {
	var e domain.Entry
	if err := db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// CountEntries returns the number of visible entries.
func CountEntries(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Entry{}).Count(&total).Error
	return total, err
}

// ListEntriesPage returns a page of entries, newest first. The caller computes
// offset and limit (e.g., (page-1)*pageSize).
func ListEntriesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Entry, error) {
	var out []domain.Entry
	err := db.WithContext(ctx).
		Order("created_at desc").
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
