// Package domain defines the persistence models of the guestbook. These
// types are mapped with GORM and form the core data layer of the service.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Entry is a single guestbook post. Entries are only created after the
// poster passed a captcha check; they are never edited through the API.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Author: display name chosen by the poster; "Anonymous" when omitted.
//   - Body: the message text, NFC-normalized.
//   - ClientID: opaque poster identity (user header or client IP); not exposed.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker used by moderation.
type Entry struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Author    string         `json:"author"     gorm:"type:varchar(64);not null;default:'Anonymous'"`
	Body      string         `json:"body"       gorm:"type:text;not null"`
	ClientID  string         `json:"-"          gorm:"type:varchar(128);not null;index"`
	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_entries_created"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Entry.
func (Entry) TableName() string { return "entries" }
