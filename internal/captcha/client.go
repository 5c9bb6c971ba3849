// Package captcha verifies hCaptcha tokens submitted with write requests.
//
// Client talks to the siteverify endpoint over HTTPS using a form-encoded
// POST and decodes the JSON answer. Disabled accepts every token and exists
// for local development and tests.
package captcha

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope of siteverify spans.
const tracerName = "github.com/tbourn/go-guestbook-backend/internal/captcha"

// DefaultVerifyURL is the public hCaptcha siteverify endpoint.
const DefaultVerifyURL = "https://api.hcaptcha.com/siteverify"

// maxResponseBytes caps how much of the siteverify answer is read.
const maxResponseBytes = 64 << 10

// Verifier checks a captcha token. Implementations return nil when the token
// is accepted and a *Error otherwise.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Options configures a Client.
type Options struct {
	Secret    string        // HCAPTCHA_SECRET
	Sitekey   string        // HCAPTCHA_SITEKEY (optional; enables sitekey check)
	VerifyURL string        // defaults to DefaultVerifyURL
	Timeout   time.Duration // per verification; defaults to 5s
	// HTTPClient overrides the transport (tests, proxies).
	HTTPClient *http.Client
}

// Client verifies tokens against the hCaptcha siteverify API.
// It is safe for concurrent use.
type Client struct {
	secret    string
	sitekey   string
	verifyURL string
	timeout   time.Duration
	hc        *http.Client
}

// NewClient builds a Client from opts, filling defaults.
func NewClient(opts Options) *Client {
	u := strings.TrimSpace(opts.VerifyURL)
	if u == "" {
		u = DefaultVerifyURL
	}
	to := opts.Timeout
	if to <= 0 {
		to = 5 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		secret:    opts.Secret,
		sitekey:   opts.Sitekey,
		verifyURL: u,
		timeout:   to,
		hc:        hc,
	}
}

// siteverifyResponse is the subset of the siteverify document we read.
type siteverifyResponse struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
}

// Verify checks token with the siteverify endpoint. remoteIP is forwarded
// when non-empty.
//
// All failures, including transport errors and malformed answers, are
// reported as *Error so callers have a single type to convert. Each call is
// traced as a client span; rejections set the captcha.reason attribute and
// only transport failures mark the span as errored.
func (c *Client) Verify(ctx context.Context, token, remoteIP string) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "hcaptcha.siteverify",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	err := c.verify(ctx, token, remoteIP)
	if ce, ok := err.(*Error); ok {
		span.SetAttributes(attribute.String("captcha.reason", string(ce.Reason())))
		if r := ce.Reason(); r == ReasonUnreachable || r == ReasonBadResponse {
			span.RecordError(ce.Unwrap())
			span.SetStatus(codes.Error, ce.Error())
		}
	}
	return err
}

func (c *Client) verify(ctx context.Context, token, remoteIP string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return NewError(ReasonMissingInput)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}
	if c.sitekey != "" {
		form.Set("sitekey", c.sitekey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return wrapError(ReasonBadRequest, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return wrapError(ReasonUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return wrapError(ReasonUnreachable, err)
	}

	var out siteverifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return wrapError(ReasonBadResponse, fmt.Errorf("status %d: %w", resp.StatusCode, err))
	}
	if out.Success {
		return nil
	}
	if len(out.ErrorCodes) == 0 && resp.StatusCode >= http.StatusInternalServerError {
		return wrapError(ReasonUnreachable, fmt.Errorf("status %d", resp.StatusCode))
	}

	reasons := make([]Reason, 0, len(out.ErrorCodes))
	for _, code := range out.ErrorCodes {
		if code = strings.TrimSpace(code); code != "" {
			reasons = append(reasons, Reason(code))
		}
	}
	return NewError(reasons...)
}

// Disabled is a Verifier that accepts every token. Use only when captcha is
// switched off by configuration.
type Disabled struct{}

// Verify always succeeds.
func (Disabled) Verify(context.Context, string, string) error { return nil }

// Func adapts a function to the Verifier interface.
type Func func(ctx context.Context, token, remoteIP string) error

// Verify calls f.
func (f Func) Verify(ctx context.Context, token, remoteIP string) error {
	return f(ctx, token, remoteIP)
}
