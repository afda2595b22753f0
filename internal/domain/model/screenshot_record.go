package model

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Status is the terminal outcome of one screenshot request.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// ScreenshotRequest is the immutable input of one pipeline run.
type ScreenshotRequest struct {
	Username  string
	Recipient string
	WithLogin bool
}

func (r ScreenshotRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return fmt.Errorf("username must not be blank")
	}
	if _, err := mail.ParseAddress(r.Recipient); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}
	return nil
}

// ScreenshotRecord is the domain result of a pipeline run. ImageID and Path
// are only meaningful when Status is SUCCESS.
type ScreenshotRecord struct {
	ImageID       string
	Username      string
	Recipient     string
	FileName      string
	Path          string
	FileSizeBytes int64
	SentAt        time.Time
	Status        Status
}

// PersistedAttempt is the storage-facing superset of ScreenshotRecord.
// ErrorMessage is populated only for FAILED attempts.
type PersistedAttempt struct {
	ID            string
	Username      string
	Recipient     string
	FileName      string
	FilePath      string
	FileSizeBytes int64
	SentAt        time.Time
	Status        Status
	ErrorMessage  string
}

// Record maps a persisted attempt back to the domain result.
func (a PersistedAttempt) Record() ScreenshotRecord {
	return ScreenshotRecord{
		ImageID:       a.ID,
		Username:      a.Username,
		Recipient:     a.Recipient,
		FileName:      a.FileName,
		Path:          a.FilePath,
		FileSizeBytes: a.FileSizeBytes,
		SentAt:        a.SentAt,
		Status:        a.Status,
	}
}
