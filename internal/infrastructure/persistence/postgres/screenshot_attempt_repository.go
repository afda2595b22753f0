package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/dreschagin/screenshot-mailer/internal/application/port"
	"github.com/dreschagin/screenshot-mailer/internal/domain/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ScreenshotAttemptRepository persists screenshot attempts in PostgreSQL.
type ScreenshotAttemptRepository struct {
	db *sql.DB
}

func NewScreenshotAttemptRepository(db *sql.DB) *ScreenshotAttemptRepository {
	return &ScreenshotAttemptRepository{db: db}
}

// EnsureSchema creates the attempts table when it does not exist yet.
func (r *ScreenshotAttemptRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS screenshot_attempts (
			id            UUID PRIMARY KEY,
			username      TEXT        NOT NULL,
			recipient     TEXT        NOT NULL,
			file_name     TEXT        NOT NULL,
			file_path     TEXT        NOT NULL,
			file_size     BIGINT      NOT NULL,
			sent_at       TIMESTAMPTZ NOT NULL,
			status        TEXT        NOT NULL,
			error_message TEXT        NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_screenshot_attempts_username
			ON screenshot_attempts (username, sent_at DESC);
		CREATE INDEX IF NOT EXISTS idx_screenshot_attempts_sent_at
			ON screenshot_attempts (sent_at DESC);
	`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create screenshot_attempts schema: %w", err)
	}
	return nil
}

// Save inserts one attempt, assigning an ID when none is set.
func (r *ScreenshotAttemptRepository) Save(ctx context.Context, attempt model.PersistedAttempt) (model.PersistedAttempt, error) {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	if attempt.SentAt.IsZero() {
		attempt.SentAt = time.Now().UTC()
	}

	query := `
		INSERT INTO screenshot_attempts (id, username, recipient, file_name, file_path, file_size, sent_at, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		attempt.ID,
		attempt.Username,
		attempt.Recipient,
		attempt.FileName,
		attempt.FilePath,
		attempt.FileSizeBytes,
		attempt.SentAt.UTC(),
		string(attempt.Status),
		attempt.ErrorMessage,
	)
	if err != nil {
		return model.PersistedAttempt{}, fmt.Errorf("failed to insert screenshot attempt: %w", err)
	}

	return attempt, nil
}

// List returns attempts matching the query, newest first.
func (r *ScreenshotAttemptRepository) List(ctx context.Context, query port.AttemptQuery) ([]model.PersistedAttempt, error) {
	var (
		conditions []string
		args       []any
	)

	addCondition := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if username := strings.TrimSpace(query.Username); username != "" {
		addCondition("username = $%d", username)
	}
	if recipient := strings.TrimSpace(query.Recipient); recipient != "" {
		addCondition("recipient = $%d", recipient)
	}
	if query.Status != "" {
		addCondition("status = $%d", string(query.Status))
	}
	if !query.From.IsZero() {
		addCondition("sent_at >= $%d", query.From.UTC())
	}
	if !query.To.IsZero() {
		addCondition("sent_at <= $%d", query.To.UTC())
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	sqlQuery := `
		SELECT id, username, recipient, file_name, file_path, file_size, sent_at, status, error_message
		FROM screenshot_attempts
	`
	if len(conditions) > 0 {
		sqlQuery += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit)
	sqlQuery += fmt.Sprintf(" ORDER BY sent_at DESC LIMIT $%d", len(args))
	args = append(args, offset)
	sqlQuery += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query screenshot attempts: %w", err)
	}
	defer rows.Close()

	return scanAttempts(rows)
}

func scanAttempts(rows *sql.Rows) ([]model.PersistedAttempt, error) {
	var attempts []model.PersistedAttempt

	for rows.Next() {
		var (
			attempt model.PersistedAttempt
			status  string
		)
		err := rows.Scan(
			&attempt.ID,
			&attempt.Username,
			&attempt.Recipient,
			&attempt.FileName,
			&attempt.FilePath,
			&attempt.FileSizeBytes,
			&attempt.SentAt,
			&status,
			&attempt.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan screenshot attempt row: %w", err)
		}
		attempt.Status = model.Status(status)
		attempt.SentAt = attempt.SentAt.UTC()
		attempts = append(attempts, attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return attempts, nil
}
