package port

import (
	"context"
	"time"

	"github.com/dreschagin/screenshot-mailer/internal/domain/model"
)

// AttemptQuery filters and pages persisted attempts. Zero values mean
// "no filter".
type AttemptQuery struct {
	Username  string
	Recipient string
	Status    model.Status
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// RecordStore persists screenshot attempts.
type RecordStore interface {
	Save(ctx context.Context, attempt model.PersistedAttempt) (model.PersistedAttempt, error)
	List(ctx context.Context, query AttemptQuery) ([]model.PersistedAttempt, error)
}
