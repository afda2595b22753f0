package usecase

import (
	"context"
	"fmt"

	"github.com/dreschagin/screenshot-mailer/internal/application/port"
	"github.com/dreschagin/screenshot-mailer/internal/domain/model"
	"github.com/dreschagin/screenshot-mailer/pkg/logger"
)

const attemptListCachePrefix = "attempts:list:"

// ListScreenshotAttemptsUseCase returns persisted attempts, newest first.
type ListScreenshotAttemptsUseCase struct {
	records port.RecordStore
	cache   port.Cache
	logger  *logger.Logger
}

func NewListScreenshotAttemptsUseCase(
	records port.RecordStore,
	cache port.Cache,
	log *logger.Logger,
) *ListScreenshotAttemptsUseCase {
	return &ListScreenshotAttemptsUseCase{
		records: records,
		cache:   cache,
		logger:  log,
	}
}

func (uc *ListScreenshotAttemptsUseCase) Execute(
	ctx context.Context,
	query port.AttemptQuery,
) ([]model.PersistedAttempt, error) {
	if uc.cache == nil {
		return uc.listFromStore(ctx, query)
	}

	cacheKey := attemptListCacheKey(query)

	var cached []model.PersistedAttempt
	if err := uc.cache.Get(ctx, cacheKey, &cached); err == nil {
		uc.logger.Debug("Cache hit for attempt listing", "key", cacheKey)
		return cached, nil
	}

	attempts, err := uc.listFromStore(ctx, query)
	if err != nil {
		return nil, err
	}

	// Cache asynchronously so the response is not blocked on Redis.
	go func() {
		if err := uc.cache.Set(context.Background(), cacheKey, attempts); err != nil {
			uc.logger.Warn("Failed to cache attempt listing", "error", err.Error())
		}
	}()

	return attempts, nil
}

func (uc *ListScreenshotAttemptsUseCase) listFromStore(
	ctx context.Context,
	query port.AttemptQuery,
) ([]model.PersistedAttempt, error) {
	attempts, err := uc.records.List(ctx, query)
	if err != nil {
		uc.logger.Error("Failed to list screenshot attempts", err)
		return nil, fmt.Errorf("failed to list screenshot attempts: %w", err)
	}
	if attempts == nil {
		attempts = []model.PersistedAttempt{}
	}
	return attempts, nil
}

func attemptListCacheKey(query port.AttemptQuery) string {
	return fmt.Sprintf("%s%s:%s:%s:%d:%d:%d:%d",
		attemptListCachePrefix,
		query.Username,
		query.Recipient,
		query.Status,
		query.From.Unix(),
		query.To.Unix(),
		query.Limit,
		query.Offset,
	)
}
