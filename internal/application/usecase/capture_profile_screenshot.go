package usecase

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/dreschagin/screenshot-mailer/internal/application/port"
	"github.com/dreschagin/screenshot-mailer/internal/domain/apperror"
	"github.com/dreschagin/screenshot-mailer/internal/domain/model"
	"github.com/dreschagin/screenshot-mailer/internal/infrastructure/messaging/nats"
	"github.com/dreschagin/screenshot-mailer/pkg/fsutil"
	"github.com/dreschagin/screenshot-mailer/pkg/logger"
)

// failureSentinel marks file fields on FAILED attempts where no file exists.
const failureSentinel = "N/A"

// ProfileCapturer produces a profile screenshot at destPath.
type ProfileCapturer interface {
	Capture(ctx context.Context, username, destPath string, withLogin bool) (string, error)
}

type CaptureProfileScreenshotConfig struct {
	ScreenshotDir string
	ArchivePrefix string
}

// CaptureProfileScreenshotUseCase runs the full pipeline: capture, email,
// persist. Archive upload, event publishing and cache invalidation are
// best-effort side effects; records and email are not.
type CaptureProfileScreenshotUseCase struct {
	capturer ProfileCapturer
	mailer   port.Mailer
	records  port.RecordStore
	archive  port.ArchiveStorage
	events   port.EventPublisher
	cache    port.Cache
	config   CaptureProfileScreenshotConfig
	logger   *logger.Logger

	now func() time.Time
}

func NewCaptureProfileScreenshotUseCase(
	capturer ProfileCapturer,
	mailer port.Mailer,
	records port.RecordStore,
	archive port.ArchiveStorage,
	events port.EventPublisher,
	cache port.Cache,
	config CaptureProfileScreenshotConfig,
	log *logger.Logger,
) *CaptureProfileScreenshotUseCase {
	return &CaptureProfileScreenshotUseCase{
		capturer: capturer,
		mailer:   mailer,
		records:  records,
		archive:  archive,
		events:   events,
		cache:    cache,
		config:   config,
		logger:   log,
		now:      time.Now,
	}
}

type captureOutcomeEvent struct {
	Username  string    `json:"username"`
	Recipient string    `json:"recipient"`
	Status    string    `json:"status"`
	FileName  string    `json:"file_name,omitempty"`
	Error     string    `json:"error,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

// Execute runs one screenshot request end to end. Exactly one attempt record
// is persisted per call, except when the daily directory cannot be created,
// in which case nothing ran and nothing is recorded.
func (uc *CaptureProfileScreenshotUseCase) Execute(
	ctx context.Context,
	request model.ScreenshotRequest,
) (model.ScreenshotRecord, error) {
	if err := request.Validate(); err != nil {
		return model.ScreenshotRecord{}, err
	}

	dir, err := fsutil.EnsureDailyDir(uc.config.ScreenshotDir, uc.now())
	if err != nil {
		return model.ScreenshotRecord{}, apperror.Wrap(apperror.KindCaptureIO, "failed to prepare screenshot directory", err)
	}

	fileName := fsutil.SuggestPNGName(request.Username)
	destPath := filepath.Join(dir, fileName)

	if _, err := uc.capturer.Capture(ctx, request.Username, destPath, request.WithLogin); err != nil {
		if !apperror.IsClassified(err) {
			err = apperror.Wrap(apperror.KindUnexpectedCapture, "capture failed unexpectedly", err)
		}
		return model.ScreenshotRecord{}, uc.recordFailure(ctx, request, err)
	}

	if err := uc.mailer.Send(ctx, port.Mail{
		To:             request.Recipient,
		Subject:        "GitHub profile screenshot: " + request.Username,
		Body:           "Attached is the latest profile screenshot for " + request.Username + ".",
		AttachmentPath: destPath,
	}); err != nil {
		err = apperror.Wrap(apperror.KindEmailDelivery, "failed to email screenshot", err)
		return model.ScreenshotRecord{}, uc.recordFailure(ctx, request, err)
	}

	attempt := model.PersistedAttempt{
		Username:      request.Username,
		Recipient:     request.Recipient,
		FileName:      fileName,
		FilePath:      destPath,
		FileSizeBytes: fileSize(destPath),
		SentAt:        uc.now().UTC(),
		Status:        model.StatusSuccess,
	}

	saved, err := uc.records.Save(ctx, attempt)
	if err != nil {
		// The screenshot is already delivered; a persistence fault must not
		// turn the request into a failure.
		uc.logger.Error("Failed to persist successful attempt", err,
			"username", request.Username,
		)
		saved = attempt
	}

	uc.afterSuccess(ctx, saved)
	return saved.Record(), nil
}

// recordFailure persists a FAILED attempt and returns the original error.
// Persistence faults are logged and swallowed so the pipeline error wins.
func (uc *CaptureProfileScreenshotUseCase) recordFailure(
	ctx context.Context,
	request model.ScreenshotRequest,
	cause error,
) error {
	attempt := model.PersistedAttempt{
		Username:     request.Username,
		Recipient:    request.Recipient,
		FileName:     failureSentinel,
		FilePath:     failureSentinel,
		SentAt:       uc.now().UTC(),
		Status:       model.StatusFailed,
		ErrorMessage: cause.Error(),
	}

	if _, err := uc.records.Save(ctx, attempt); err != nil {
		uc.logger.Error("Failed to persist failed attempt", err,
			"username", request.Username,
		)
	}

	uc.publishOutcome(ctx, attempt)
	uc.invalidateListings(ctx)
	return cause
}

func (uc *CaptureProfileScreenshotUseCase) afterSuccess(ctx context.Context, attempt model.PersistedAttempt) {
	if uc.archive != nil {
		uc.archiveScreenshot(ctx, attempt)
	}
	uc.publishOutcome(ctx, attempt)
	uc.invalidateListings(ctx)
}

func (uc *CaptureProfileScreenshotUseCase) archiveScreenshot(ctx context.Context, attempt model.PersistedAttempt) {
	data, err := os.ReadFile(attempt.FilePath)
	if err != nil {
		uc.logger.Warn("Failed to read screenshot for archiving", "error", err.Error())
		return
	}

	key := attempt.SentAt.Format("2006/01/02") + "/" + attempt.FileName
	if prefix := uc.config.ArchivePrefix; prefix != "" {
		key = prefix + "/" + key
	}

	url, err := uc.archive.PutObject(ctx, key, "image/png", data)
	if err != nil {
		uc.logger.Warn("Failed to archive screenshot", "error", err.Error(), "key", key)
		return
	}
	uc.logger.Info("Screenshot archived", "key", key, "url", url)
}

func (uc *CaptureProfileScreenshotUseCase) publishOutcome(ctx context.Context, attempt model.PersistedAttempt) {
	if uc.events == nil {
		return
	}

	subject := nats.SubjectCaptureSucceeded
	if attempt.Status == model.StatusFailed {
		subject = nats.SubjectCaptureFailed
	}
	event := captureOutcomeEvent{
		Username:  attempt.Username,
		Recipient: attempt.Recipient,
		Status:    string(attempt.Status),
		SentAt:    attempt.SentAt,
		Error:     attempt.ErrorMessage,
	}
	if attempt.Status == model.StatusSuccess {
		event.FileName = attempt.FileName
	}

	if err := uc.events.PublishEvent(ctx, subject, event); err != nil {
		uc.logger.Warn("Failed to publish capture event", "error", err.Error())
	}
}

func (uc *CaptureProfileScreenshotUseCase) invalidateListings(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.DeletePattern(ctx, attemptListCachePrefix+"*"); err != nil {
		uc.logger.Warn("Failed to invalidate attempt listings cache", "error", err.Error())
	}
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
