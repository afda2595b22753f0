package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dreschagin/screenshot-mailer/internal/application/port"
	"github.com/dreschagin/screenshot-mailer/pkg/fsutil"
	"github.com/dreschagin/screenshot-mailer/pkg/logger"
)

// authChallengeSubdir keeps challenge screenshots out of the profile capture
// directories.
const authChallengeSubdir = "_auth"

type MailChallengeRelayConfig struct {
	ScreenshotDir string
	// Recipient is the account owner who can approve the sign-in.
	Recipient string
}

// MailChallengeRelay delivers a device-approval challenge to the account
// owner: the challenge screenshot is written to disk and emailed with the
// approval digit in the subject line.
type MailChallengeRelay struct {
	mailer port.Mailer
	config MailChallengeRelayConfig
	logger *logger.Logger

	now func() time.Time
}

func NewMailChallengeRelay(mailer port.Mailer, config MailChallengeRelayConfig, log *logger.Logger) *MailChallengeRelay {
	return &MailChallengeRelay{
		mailer: mailer,
		config: config,
		logger: log,
		now:    time.Now,
	}
}

func (r *MailChallengeRelay) Relay(ctx context.Context, challenge port.ApprovalChallenge) error {
	dir, err := fsutil.EnsureDailyDir(filepath.Join(r.config.ScreenshotDir, authChallengeSubdir), r.now())
	if err != nil {
		return fmt.Errorf("failed to prepare challenge directory: %w", err)
	}

	path := filepath.Join(dir, "challenge_"+uuid.New().String()+".png")
	if err := os.WriteFile(path, challenge.Screenshot, 0o644); err != nil {
		return fmt.Errorf("failed to write challenge screenshot: %w", err)
	}

	subject := "GitHub sign-in approval required"
	body := "A sign-in is waiting for device approval. Open GitHub Mobile and approve it."
	if challenge.Digit != "" {
		subject = "GitHub sign-in approval required: tap " + challenge.Digit
		body = "A sign-in is waiting for device approval. Open GitHub Mobile and tap " +
			challenge.Digit + ". The challenge page is attached."
	}

	if err := r.mailer.Send(ctx, port.Mail{
		To:             r.config.Recipient,
		Subject:        subject,
		Body:           body,
		AttachmentPath: path,
	}); err != nil {
		return fmt.Errorf("failed to email approval challenge: %w", err)
	}

	r.logger.Info("Approval challenge relayed",
		"recipient", r.config.Recipient,
		"digit", challenge.Digit,
		"screenshot", path,
	)
	return nil
}
