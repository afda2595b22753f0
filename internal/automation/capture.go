package automation

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/dreschagin/screenshot-mailer/internal/application/port"
	"github.com/dreschagin/screenshot-mailer/internal/domain/apperror"
	"github.com/dreschagin/screenshot-mailer/pkg/logger"
)

type CaptureConfig struct {
	BaseURL         string
	PageLoadTimeout time.Duration
	Session         port.SessionOptions
}

// Capturer owns the lifetime of one browser session per capture: optional
// login, navigation to the target profile, full-page capture, and guaranteed
// session release on every exit path.
type Capturer struct {
	sessions  port.SessionProvider
	automaton *LoginAutomaton
	cfg       CaptureConfig
	log       *logger.Logger
}

func NewCapturer(sessions port.SessionProvider, automaton *LoginAutomaton, cfg CaptureConfig, log *logger.Logger) *Capturer {
	if cfg.PageLoadTimeout <= 0 {
		cfg.PageLoadTimeout = 30 * time.Second
	}
	return &Capturer{
		sessions:  sessions,
		automaton: automaton,
		cfg:       cfg,
		log:       log,
	}
}

// Capture writes a full-page screenshot of the target's profile to destPath
// and returns destPath.
func (c *Capturer) Capture(ctx context.Context, username, destPath string, withLogin bool) (string, error) {
	session, err := c.sessions.Open(ctx, c.cfg.Session)
	if err != nil {
		return "", apperror.Wrap(apperror.KindCaptureDriver, "failed to open browser session", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			c.log.Warn("Failed to release browser session", "error", err.Error())
		}
	}()

	if withLogin {
		if err := c.automaton.Run(ctx, session); err != nil {
			if apperror.IsClassified(err) {
				return "", err
			}
			return "", apperror.Wrap(apperror.KindCaptureDriver, "browser fault during login", err)
		}
	}

	profileURL := c.cfg.BaseURL + "/" + username
	if err := session.Navigate(ctx, profileURL); err != nil {
		return "", apperror.Wrap(apperror.KindCaptureDriver, "failed to navigate to profile", err)
	}
	if err := session.WaitReady(ctx, c.cfg.PageLoadTimeout); err != nil {
		return "", apperror.Wrap(apperror.KindCaptureDriver, "profile page did not finish loading", err)
	}

	png, err := session.FullPageScreenshot()
	if err != nil {
		return "", apperror.Wrap(apperror.KindCaptureDriver, "failed to capture screenshot", err)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", apperror.Wrap(apperror.KindCaptureIO, "failed to create screenshot directory", err)
	}
	if err := os.WriteFile(destPath, png, 0o644); err != nil {
		return "", apperror.Wrap(apperror.KindCaptureIO, "failed to write screenshot file", err)
	}

	c.log.Info("Captured profile screenshot",
		"username", username,
		"path", destPath,
		"size_bytes", len(png),
	)
	return destPath, nil
}
