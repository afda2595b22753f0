package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/screenshot-mailer/internal/application/port"
	"github.com/dreschagin/screenshot-mailer/pkg/logger"
)

func newTestRelay(t *testing.T, mailer *fakeMailer) *MailChallengeRelay {
	t.Helper()
	relay := NewMailChallengeRelay(mailer, MailChallengeRelayConfig{
		ScreenshotDir: t.TempDir(),
		Recipient:     "owner@example.com",
	}, logger.New("error"))
	relay.now = func() time.Time { return time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC) }
	return relay
}

func TestMailChallengeRelay_WithDigit(t *testing.T) {
	mailer := &fakeMailer{}
	relay := newTestRelay(t, mailer)

	err := relay.Relay(context.Background(), port.ApprovalChallenge{
		Digit:      "42",
		Screenshot: []byte("png-challenge"),
	})
	if err != nil {
		t.Fatalf("Relay() error = %v", err)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(mailer.sent))
	}
	mail := mailer.sent[0]
	if mail.To != "owner@example.com" {
		t.Fatalf("recipient = %q", mail.To)
	}
	if !strings.Contains(mail.Subject, "42") {
		t.Fatalf("subject %q must carry the approval digit", mail.Subject)
	}

	wantDir := filepath.Join(relay.config.ScreenshotDir, authChallengeSubdir, "2026", "03", "07")
	if filepath.Dir(mail.AttachmentPath) != wantDir {
		t.Fatalf("attachment %q not under %q", mail.AttachmentPath, wantDir)
	}
	data, err := os.ReadFile(mail.AttachmentPath)
	if err != nil {
		t.Fatalf("reading challenge screenshot: %v", err)
	}
	if string(data) != "png-challenge" {
		t.Fatalf("challenge screenshot content = %q", data)
	}
}

func TestMailChallengeRelay_WithoutDigit(t *testing.T) {
	mailer := &fakeMailer{}
	relay := newTestRelay(t, mailer)

	if err := relay.Relay(context.Background(), port.ApprovalChallenge{Screenshot: []byte("png")}); err != nil {
		t.Fatalf("Relay() error = %v", err)
	}
	if subject := mailer.sent[0].Subject; strings.Contains(subject, "tap") {
		t.Fatalf("subject %q must not reference a digit when none was found", subject)
	}
}

func TestMailChallengeRelay_MailerFailure(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp refused")}
	relay := newTestRelay(t, mailer)

	err := relay.Relay(context.Background(), port.ApprovalChallenge{Digit: "7", Screenshot: []byte("png")})
	if err == nil {
		t.Fatal("expected an error when the mailer fails")
	}
}
