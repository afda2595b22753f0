package automation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dreschagin/screenshot-mailer/internal/application/port"
	"github.com/dreschagin/screenshot-mailer/internal/domain/apperror"
	"github.com/dreschagin/screenshot-mailer/pkg/logger"
)

type fakeProvider struct {
	session *fakeSession
	openErr error
}

func (p *fakeProvider) Open(context.Context, port.SessionOptions) (port.Session, error) {
	if p.openErr != nil {
		return nil, p.openErr
	}
	return p.session, nil
}

func newTestCapturer(provider *fakeProvider) *Capturer {
	clock := newFakeClock()
	automaton := newTestAutomaton(&recordingRelay{}, clock)
	return NewCapturer(provider, automaton, CaptureConfig{
		BaseURL:         "https://github.com",
		PageLoadTimeout: 5 * time.Second,
	}, logger.New("error"))
}

func TestCapturer_Success(t *testing.T) {
	s := newFakeSession()
	capturer := newTestCapturer(&fakeProvider{session: s})

	dest := filepath.Join(t.TempDir(), "2026", "01", "15", "octocat_abc.png")
	got, err := capturer.Capture(context.Background(), "octocat", dest, false)
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if got != dest {
		t.Fatalf("Capture() = %q, want %q", got, dest)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading screenshot: %v", err)
	}
	if string(data) != "png-fullpage" {
		t.Fatalf("screenshot content = %q, want full-page bytes", data)
	}
	if len(s.navigations) != 1 || s.navigations[0] != "https://github.com/octocat" {
		t.Fatalf("unexpected navigations: %v", s.navigations)
	}
	if s.closed != 1 {
		t.Fatalf("session closed %d times, want 1", s.closed)
	}
}

func TestCapturer_OpenFailure(t *testing.T) {
	capturer := newTestCapturer(&fakeProvider{openErr: errors.New("chrome not found")})

	_, err := capturer.Capture(context.Background(), "octocat", filepath.Join(t.TempDir(), "x.png"), false)
	if apperror.KindOf(err) != apperror.KindCaptureDriver {
		t.Fatalf("expected KindCaptureDriver, got %v", err)
	}
}

func TestCapturer_NavigationFailure(t *testing.T) {
	s := newFakeSession()
	s.navErr = errors.New("net::ERR_CONNECTION_RESET")
	capturer := newTestCapturer(&fakeProvider{session: s})

	_, err := capturer.Capture(context.Background(), "octocat", filepath.Join(t.TempDir(), "x.png"), false)
	if apperror.KindOf(err) != apperror.KindCaptureDriver {
		t.Fatalf("expected KindCaptureDriver, got %v", err)
	}
	if s.closed != 1 {
		t.Fatalf("session closed %d times, want 1", s.closed)
	}
}

func TestCapturer_ScreenshotFailure(t *testing.T) {
	s := newFakeSession()
	s.shotErr = errors.New("target crashed")
	capturer := newTestCapturer(&fakeProvider{session: s})

	_, err := capturer.Capture(context.Background(), "octocat", filepath.Join(t.TempDir(), "x.png"), false)
	if apperror.KindOf(err) != apperror.KindCaptureDriver {
		t.Fatalf("expected KindCaptureDriver, got %v", err)
	}
	if s.closed != 1 {
		t.Fatalf("session closed %d times, want 1", s.closed)
	}
}

func TestCapturer_WriteFailure(t *testing.T) {
	s := newFakeSession()
	capturer := newTestCapturer(&fakeProvider{session: s})

	// The destination directory is an existing file, so MkdirAll fails.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := capturer.Capture(context.Background(), "octocat", filepath.Join(blocker, "x.png"), false)
	if apperror.KindOf(err) != apperror.KindCaptureIO {
		t.Fatalf("expected KindCaptureIO, got %v", err)
	}
	if s.closed != 1 {
		t.Fatalf("session closed %d times, want 1", s.closed)
	}
}

func TestCapturer_LoginFailurePropagatesClassified(t *testing.T) {
	s := newFakeSession()
	withLoginForm(s, func() {
		s.elements[flashErrorSelector] = []*fakeElement{{text: "Incorrect username or password."}}
	})
	capturer := newTestCapturer(&fakeProvider{session: s})

	_, err := capturer.Capture(context.Background(), "octocat", filepath.Join(t.TempDir(), "x.png"), true)
	if apperror.KindOf(err) != apperror.KindInvalidCredentials {
		t.Fatalf("expected KindInvalidCredentials, got %v", err)
	}
	if s.closed != 1 {
		t.Fatalf("session closed %d times, want 1", s.closed)
	}
}

func TestCapturer_LoginRunsBeforeNavigation(t *testing.T) {
	s := newFakeSession()
	withLoginForm(s, s.authenticate)
	capturer := newTestCapturer(&fakeProvider{session: s})

	dest := filepath.Join(t.TempDir(), "octocat.png")
	if _, err := capturer.Capture(context.Background(), "octocat", dest, true); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}

	if len(s.navigations) < 2 {
		t.Fatalf("expected login then profile navigation, got %v", s.navigations)
	}
	if s.navigations[0] != "https://github.com/login" {
		t.Fatalf("first navigation = %q, want the login page", s.navigations[0])
	}
	if last := s.navigations[len(s.navigations)-1]; last != "https://github.com/octocat" {
		t.Fatalf("last navigation = %q, want the profile page", last)
	}
}
