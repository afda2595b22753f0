package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/screenshot-mailer/internal/application/port"
	"github.com/dreschagin/screenshot-mailer/internal/application/usecase"
	"github.com/dreschagin/screenshot-mailer/internal/domain/apperror"
	"github.com/dreschagin/screenshot-mailer/internal/domain/model"
	"github.com/dreschagin/screenshot-mailer/pkg/logger"
)

type stubCapturer struct {
	err error
}

func (c *stubCapturer) Capture(_ context.Context, _, destPath string, _ bool) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	if err := os.WriteFile(destPath, []byte("png"), 0o644); err != nil {
		return "", err
	}
	return destPath, nil
}

type stubMailer struct {
	err error
}

func (m *stubMailer) Send(context.Context, port.Mail) error {
	return m.err
}

type stubRecordStore struct {
	saved  []model.PersistedAttempt
	listed []model.PersistedAttempt
}

func (s *stubRecordStore) Save(_ context.Context, attempt model.PersistedAttempt) (model.PersistedAttempt, error) {
	attempt.ID = "id-1"
	s.saved = append(s.saved, attempt)
	return attempt, nil
}

func (s *stubRecordStore) List(context.Context, port.AttemptQuery) ([]model.PersistedAttempt, error) {
	return s.listed, nil
}

func newTestHandler(t *testing.T, capturer *stubCapturer, mailer *stubMailer, store *stubRecordStore) *ScreenshotAPIHandler {
	t.Helper()
	log := logger.New("error")
	captureUC := usecase.NewCaptureProfileScreenshotUseCase(
		capturer, mailer, store, nil, nil, nil,
		usecase.CaptureProfileScreenshotConfig{ScreenshotDir: t.TempDir()},
		log,
	)
	listUC := usecase.NewListScreenshotAttemptsUseCase(store, nil, log)
	return NewScreenshotAPIHandler(captureUC, listUC, log)
}

func postScreenshot(h *ScreenshotAPIHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/screenshots", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleScreenshots(rec, req)
	return rec
}

func TestHandleScreenshots_PostSuccess(t *testing.T) {
	store := &stubRecordStore{}
	h := newTestHandler(t, &stubCapturer{}, &stubMailer{}, store)

	rec := postScreenshot(h, `{"username":"octocat","recipient":"dev@example.com","with_login":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp captureResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != string(model.StatusSuccess) {
		t.Fatalf("response status = %q", resp.Status)
	}
	if !strings.HasPrefix(resp.FileName, "octocat_") || !strings.HasSuffix(resp.FileName, ".png") {
		t.Fatalf("file name = %q", resp.FileName)
	}
	if len(store.saved) != 1 {
		t.Fatalf("saved %d attempts, want 1", len(store.saved))
	}
}

func TestHandleScreenshots_PostValidation(t *testing.T) {
	h := newTestHandler(t, &stubCapturer{}, &stubMailer{}, &stubRecordStore{})

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"username":`},
		{"blank username", `{"username":" ","recipient":"dev@example.com"}`},
		{"bad recipient", `{"username":"octocat","recipient":"nope"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := postScreenshot(h, tt.body); rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandleScreenshots_LoginFailureMapsTo401(t *testing.T) {
	capturer := &stubCapturer{err: apperror.New(apperror.KindInvalidCredentials, "login rejected")}
	h := newTestHandler(t, capturer, &stubMailer{}, &stubRecordStore{})

	rec := postScreenshot(h, `{"username":"octocat","recipient":"dev@example.com"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Kind != string(apperror.KindInvalidCredentials) {
		t.Fatalf("kind = %q", resp.Kind)
	}
}

func TestHandleScreenshots_MailFailureMapsTo503(t *testing.T) {
	h := newTestHandler(t, &stubCapturer{}, &stubMailer{err: errors.New("smtp down")}, &stubRecordStore{})

	rec := postScreenshot(h, `{"username":"octocat","recipient":"dev@example.com"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHandleScreenshots_CaptureFaultMapsTo500(t *testing.T) {
	capturer := &stubCapturer{err: apperror.New(apperror.KindCaptureDriver, "chrome crashed")}
	h := newTestHandler(t, capturer, &stubMailer{}, &stubRecordStore{})

	rec := postScreenshot(h, `{"username":"octocat","recipient":"dev@example.com"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestHandleScreenshots_Get(t *testing.T) {
	store := &stubRecordStore{listed: []model.PersistedAttempt{
		{
			ID:       "a",
			Username: "octocat",
			Status:   model.StatusFailed,
			SentAt:   time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC),

			ErrorMessage: "LOGIN_TIMEOUT: no signal",
		},
	}}
	h := newTestHandler(t, &stubCapturer{}, &stubMailer{}, store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/screenshots?username=octocat&status=failed", nil)
	rec := httptest.NewRecorder()
	h.HandleScreenshots(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Items []attemptResponse `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != "a" {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}
	if resp.Items[0].ErrorMessage == "" {
		t.Fatal("failed attempts must expose their error message")
	}
}

func TestHandleScreenshots_GetBadParams(t *testing.T) {
	h := newTestHandler(t, &stubCapturer{}, &stubMailer{}, &stubRecordStore{})

	for _, target := range []string{
		"/api/v1/screenshots?limit=abc",
		"/api/v1/screenshots?offset=-1",
		"/api/v1/screenshots?status=BOGUS",
		"/api/v1/screenshots?from=yesterday",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		h.HandleScreenshots(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestHandleScreenshots_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, &stubCapturer{}, &stubMailer{}, &stubRecordStore{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/screenshots", nil)
	rec := httptest.NewRecorder()
	h.HandleScreenshots(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
