package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/screenshot-mailer/internal/application/port"
	"github.com/dreschagin/screenshot-mailer/internal/application/usecase"
	"github.com/dreschagin/screenshot-mailer/internal/domain/apperror"
	"github.com/dreschagin/screenshot-mailer/internal/domain/model"
	"github.com/dreschagin/screenshot-mailer/internal/interfaces/http/middleware"
	"github.com/dreschagin/screenshot-mailer/pkg/logger"
)

const maxRequestBytes = 64 * 1024

type ScreenshotAPIHandler struct {
	captureUC *usecase.CaptureProfileScreenshotUseCase
	listUC    *usecase.ListScreenshotAttemptsUseCase
	logger    *logger.Logger
}

type captureRequest struct {
	Username  string `json:"username"`
	Recipient string `json:"recipient"`
	WithLogin bool   `json:"with_login"`
}

type captureResponse struct {
	ImageID       string    `json:"image_id"`
	Username      string    `json:"username"`
	Recipient     string    `json:"recipient"`
	FileName      string    `json:"file_name"`
	Path          string    `json:"path"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	SentAt        time.Time `json:"sent_at"`
	Status        string    `json:"status"`
}

type attemptResponse struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Recipient     string    `json:"recipient"`
	FileName      string    `json:"file_name"`
	FilePath      string    `json:"file_path"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	SentAt        time.Time `json:"sent_at"`
	Status        string    `json:"status"`
	ErrorMessage  string    `json:"error_message,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func NewScreenshotAPIHandler(
	captureUC *usecase.CaptureProfileScreenshotUseCase,
	listUC *usecase.ListScreenshotAttemptsUseCase,
	log *logger.Logger,
) *ScreenshotAPIHandler {
	return &ScreenshotAPIHandler{
		captureUC: captureUC,
		listUC:    listUC,
		logger:    log,
	}
}

// HandleScreenshots dispatches POST (run the pipeline) and GET (list
// attempts) for /api/v1/screenshots.
func (h *ScreenshotAPIHandler) HandleScreenshots(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.capture(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ScreenshotAPIHandler) capture(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer r.Body.Close()

	var req captureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	request := model.ScreenshotRequest{
		Username:  strings.TrimSpace(req.Username),
		Recipient: strings.TrimSpace(req.Recipient),
		WithLogin: req.WithLogin,
	}
	if err := request.Validate(); err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	record, err := h.captureUC.Execute(r.Context(), request)
	if err != nil {
		kind := apperror.KindOf(err)
		h.logger.Error("Screenshot request failed", err,
			"username", request.Username,
			"kind", string(kind),
		)
		middleware.WriteJSON(w, apperror.HTTPStatus(kind), errorResponse{
			Error: err.Error(),
			Kind:  string(kind),
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, captureResponse{
		ImageID:       record.ImageID,
		Username:      record.Username,
		Recipient:     record.Recipient,
		FileName:      record.FileName,
		Path:          record.Path,
		FileSizeBytes: record.FileSizeBytes,
		SentAt:        record.SentAt,
		Status:        string(record.Status),
	})
}

func (h *ScreenshotAPIHandler) list(w http.ResponseWriter, r *http.Request) {
	query, err := parseAttemptQuery(r)
	if err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	attempts, err := h.listUC.Execute(r.Context(), query)
	if err != nil {
		h.logger.Error("Failed to list attempts", err)
		middleware.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list attempts"})
		return
	}

	items := make([]attemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		items = append(items, attemptResponse{
			ID:            attempt.ID,
			Username:      attempt.Username,
			Recipient:     attempt.Recipient,
			FileName:      attempt.FileName,
			FilePath:      attempt.FilePath,
			FileSizeBytes: attempt.FileSizeBytes,
			SentAt:        attempt.SentAt,
			Status:        string(attempt.Status),
			ErrorMessage:  attempt.ErrorMessage,
		})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func parseAttemptQuery(r *http.Request) (port.AttemptQuery, error) {
	values := r.URL.Query()
	query := port.AttemptQuery{
		Username:  strings.TrimSpace(values.Get("username")),
		Recipient: strings.TrimSpace(values.Get("recipient")),
	}

	if status := strings.ToUpper(strings.TrimSpace(values.Get("status"))); status != "" {
		if status != string(model.StatusSuccess) && status != string(model.StatusFailed) {
			return port.AttemptQuery{}, errInvalidParam("status")
		}
		query.Status = model.Status(status)
	}

	var err error
	if query.From, err = parseTimeParam(values.Get("from")); err != nil {
		return port.AttemptQuery{}, errInvalidParam("from")
	}
	if query.To, err = parseTimeParam(values.Get("to")); err != nil {
		return port.AttemptQuery{}, errInvalidParam("to")
	}
	if query.Limit, err = parseIntParam(values.Get("limit")); err != nil || query.Limit < 0 {
		return port.AttemptQuery{}, errInvalidParam("limit")
	}
	if query.Offset, err = parseIntParam(values.Get("offset")); err != nil || query.Offset < 0 {
		return port.AttemptQuery{}, errInvalidParam("offset")
	}

	return query, nil
}

func parseTimeParam(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func parseIntParam(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

type paramError string

func (e paramError) Error() string { return "invalid query parameter: " + string(e) }

func errInvalidParam(name string) error { return paramError(name) }
