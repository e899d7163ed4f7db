package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	goCatalog "github.com/MrEthical07/goCatalog"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Status    int               `json:"status"`
	Message   string            `json:"message"`
	Timestamp int64             `json:"timestamp"`
	Errors    map[string]string `json:"errors,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &goCatalog.ValidationError{Field: "body", Reason: "malformed JSON"}
	}
	return nil
}

func writeStatus(w http.ResponseWriter, status int, message string, fields map[string]string) {
	writeJSON(w, status, errorResponse{
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
		Errors:    fields,
	})
}

// writeError maps engine errors onto HTTP statuses. Unexpected errors are
// logged and reported as 500 without detail.
func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)

	var fields map[string]string
	var verr *goCatalog.ValidationError
	if errors.As(err, &verr) {
		fields = map[string]string{verr.Field: verr.Reason}
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		message = "internal server error"
	}
	writeStatus(w, status, message, fields)
}

func (h *handlers) guardError(w http.ResponseWriter, _ *http.Request, status int, err error) {
	writeStatus(w, status, err.Error(), nil)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, goCatalog.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, goCatalog.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, goCatalog.ErrLoginRateLimited), errors.Is(err, goCatalog.ErrRefreshRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, goCatalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, goCatalog.ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, goCatalog.ErrInvalidInput), errors.Is(err, goCatalog.ErrUnknownRole):
		return http.StatusBadRequest
	case errors.Is(err, goCatalog.ErrEngineNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
