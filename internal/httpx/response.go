package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/joao-fontenele/fooddelivery/internal/domain"
)

type ErrorResponse struct {
	Detail string `json:"detail"`
}

func WriteJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, logger *slog.Logger, status int, detail string) {
	WriteJSON(w, logger, status, ErrorResponse{Detail: detail})
}

// StatusFor maps a domain error kind onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrIntegrity),
		errors.Is(err, domain.ErrNoValidItems),
		errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IntegrityDetail replaces constraint errors in responses. The driver text
// names tables and constraints, so it only goes to the log.
const IntegrityDetail = "referenced record does not exist or conflicts with existing data"

// WriteDomainError writes err with the status StatusFor picks. Server errors
// are logged with msg and hidden from the client.
func WriteDomainError(w http.ResponseWriter, logger *slog.Logger, err error, msg string, attrs ...any) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(msg, append([]any{"error", err}, attrs...)...)
		WriteError(w, logger, status, "internal server error")
		return
	}
	logger.Warn(msg, append([]any{"error", err, "status", status}, attrs...)...)
	if errors.Is(err, domain.ErrIntegrity) {
		WriteError(w, logger, status, IntegrityDetail)
		return
	}
	WriteError(w, logger, status, err.Error())
}

// PathID parses the named path value as a positive int64.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// DecodeJSON decodes the request body into v.
func DecodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
