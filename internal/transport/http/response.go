package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/validation"
)

const maxBodyBytes = 1 << 20

// Response - JSON-конверт всех ответов API.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse - тело ошибки.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// Коды ошибок API.
const (
	CodeInvalidInput    = "INVALID_INPUT"
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidParam    = "INVALID_PARAMETER"
	CodeNotFound        = "NOT_FOUND"
	CodeForbidden       = "FORBIDDEN"
	CodeConflict        = "CONFLICT"
	CodeInternal        = "INTERNAL_ERROR"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Data: data})
}

func writeErrorCode(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, Response{Error: &ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: chimw.GetReqID(r.Context()),
	}})
}

// writeError сопоставляет доменную ошибку с HTTP-статусом.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger *log.Entry) {
	requestID := chimw.GetReqID(r.Context())

	var verr *validation.Error
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
			Code:      CodeValidation,
			Message:   "request validation failed",
			Fields:    verr.Fields(),
			RequestID: requestID,
		}})
		return
	}

	status, code, message := classify(err)
	if status == http.StatusInternalServerError {
		logger.WithError(err).WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": requestID,
		}).Error("internal error")
	}
	writeJSON(w, status, Response{Error: &ErrorResponse{Code: code, Message: message, RequestID: requestID}})
}

func classify(err error) (status int, code, message string) {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound, CodeNotFound, err.Error()
	case errors.Is(err, domain.ErrAddressNotOwned):
		return http.StatusForbidden, CodeForbidden, err.Error()
	case errors.Is(err, domain.ErrOrderNumberConflict), errors.Is(err, domain.ErrSlugConflict):
		return http.StatusConflict, CodeConflict, err.Error()
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUserRequired),
		errors.Is(err, domain.ErrOrderNumberRequired),
		errors.Is(err, domain.ErrOrderNumberNumeric),
		errors.Is(err, domain.ErrInvalidOrderStatus),
		errors.Is(err, domain.ErrInvalidPaymentStatus),
		errors.Is(err, domain.ErrTrackingCodeRequired),
		errors.Is(err, domain.ErrSettingKeyRequired):
		return http.StatusBadRequest, CodeInvalidInput, err.Error()
	default:
		return http.StatusInternalServerError, CodeInternal, "an internal error occurred"
	}
}

// decodeJSON читает тело запроса; неизвестные поля отклоняются.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, CodeInvalidInput, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// pathID разбирает положительный целочисленный параметр пути.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeErrorCode(w, r, http.StatusBadRequest, CodeInvalidParam, fmt.Sprintf("%s must be a positive integer", name))
		return 0, false
	}
	return id, true
}

// queryInt разбирает необязательный целочисленный query-параметр; пустое значение - fallback.
func queryInt(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		writeErrorCode(w, r, http.StatusBadRequest, CodeInvalidParam, fmt.Sprintf("%s must be a non-negative integer", name))
		return 0, false
	}
	return v, true
}
