package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tabwork/hwcore/internal/camera"
	"github.com/tabwork/hwcore/internal/manager"
	"github.com/tabwork/hwcore/internal/power"
	"github.com/tabwork/hwcore/internal/regio"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeHardware     = "hardware_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps manager and device errors to HTTP responses.
//
// Caller mistakes (unknown device, bad values, busy device) map to 4xx;
// hardware faults (bus errors, rail failures) map to 502 so clients can
// tell them apart from server bugs.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, manager.ErrUnknownDevice):
		writeNotFound(w, err.Error())
	case errors.Is(err, manager.ErrNotSupported), errors.Is(err, manager.ErrUnknownOp):
		writeBadRequest(w, err.Error())
	case errors.Is(err, camera.ErrUnknownControl):
		writeNotFound(w, err.Error())
	case errors.Is(err, camera.ErrBadValue), errors.Is(err, regio.ErrBadWidth):
		writeBadRequest(w, err.Error())
	case errors.Is(err, camera.ErrBusy), errors.Is(err, camera.ErrNotPowered):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, regio.ErrBus), errors.Is(err, camera.ErrWrongChip),
		errors.Is(err, power.ErrResource):
		writeError(w, http.StatusBadGateway, ErrCodeHardware, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
