package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"marketfront/core/reconcile"
	"marketfront/core/session"

	marketerrors "marketfront/core/errors"
)

var (
	errBadRequest = errors.New("bad request")
	errEmptyBody  = errors.New("request body required")
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if trimmed := strings.TrimSpace(err.Error()); trimmed != "" {
			message = trimmed
		}
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSONError(w, http.StatusBadRequest, err)
}

// statusFor maps command errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, marketerrors.ErrInvalidContentID),
		errors.Is(err, session.ErrInvalidArgument),
		errors.Is(err, session.ErrNoSelection),
		errors.Is(err, session.ErrLimitReached),
		errors.Is(err, session.ErrInsufficientPayment),
		errors.Is(err, session.ErrInsufficientQuantity),
		errors.Is(err, session.ErrInsufficientBalance),
		errors.Is(err, session.ErrNothingStaged),
		errors.Is(err, reconcile.ErrIndexOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, reconcile.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, marketerrors.ErrInconsistentState):
		return http.StatusConflict
	case errors.Is(err, marketerrors.ErrOperationFailed):
		return http.StatusBadGateway
	case errors.Is(err, marketerrors.ErrUnconfirmed):
		return http.StatusGatewayTimeout
	case errors.Is(err, session.ErrContentStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// outcomeFor labels a command result for metrics.
func outcomeFor(err error) string {
	if err == nil {
		return "ok"
	}
	switch statusFor(err) {
	case http.StatusBadRequest, http.StatusNotFound:
		return "rejected"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusConflict:
		return "inconsistent"
	case http.StatusBadGateway:
		return "failed"
	case http.StatusGatewayTimeout:
		return "unconfirmed"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		return "error"
	}
}
