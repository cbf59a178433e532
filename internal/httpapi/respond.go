package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"finance-ledger-go/internal/importer"
	"finance-ledger-go/internal/ledger"
	"finance-ledger-go/internal/store"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// statusFor maps a ledger error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrValidation),
		errors.Is(err, store.ErrInsufficientFunds),
		errors.Is(err, importer.ErrNothingImported):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrDuplicateTransaction),
		errors.Is(err, store.ErrAccountHasTransactions),
		errors.Is(err, store.ErrBalanceMismatch),
		errors.Is(err, store.ErrConcurrentModification),
		errors.Is(err, store.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, importer.ErrInvalidFile):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeLedgerError reports err to the client. Unexpected errors are logged
// and hidden behind a generic message.
func writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID(r.Context())),
			zap.Error(err))
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}
