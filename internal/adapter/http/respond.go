package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/terangapay/transfert-backend/internal/domain"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	respondJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps domain errors onto the HTTP error taxonomy:
// validation and business-rule failures are 400s with machine-readable
// codes, absences are 404s, party violations 403, anything else 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "INVALID_AMOUNT", err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, "INSUFFICIENT_FUNDS", err.Error())
	case errors.Is(err, domain.ErrSelfTransfer):
		writeError(w, http.StatusBadRequest, "SELF_TRANSFER", err.Error())
	case errors.Is(err, domain.ErrAlreadyCancelled):
		writeError(w, http.StatusBadRequest, "ALREADY_CANCELLED", err.Error())
	case errors.Is(err, domain.ErrInactiveAccount):
		writeError(w, http.StatusBadRequest, "INACTIVE_ACCOUNT", err.Error())
	case errors.Is(err, domain.ErrPhoneTaken):
		writeError(w, http.StatusBadRequest, "PHONE_TAKEN", err.Error())
	case errors.Is(err, domain.ErrAccountExists):
		writeError(w, http.StatusBadRequest, "ACCOUNT_EXISTS", err.Error())
	case errors.Is(err, domain.ErrRecipientNotFound):
		writeError(w, http.StatusNotFound, "RECIPIENT_NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "ACCOUNT_NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, "TRANSACTION_NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrReceiptNotFound):
		writeError(w, http.StatusNotFound, "RECEIPT_NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
