package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Zhima-Mochi/coffeeshop/internal/domain/identity"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/journal"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/shop"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/token"
)

const maxBodyBytes = 1 << 16

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return errors.New("invalid request body: trailing data")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, reason string) {
	writeJSON(w, status, errorBody{Error: reason, Code: code})
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
}

// writeDomainError maps shop and token failures onto status codes. The shop
// reason is passed through verbatim so clients can show it to the customer.
func writeDomainError(w http.ResponseWriter, err error) {
	if kind := shop.KindOf(err); kind != "" {
		writeError(w, shopStatus(kind), string(kind), shop.ReasonOf(err))
		return
	}

	switch {
	case errors.Is(err, token.ErrInsufficientBalance):
		writeError(w, http.StatusPaymentRequired, "INSUFFICIENT_BALANCE", err.Error())
	case errors.Is(err, token.ErrInsufficientAllowance):
		writeError(w, http.StatusPaymentRequired, "INSUFFICIENT_ALLOWANCE", err.Error())
	case errors.Is(err, token.ErrNotMinter):
		writeError(w, http.StatusForbidden, "NOT_MINTER", err.Error())
	case errors.Is(err, token.ErrInvalidAddress),
		errors.Is(err, identity.ErrMalformedAddress),
		errors.Is(err, identity.ErrZeroAddress):
		writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
	case errors.Is(err, token.ErrOverflow):
		writeError(w, http.StatusUnprocessableEntity, "ARITHMETIC_OVERFLOW", err.Error())
	case errors.Is(err, journal.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "CONTEXT_CANCELED", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func shopStatus(kind shop.Kind) int {
	switch kind {
	case shop.KindUnauthorized:
		return http.StatusForbidden
	case shop.KindInvalidQuantity:
		return http.StatusBadRequest
	case shop.KindItemNotForSale:
		return http.StatusConflict
	case shop.KindAllowanceTooLow, shop.KindInsufficientBalance:
		return http.StatusPaymentRequired
	case shop.KindArithmeticOverflow:
		return http.StatusUnprocessableEntity
	case shop.KindLedgerTransferFailed:
		return http.StatusBadGateway
	case shop.KindLedgerUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
