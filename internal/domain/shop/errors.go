package shop

import "errors"

// Kind is the stable, matchable discriminant of a shop failure.
type Kind string

const (
	KindInvalidConfiguration Kind = "INVALID_CONFIGURATION"
	KindUnauthorized         Kind = "UNAUTHORIZED"
	KindInvalidQuantity      Kind = "INVALID_QUANTITY"
	KindItemNotForSale       Kind = "ITEM_NOT_FOR_SALE"
	KindAllowanceTooLow      Kind = "ALLOWANCE_TOO_LOW"
	KindInsufficientBalance  Kind = "INSUFFICIENT_BALANCE"
	KindArithmeticOverflow   Kind = "ARITHMETIC_OVERFLOW"
	KindLedgerTransferFailed Kind = "LEDGER_TRANSFER_FAILED"
	KindLedgerUnavailable    Kind = "LEDGER_UNAVAILABLE"
)

// Error is a shop failure. Reason is the human-readable text surfaced to callers
// verbatim; Kind is what programs should match on.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string { return e.Reason }

var (
	ErrInvalidConfiguration = &Error{Kind: KindInvalidConfiguration, Reason: "invalid configuration"}
	ErrUnauthorized         = &Error{Kind: KindUnauthorized, Reason: "not owner"}
	ErrInvalidQuantity      = &Error{Kind: KindInvalidQuantity, Reason: "qty must be > 0"}
	ErrItemNotForSale       = &Error{Kind: KindItemNotForSale, Reason: "item not for sale"}
	ErrAllowanceTooLow      = &Error{Kind: KindAllowanceTooLow, Reason: "allowance too low"}
	ErrInsufficientBalance  = &Error{Kind: KindInsufficientBalance, Reason: "not enough usdt"}
	ErrArithmeticOverflow   = &Error{Kind: KindArithmeticOverflow, Reason: "arithmetic overflow"}
	ErrLedgerTransferFailed = &Error{Kind: KindLedgerTransferFailed, Reason: "ledger transfer failed"}
	ErrLedgerUnavailable    = &Error{Kind: KindLedgerUnavailable, Reason: "ledger unavailable"}
)

// KindOf reports the Kind of the first shop Error in err's chain, or "" when
// err is nil or not a shop failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf returns the caller-facing reason of err's shop failure, falling back
// to err.Error().
func ReasonOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return err.Error()
}
