package domain

import "errors"

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrItemNotFound    = errors.New("item not found")

	ErrItemUnavailable = errors.New("item is not available")
	ErrOutOfStock      = errors.New("item is out of stock")
	ErrOfferExpired    = errors.New("limited-time offer has expired")

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")

	ErrNoUsableItem  = errors.New("no usable item in inventory")
	ErrItemExpired   = errors.New("inventory item has expired")
	ErrUnknownEffect = errors.New("unknown item effect")

	// Infrastructure errors. Both are retryable.
	ErrConflict         = errors.New("concurrent modification, try again")
	ErrStoreUnavailable = errors.New("profile store unavailable")
)

// FailureReason is the typed rejection handed to the presentation layer.
type FailureReason string

const (
	ReasonNone              FailureReason = ""
	ReasonProfileNotFound   FailureReason = "PROFILE_NOT_FOUND"
	ReasonItemNotFound      FailureReason = "ITEM_NOT_FOUND"
	ReasonItemUnavailable   FailureReason = "ITEM_UNAVAILABLE"
	ReasonOutOfStock        FailureReason = "OUT_OF_STOCK"
	ReasonOfferExpired      FailureReason = "OFFER_EXPIRED"
	ReasonInsufficientFunds FailureReason = "INSUFFICIENT_FUNDS"
	ReasonInvalidAmount     FailureReason = "INVALID_AMOUNT"
	ReasonNoUsableItem      FailureReason = "NO_USABLE_ITEM"
	ReasonItemExpired       FailureReason = "ITEM_EXPIRED"
	ReasonUnknownEffect     FailureReason = "UNKNOWN_EFFECT"
	ReasonTryAgain          FailureReason = "TRY_AGAIN"
)

// ReasonFor maps an error returned by the engines to a FailureReason.
// Anything not recognised is reported as TRY_AGAIN.
func ReasonFor(err error) FailureReason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrProfileNotFound):
		return ReasonProfileNotFound
	case errors.Is(err, ErrItemNotFound):
		return ReasonItemNotFound
	case errors.Is(err, ErrItemUnavailable):
		return ReasonItemUnavailable
	case errors.Is(err, ErrOutOfStock):
		return ReasonOutOfStock
	case errors.Is(err, ErrOfferExpired):
		return ReasonOfferExpired
	case errors.Is(err, ErrInsufficientFunds):
		return ReasonInsufficientFunds
	case errors.Is(err, ErrInvalidAmount):
		return ReasonInvalidAmount
	case errors.Is(err, ErrNoUsableItem):
		return ReasonNoUsableItem
	case errors.Is(err, ErrItemExpired):
		return ReasonItemExpired
	case errors.Is(err, ErrUnknownEffect):
		return ReasonUnknownEffect
	default:
		return ReasonTryAgain
	}
}

// IsRetryable reports whether err is a transient store failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrStoreUnavailable)
}
