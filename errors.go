package apimarket

import (
	"errors"
	"fmt"
)

// Error kinds. Every error an operation returns wraps exactly one of these,
// so callers can branch with errors.Is or KindOf without knowing the
// specific cause.
var (
	ErrNotFound              = errors.New("apimarket: not found")
	ErrUnauthorized          = errors.New("apimarket: unauthorized")
	ErrInvalidInput          = errors.New("apimarket: invalid input")
	ErrInactive              = errors.New("apimarket: inactive")
	ErrInsufficientFunds     = errors.New("apimarket: insufficient funds")
	ErrSubscriptionExpired   = errors.New("apimarket: subscription expired")
	ErrSubscriptionExhausted = errors.New("apimarket: subscription exhausted")
	ErrTransferFailed        = errors.New("apimarket: transfer failed")
)

// Specific causes.
var (
	// Not found
	ErrServiceNotFound      = fmt.Errorf("%w: service", ErrNotFound)
	ErrSubscriptionNotFound = fmt.Errorf("%w: subscription", ErrNotFound)

	// Unauthorized
	ErrNotProvider   = fmt.Errorf("%w: caller is not the service provider", ErrUnauthorized)
	ErrNotSubscriber = fmt.Errorf("%w: caller is not the subscriber", ErrUnauthorized)
	ErrNotOwner      = fmt.Errorf("%w: caller is not the owner", ErrUnauthorized)

	// Invalid input
	ErrEmptyName        = fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
	ErrInvalidPrice     = fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	ErrInvalidCallCount = fmt.Errorf("%w: call count must be positive", ErrInvalidInput)
	ErrInvalidDuration  = fmt.Errorf("%w: invalid subscription duration", ErrInvalidInput)
	ErrFeeTooHigh       = fmt.Errorf("%w: platform fee above maximum", ErrInvalidInput)
	ErrZeroPrincipal    = fmt.Errorf("%w: zero principal", ErrInvalidInput)
	ErrAmountOverflow   = fmt.Errorf("%w: amount overflow", ErrInvalidInput)

	// Inactive
	ErrServiceInactive      = fmt.Errorf("%w: service", ErrInactive)
	ErrSubscriptionInactive = fmt.Errorf("%w: subscription", ErrInactive)

	// Insufficient funds
	ErrInsufficientPayment = fmt.Errorf("%w: payment below total cost", ErrInsufficientFunds)
	ErrNoFeesToWithdraw    = fmt.Errorf("%w: no fees to withdraw", ErrInsufficientFunds)

	// Infrastructure
	ErrStoreNotReady     = errors.New("apimarket: store not ready")
	ErrTransactionFailed = errors.New("apimarket: transaction failed")
)

// Kind classifies an operation error.
type Kind int

const (
	KindNone Kind = iota
	KindNotFound
	KindUnauthorized
	KindInvalidArgument
	KindInactive
	KindInsufficientFunds
	KindExpired
	KindExhausted
	KindTransferFailed
	KindInternal
)

var kindNames = [...]string{
	KindNone:              "none",
	KindNotFound:          "not_found",
	KindUnauthorized:      "unauthorized",
	KindInvalidArgument:   "invalid_argument",
	KindInactive:          "inactive",
	KindInsufficientFunds: "insufficient_funds",
	KindExpired:           "expired",
	KindExhausted:         "exhausted",
	KindTransferFailed:    "transfer_failed",
	KindInternal:          "internal",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// KindOf returns the kind of err. A nil error is KindNone; an error that
// wraps none of the kinds is KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidArgument
	case errors.Is(err, ErrInactive):
		return KindInactive
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrSubscriptionExpired):
		return KindExpired
	case errors.Is(err, ErrSubscriptionExhausted):
		return KindExhausted
	case errors.Is(err, ErrTransferFailed):
		return KindTransferFailed
	default:
		return KindInternal
	}
}

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("apimarket: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap returns the specific cause, or ErrInvalidInput.
func (e ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

func invalid(field string, cause error, msg string) error {
	return ValidationError{Field: field, Message: msg, Err: cause}
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed) ||
		errors.Is(err, ErrTransferFailed)
}
