package checkout

import (
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

const (
	GenericSubmitMessage = "Failed to place order. Please try again."
	EmptyCartMessage     = "Your cart is empty. Please add items to proceed."
	NoValidItemsMessage  = "No valid items in cart."
)

var (
	ErrSubmitInProgress   = errors.New("an order is already being placed")
	ErrIllegalTransition  = errors.New("illegal transition of checkout step")
	ErrInvalidShipping    = errors.New("shipping information is incomplete")
	ErrPaymentRequired    = errors.New("select a payment method")
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrCouponsUnavailable = errors.New("coupons are unavailable right now")
	// ErrStaleSession is returned when the session was reset while an order was being placed.
	ErrStaleSession = errors.New("checkout session changed while the order was being placed")
)

// ValidationError lists the shipping fields that failed validation.
type ValidationError struct {
	Fields domain.FieldErrors
}

func (e *ValidationError) Error() string {
	return ErrInvalidShipping.Error()
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidShipping
}

// SubmitError is a failed order placement. Message is what the shopper sees.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string {
	return e.Message + ": " + e.Err.Error()
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// serverMessager is implemented by backend errors that carry a message meant for the shopper.
type serverMessager interface {
	ServerMessage() string
}

func submitMessage(err error) string {
	var sm serverMessager
	if errors.As(err, &sm) && sm.ServerMessage() != "" {
		return sm.ServerMessage()
	}
	return GenericSubmitMessage
}
