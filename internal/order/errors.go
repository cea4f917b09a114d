package order

import "errors"

var (
	ErrEmptyCart            = errors.New("no valid items in cart")
	ErrIncompleteCustomer   = errors.New("customer information is incomplete")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
	ErrSchemaViolation      = errors.New("order payload violates the order contract")
)
