package payment

import "errors"

// Module errors.
var (
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrAmountOutOfRange  = errors.New("amount out of range")
	ErrInvalidPayload    = errors.New("invalid invoice payload")
	ErrInvoiceCreation   = errors.New("invoice creation failed")
	ErrCreditApplication = errors.New("credit application failed after status flip")
)
