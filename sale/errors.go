package sale

import "errors"

var (
	ErrSaleExhausted          = errors.New("SaleExhausted")
	ErrPaymentNotApproved     = errors.New("PaymentNotApproved")
	ErrPaymentTransferFailed  = errors.New("PaymentTransferFailed")
	ErrSaleNotInitialized     = errors.New("SaleNotInitialized")
	ErrSaleAlreadyInitialized = errors.New("SaleAlreadyInitialized")
)
