package curve

import "errors"

var (
	// ErrInvalidAmount indicates a zero or out-of-range amount was supplied.
	ErrInvalidAmount = errors.New("curve: invalid amount")
	// ErrOverflow indicates an intermediate product or sum exceeded 256 bits.
	ErrOverflow = errors.New("curve: arithmetic overflow")
	// ErrInsufficientPayment indicates the offered payment cannot cover the
	// computed cost, or buys less than one base unit at the current price.
	ErrInsufficientPayment = errors.New("curve: insufficient payment")
	// ErrSlippageExceeded indicates the computed cost or refund violated the
	// caller's bound.
	ErrSlippageExceeded = errors.New("curve: slippage exceeds tolerance")
	// ErrInsufficientBalance indicates a burn amount above the caller's holdings.
	ErrInsufficientBalance = errors.New("curve: insufficient balance")
	// ErrInsufficientReserve indicates the reserve cannot cover a computed refund.
	ErrInsufficientReserve = errors.New("curve: insufficient reserve")
	// ErrTransferFailed indicates the payment rail rejected a collect or payout.
	ErrTransferFailed = errors.New("curve: transfer failed")
	// ErrReentrantCall indicates a mutating operation was entered while another
	// one was still in flight.
	ErrReentrantCall = errors.New("curve: reentrant call")
)
