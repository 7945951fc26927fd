package errors

import "fmt"

var (
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrInvalidConfig    = fmt.Errorf("invalid configuration")
	ErrEmptyCompletion  = fmt.Errorf("completion returned no choices")
	ErrUnknownProvider  = fmt.Errorf("unknown completion provider")
	ErrUnknownStore     = fmt.Errorf("unknown store driver")
	ErrInvalidCursor    = fmt.Errorf("invalid pagination cursor")
	ErrInvalidRecipient = fmt.Errorf("invalid reply recipient")
	ErrSessionNotPaired = fmt.Errorf("chat session is not paired")
	ErrEmptyWords       = fmt.Errorf("no words have been found")
)
