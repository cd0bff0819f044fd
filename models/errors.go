package models

import (
	"github.com/pkg/errors"
)

type ErrorKind string

const (
	KindAuthentication ErrorKind = "authentication_error"
	KindValidation     ErrorKind = "validation_error"
	KindGateway        ErrorKind = "gateway_error"
	KindNotFound       ErrorKind = "not_found_error"
	KindInvalidState   ErrorKind = "invalid_state_error"
	KindTransientData  ErrorKind = "transient_data_error"
	KindInternal       ErrorKind = "internal_error"
)

var (
	ErrAuthentication = errors.New("authentication failed")
	ErrValidation     = errors.New("validation failed")
	ErrGateway        = errors.New("gateway error")
	ErrNotFound       = errors.New("not found")
	ErrInvalidState   = errors.New("invalid state")
	ErrTransientData  = errors.New("data temporarily unavailable")

	// ErrStale marks a write over a row that changed after it was read.
	ErrStale = errors.Wrap(ErrInvalidState, "row changed since it was loaded")
)

// KindOf classifies err by the sentinel it wraps.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthentication):
		return KindAuthentication
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrTransientData):
		return KindTransientData
	case errors.Is(err, ErrGateway):
		return KindGateway
	default:
		return KindInternal
	}
}
