package zone

import "errors"

var (
	ErrDuplicateZone          = errors.New("zone already exists")
	ErrZoneNotFound           = errors.New("zone not found")
	ErrInvalidConfiguration   = errors.New("invalid zone configuration")
	ErrProcedureNotFound      = errors.New("no procedure for severity")
	ErrShutdownActive         = errors.New("shutdown already active")
	ErrShutdownDisabled       = errors.New("automatic shutdown disabled")
	ErrShutdownSuppressed     = errors.New("shutdown frequency limit reached")
	ErrReactivationNotAllowed = errors.New("reactivation preconditions not met")
)
