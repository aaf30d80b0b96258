package service

import "errors"

// Error kinds returned by the coordinators. Handlers map these to HTTP
// statuses; nothing inside the core retries on any of them.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("session signature mismatch")
	ErrNotFound           = errors.New("session not found")
	ErrGone               = errors.New("session expired")
	ErrBadRequest         = errors.New("bad request")
	ErrRateLimited        = errors.New("rate limited")
	ErrCapacityExceeded   = errors.New("session capacity exceeded")
	ErrGatewayUnavailable = errors.New("reward gateway unavailable")
	ErrInternal           = errors.New("internal game error")
)
