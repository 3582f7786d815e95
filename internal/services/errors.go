package services

import "github.com/pkg/errors"

// Business errors surfaced to callers. Backend failures keep their own
// sentinels (store.ErrBackend, cache.ErrCacheUnavailable,
// connector.ErrInitializationFailed) in the chain.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrEventNotLive      = errors.New("event is not live")
	ErrInvalidTransition = errors.New("invalid event status transition")
	ErrInvalidRequest    = errors.New("invalid request")
)
