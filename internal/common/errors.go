// Package common contains shared constants and sentinel errors used across
// client and server layers of possync. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound        = errors.New("not found")
	ErrUnknownCollection = errors.New("unknown collection")

	// Sync cycle errors. A failed push ends the cycle before the pull phase;
	// a failed pull leaves the watermark untouched. Both are retried on the
	// next trigger.
	ErrPushFailed    = errors.New("push failed")
	ErrPullFailed    = errors.New("pull failed")
	ErrRestoreFailed = errors.New("restore failed")

	// Auth errors.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrDeviceExists   = errors.New("device already registered")
)
