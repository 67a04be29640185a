// Package common contains shared constants and sentinel errors used across
// possync components.
package common

// AuthorizationHeaderName is the HTTP header used to carry the bearer token
// on outbound sync and admin requests.
const AuthorizationHeaderName = "Authorization"

// SyncLockName identifies the mutual-exclusion lock guarding a push+pull
// cycle. Lease-based lockers persist it under this key.
const SyncLockName = "sync_lock"
