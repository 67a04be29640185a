package models

import "time"

// Device is a registered POS terminal allowed to sync. SecretHash is the
// argon2id encoding of the device secret; the plain secret is never stored.
type Device struct {
	ID         string
	Name       string
	SecretHash string
	CreatedAt  time.Time
}
