package types

import "strings"

// UserID identifies an account known to both the client and the companion.
type UserID string

// String returns the string form of the user id.
func (u UserID) String() string { return string(u) }

// AppID identifies one client install. Several installs may share a companion.
type AppID string

// String returns the string form of the application instance id.
func (id AppID) String() string { return string(id) }

// Fingerprint is the word phrase shown to users to confirm a public key.
type Fingerprint []string

// String joins the phrase with dashes.
func (f Fingerprint) String() string { return strings.Join(f, "-") }
