// Package keys manages user keys on the client: creating accounts, validating
// a key offered over the channel against the stored verification material,
// and holding the unlocked key in memory.
package keys
