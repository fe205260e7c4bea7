// Package identity provides the application instance id and renders public key
// fingerprints. It wraps the app id store and the configured fingerprint word
// list for use by the channel, the companion and the CLI.
package identity
