// Package biometric applies a companion's answer to a biometric unlock request
// on the client: rejecting unsupported states, handling the first-time opt-in,
// and validating and installing the user key the companion releases.
package biometric
