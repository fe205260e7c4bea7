// Package commands defines the deskbridge CLI and wires dependencies for subcommands.
//
// Commands
//
//   - unlock          Release the user key from the companion via biometrics
//   - status          Show channel state and the companion's biometric status
//   - app-id          Print this install's application id
//   - fingerprint     Print the account's public key fingerprint
//   - account create  Provision an account and seal its key into the companion vault
//   - account list    List local accounts
//
// # Implementation
//
// The root command loads the YAML config, applies flag overrides and builds
// the dependency graph (stores, services, channel) before any subcommand
// runs. The channel connects lazily, so commands that only touch local
// state never start the companion.
package commands
