// Package domain defines the data models and contracts shared by the channel,
// its services and the companion host. It contains plain types (wire/state) and
// interfaces only; implementations live in the store, transport and services
// packages.
package domain
