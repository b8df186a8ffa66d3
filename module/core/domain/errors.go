package domain

import "errors"

var (
	// ErrInvalidInput marks malformed or out-of-range request payloads.
	// Surfaced to callers as a client error; nothing is stored or published.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoGeofence is returned when no boundary has been saved yet.
	ErrNoGeofence = errors.New("no geofence saved yet")
)
