package gobodyscale

import "errors"

var (
	// ErrUnknownDevice is returned when no registered driver matches a device name.
	ErrUnknownDevice = errors.New("no driver found for device")

	// ErrAlreadyStarted is returned when a handshake is started twice.
	ErrAlreadyStarted = errors.New("handshake already started")

	// ErrNoStepPending is returned when a completion arrives but no step is waiting
	// for one. A duplicate acknowledgement never advances the handshake twice.
	ErrNoStepPending = errors.New("no handshake step pending")

	// ErrSequenceDone is returned when a completion arrives after the last step.
	ErrSequenceDone = errors.New("handshake already finished")

	// ErrNotConnected indicates an operation on a transport that has no device.
	ErrNotConnected = errors.New("not connected")
)
