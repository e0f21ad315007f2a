package gobodyscale

import (
	"context"

	"tinygo.org/x/bluetooth"
)

// TransportEvents receives what the transport reports back asynchronously.
type TransportEvents interface {
	// HandleNotify is called for every notification on a subscribed characteristic.
	HandleNotify(char bluetooth.UUID, data []byte)

	// Complete is called exactly once per successful SubscribeNotify or
	// WriteCharacteristic, after the peripheral acknowledged it.
	Complete() error
}

// Transport is the BLE link to a connected scale. Both operations are
// fire-and-forget: they return once the request is issued and report
// completion through TransportEvents.Complete.
type Transport interface {
	Bind(events TransportEvents)
	SubscribeNotify(service, char bluetooth.UUID) error
	WriteCharacteristic(service, char bluetooth.UUID, data []byte) error
}

// ProfileStore supplies the user whose measurements are being taken.
type ProfileStore interface {
	ActiveUser(ctx context.Context) (UserProfile, error)
}

// MeasurementStore persists measurements.
type MeasurementStore interface {
	// Latest returns the most recently persisted measurement, false if there is none.
	Latest(ctx context.Context) (Measurement, bool, error)
	// Insert persists m as a new record and assigns its ID.
	Insert(ctx context.Context, m *Measurement) error
	// Update replaces the record with m.ID.
	Update(ctx context.Context, m Measurement) error
}

// Messenger shows a fire-and-forget message to the user.
type Messenger interface {
	Prompt(key string, param int)
}
