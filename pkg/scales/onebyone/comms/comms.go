// Package comms provides communication details for 1byone body-composition scales
package comms

import "tinygo.org/x/bluetooth"

var (
	OneByoneServiceUUID     = bluetooth.New16BitUUID(0xFFF0)
	OneByoneCommandCharUUID = bluetooth.New16BitUUID(0xFFF1) // write only
	OneByoneNotifyCharUUID  = bluetooth.New16BitUUID(0xFFF4) // body composition, notify
)

// Constants for the communication protocol.
const (
	// FrameLength is the size of both command and notification frames.
	FrameLength = 11

	// CommandPrefix1 and CommandPrefix2 start every command frame.
	CommandPrefix1 byte = 0xFD
	CommandPrefix2 byte = 0x37

	// NotificationMarker is the first byte of a measurement notification.
	NotificationMarker byte = 0xCF

	// DefaultGroup is the user group sent with the unit command.
	DefaultGroup byte = 0x01
)
