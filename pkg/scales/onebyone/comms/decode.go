package comms

import "encoding/binary"

// RawNotificationFrame holds the raw values carried by a measurement notification.
type RawNotificationFrame struct {
	WeightRaw      uint16 // hundredths of a kilogram
	ImpedanceCoeff uint32 // 24-bit little endian at offset 5
	ImpedanceValue int    // sum of the three impedance bytes
	RawFrame       []byte
}

// WeightKg returns the weight in kilograms.
func (f RawNotificationFrame) WeightKg() float64 {
	return float64(f.WeightRaw) / 100.0
}

// DecodeNotification decodes a measurement notification. It returns false for
// anything that is not exactly 11 bytes starting with 0xCF; such payloads are
// not errors, they are simply not measurements. The trailing checksum is not verified.
func DecodeNotification(data []byte) (RawNotificationFrame, bool) {
	if len(data) != FrameLength || data[0] != NotificationMarker {
		return RawNotificationFrame{}, false
	}

	frame := make([]byte, FrameLength)
	copy(frame, data)

	return RawNotificationFrame{
		WeightRaw:      binary.LittleEndian.Uint16(frame[3:5]),
		ImpedanceCoeff: uint32(frame[5]) | uint32(frame[6])<<8 | uint32(frame[7])<<16,
		ImpedanceValue: int(frame[5]) + int(frame[6]) + int(frame[7]),
		RawFrame:       frame,
	}, true
}

// BuildNotification creates a notification frame the way the scale sends it.
// Bytes the driver does not read are left zero except the trailing checksum.
func BuildNotification(weightRaw uint16, impedanceCoeff uint32) []byte {
	frame := make([]byte, FrameLength)
	frame[0] = NotificationMarker
	binary.LittleEndian.PutUint16(frame[3:5], weightRaw)
	frame[5] = byte(impedanceCoeff)
	frame[6] = byte(impedanceCoeff >> 8)
	frame[7] = byte(impedanceCoeff >> 16)
	frame[FrameLength-1] = XORChecksum(frame, 0, FrameLength-1)
	return frame
}
