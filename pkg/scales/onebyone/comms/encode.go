package comms

import "github.com/mlsorensen/gobodyscale"

// UnitCode is the display unit as the scale firmware encodes it.
type UnitCode byte

const (
	UnitCodeKG UnitCode = 0x00
	UnitCodeLB UnitCode = 0x01
	UnitCodeST UnitCode = 0x02
)

// CommandFrame is an encoded command, ready to be written to the command characteristic.
type CommandFrame [FrameLength]byte

// Bytes returns the frame as a slice.
func (f CommandFrame) Bytes() []byte {
	return f[:]
}

// UnitCodeFor maps a display unit to its wire code. Unknown units fall back to kg.
func UnitCodeFor(unit gobodyscale.Unit) UnitCode {
	switch unit {
	case gobodyscale.UnitLB:
		return UnitCodeLB
	case gobodyscale.UnitST:
		return UnitCodeST
	default:
		return UnitCodeKG
	}
}

// EncodeCommand creates the command that sets the display unit and user group.
// Bytes 4 to 9 are reserved and always zero; the last byte is the XOR of the rest.
func EncodeCommand(unit UnitCode, group byte) CommandFrame {
	var frame CommandFrame
	frame[0] = CommandPrefix1
	frame[1] = CommandPrefix2
	frame[2] = byte(unit)
	frame[3] = group
	frame[FrameLength-1] = XORChecksum(frame[:], 0, FrameLength-1)
	return frame
}
