package comms_test

import (
	"testing"

	"github.com/mlsorensen/gobodyscale"
	"github.com/mlsorensen/gobodyscale/pkg/scales/onebyone/comms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/bluetooth"
)

func TestXORChecksum(t *testing.T) {
	data := []byte{0xFD, 0x37, 0x00, 0x01, 0xAA}

	assert.Equal(t, byte(0xFD^0x37^0x00^0x01), comms.XORChecksum(data, 0, 4))
	assert.Equal(t, byte(0x37^0x00), comms.XORChecksum(data, 1, 3))
	assert.Equal(t, byte(0), comms.XORChecksum(data, 2, 2), "empty range")
}

func TestEncodeCommand_KG(t *testing.T) {
	got := comms.EncodeCommand(comms.UnitCodeKG, 0x01)

	x := byte(0xFD ^ 0x37 ^ 0x00 ^ 0x01)
	want := []byte{0xFD, 0x37, 0x00, 0x01, 0, 0, 0, 0, 0, 0, x}
	assert.Equal(t, want, got.Bytes())
	assert.Equal(t, comms.XORChecksum(got[:], 0, 10), got[10])
}

func TestEncodeCommand_Units(t *testing.T) {
	tests := []struct {
		unit gobodyscale.Unit
		code byte
	}{
		{gobodyscale.UnitKG, 0x00},
		{gobodyscale.UnitLB, 0x01},
		{gobodyscale.UnitST, 0x02},
		{gobodyscale.Unit(42), 0x00},
	}

	for _, tt := range tests {
		t.Run(tt.unit.String(), func(t *testing.T) {
			frame := comms.EncodeCommand(comms.UnitCodeFor(tt.unit), comms.DefaultGroup)
			assert.Len(t, frame.Bytes(), comms.FrameLength)
			assert.Equal(t, tt.code, frame[2])
			assert.Equal(t, comms.DefaultGroup, frame[3])
			assert.Equal(t, comms.XORChecksum(frame[:], 0, 10), frame[10])
		})
	}
}

func TestDecodeNotification_RejectsWrongLength(t *testing.T) {
	for n := 0; n <= 20; n++ {
		if n == comms.FrameLength {
			continue
		}
		data := make([]byte, n)
		if n > 0 {
			data[0] = comms.NotificationMarker
		}
		_, ok := comms.DecodeNotification(data)
		assert.False(t, ok, "length %d", n)
	}

	_, ok := comms.DecodeNotification(nil)
	assert.False(t, ok, "nil")
}

func TestDecodeNotification_RejectsWrongMarker(t *testing.T) {
	for b := 0; b < 256; b++ {
		if byte(b) == comms.NotificationMarker {
			continue
		}
		data := make([]byte, comms.FrameLength)
		data[0] = byte(b)
		_, ok := comms.DecodeNotification(data)
		assert.False(t, ok, "marker 0x%02X", b)
	}
}

func TestDecodeNotification_Weight(t *testing.T) {
	data := []byte{0xCF, 0x11, 0x22, 0x64, 0x1C, 0x05, 0x00, 0x00, 0x33, 0x44, 0x55}

	frame, ok := comms.DecodeNotification(data)
	require.True(t, ok)

	assert.Equal(t, uint16(7268), frame.WeightRaw)
	assert.InDelta(t, 72.68, frame.WeightKg(), 1e-9)
	assert.Equal(t, uint32(5), frame.ImpedanceCoeff)
	assert.Equal(t, 5, frame.ImpedanceValue)
}

func TestDecodeNotification_ImpedanceDoesNotWrap(t *testing.T) {
	data := []byte{0xCF, 0, 0, 0x10, 0x27, 0xFF, 0xFE, 0xFD, 0, 0, 0}

	frame, ok := comms.DecodeNotification(data)
	require.True(t, ok)

	assert.Equal(t, uint32(0xFDFEFF), frame.ImpedanceCoeff)
	assert.Equal(t, 0xFF+0xFE+0xFD, frame.ImpedanceValue)
	assert.InDelta(t, 100.0, frame.WeightKg(), 1e-9)
}

func TestDecodeNotification_CopiesInput(t *testing.T) {
	data := comms.BuildNotification(7268, 5)

	frame, ok := comms.DecodeNotification(data)
	require.True(t, ok)

	data[3] = 0
	assert.Equal(t, byte(0x64), frame.RawFrame[3])
}

func TestBuildNotification_RoundTrip(t *testing.T) {
	data := comms.BuildNotification(8050, 0x0201F4)

	frame, ok := comms.DecodeNotification(data)
	require.True(t, ok)
	assert.Equal(t, uint16(8050), frame.WeightRaw)
	assert.Equal(t, uint32(0x0201F4), frame.ImpedanceCoeff)
	assert.Equal(t, 0xF4+0x01+0x02, frame.ImpedanceValue)
}

func TestUUIDs(t *testing.T) {
	assert.Equal(t, bluetooth.New16BitUUID(0xFFF0), comms.OneByoneServiceUUID)
	assert.True(t, comms.OneByoneNotifyCharUUID.Is16Bit())
	assert.Equal(t, bluetooth.New16BitUUID(0xFFF4), comms.OneByoneNotifyCharUUID)
	assert.Equal(t, bluetooth.New16BitUUID(0xFFF1), comms.OneByoneCommandCharUUID)
}
