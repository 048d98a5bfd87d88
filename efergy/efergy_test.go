package efergy

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestChecksum(t *testing.T) {
	frame := []byte{1, 2, 3, 4, 5, 6, 7, 28}
	require.Equal(t, byte(28), Checksum(frame))
	require.True(t, Valid(frame))

	frame[7] = 29
	require.False(t, Valid(frame))
}

func TestChecksumWraps(t *testing.T) {
	frame := []byte{0xFF, 0xFF, 0, 0, 0, 0, 0, 0xFE}
	require.Equal(t, byte(0xFE), Checksum(frame))
	require.True(t, Valid(frame))
}

func TestChecksumRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(8, 9).Draw(t, "n")
		frame := rapid.SliceOfN(rapid.Byte(), n, n).Draw(t, "frame")

		frame[n-1] = Checksum(frame)
		if !Valid(frame) {
			t.Fatalf("frame %x does not validate", frame)
		}
	})
}

func TestValidRejectsShortFrames(t *testing.T) {
	require.False(t, Valid([]byte{1, 1}))
}

func TestPower(t *testing.T) {
	frame := []byte{0, 0, 0, 0, 0x12, 0x34, 2, 0}

	// adc 0x1234 = 4660, exponent 2: 240 * 4660 / (32768 / 4)
	require.InDelta(t, 136.5234375, Power(frame, 240), 1e-9)

	// A negative exponent divides: 32768 / 2^-1 = 65536.
	frame[6] = 0xFF
	require.InDelta(t, 17.0654296875, Power(frame, 240), 1e-9)
}

func TestInRange(t *testing.T) {
	require.False(t, InRange(0))
	require.False(t, InRange(5000))
	require.False(t, InRange(-3))
	require.True(t, InRange(424.6875))
}

func TestDeviceLookup(t *testing.T) {
	e2, err := NewDevice("e2")
	require.NoError(t, err)
	require.Equal(t, 8, e2.FrameBytes)
	require.Equal(t, 8, e2.MinHighBit)
	require.Equal(t, 240.0, e2.Voltage)

	elite, err := NewDevice("elite")
	require.NoError(t, err)
	require.Equal(t, 9, elite.FrameBytes)
	require.Equal(t, 9, elite.MinHighBit)
	require.Equal(t, 1.0, elite.Voltage)

	_, err = NewDevice("e3")
	require.Error(t, err)
}

func TestDeviceNames(t *testing.T) {
	require.Equal(t, []string{"e2", "elite"}, DeviceNames())
}

func TestMessage(t *testing.T) {
	dev, err := NewDevice("e2")
	require.NoError(t, err)

	frame := []byte{0, 0, 0, 0, 0x12, 0x34, 2, 0x48}
	msg := NewMessage(dev, frame, time.Date(2014, 3, 22, 17, 15, 4, 0, time.Local))

	require.Equal(t, "e2", msg.MsgType())
	require.Equal(t, []byte{0x48}, msg.Checksum())
	require.InDelta(t, 136.5234375, msg.Power, 1e-9)

	// date,time,power
	require.Len(t, msg.Record(), 3)
	require.Equal(t, "136.523438", msg.Record()[2])
	require.Equal(t, 2, strings.Count(msg.String(), ","))
}
