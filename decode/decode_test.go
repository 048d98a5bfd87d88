package decode_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/emetry/rtlefergy/decode"
	"github.com/emetry/rtlefergy/efergy"
	"github.com/emetry/rtlefergy/gen"
)

func e2Config() decode.Config {
	return decode.Config{
		CenterSamples: 100,
		PreambleCount: 40,
		MinLowBit:     3,
		MinHighBit:    8,
		FrameBytes:    8,
		RecalFailures: 1,
	}
}

func feed(d *decode.Decoder, samples []int16) (frames [][]byte) {
	for _, s := range samples {
		if frame, ok := d.Feed(s); ok {
			frames = append(frames, frame)
		}
	}
	return
}

func TestClassifyPulse(t *testing.T) {
	cfg := e2Config()

	cases := []struct {
		width int
		bit   byte
		ok    bool
	}{
		{1, 0, false},
		{3, 0, false}, // exactly MinLowBit is noise
		{4, 0, true},  // MinLowBit+1 is a zero
		{8, 0, true},  // exactly MinHighBit is still a zero
		{9, 1, true},  // MinHighBit+1 is a one
		{45, 1, true},
	}

	for _, c := range cases {
		bit, ok := cfg.ClassifyPulse(c.width)
		if bit != c.bit || ok != c.ok {
			t.Fatalf("width %d: got (%d, %v), want (%d, %v)", c.width, bit, ok, c.bit, c.ok)
		}
	}
}

func TestCalibration(t *testing.T) {
	d := decode.NewDecoder(e2Config())
	require.True(t, d.Calibrating())

	block := make([]int16, 100)
	for i := range block {
		block[i] = 1000
	}
	feed(d, block)

	require.False(t, d.Calibrating())
	require.Equal(t, 1000, d.Center())
}

func TestCalibrationIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		block := rapid.SliceOfN(rapid.Int16(), 100, 100).Draw(t, "block")

		d := decode.NewDecoder(e2Config())
		feed(d, block)
		first := d.Center()

		d.Recalibrate()
		feed(d, block)

		if d.Center() != first {
			t.Fatalf("centers differ: %d != %d", first, d.Center())
		}
	})
}

func TestDecodeValidFrame(t *testing.T) {
	payload := []byte{0x09, 0xF0, 0x24, 0x61, 0x12, 0x34, 0x02}
	frame := append(payload, 0)
	frame[7] = efergy.Checksum(frame)

	s := gen.Warmup(100)
	s = gen.AppendFrame(s, frame)

	d := decode.NewDecoder(e2Config())
	frames := feed(d, s)

	require.Len(t, frames, 1)
	require.Equal(t, frame, frames[0])
	require.True(t, efergy.Valid(frames[0]))

	// 0x1234 = 4660, exponent 2: 240 * 4660 / (32768 / 4)
	require.InDelta(t, 136.5234375, efergy.Power(frames[0], 240), 1e-9)
}

func TestRunPullsUntilEOF(t *testing.T) {
	frame, err := gen.NewRandFrame(8)
	require.NoError(t, err)

	s := gen.Warmup(100)
	s = gen.AppendFrame(s, frame)
	src := decode.NewSampleReader(bytes.NewReader(gen.Bytes(s)))

	var frames [][]byte
	d := decode.NewDecoder(e2Config())
	err = d.Run(src, func(f []byte) { frames = append(frames, f) })

	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.Equal(t, frame, frames[0])
}

func TestChecksumFailureRecalibrates(t *testing.T) {
	frame, err := gen.NewRandFrame(8)
	require.NoError(t, err)
	frame[7] ^= 0xFF // corrupt the checksum

	s := gen.Warmup(100)
	s = gen.AppendFrame(s, frame)

	d := decode.NewDecoder(e2Config())
	frames := feed(d, s)

	require.Len(t, frames, 1)
	require.False(t, efergy.Valid(frames[0]))

	require.True(t, d.FrameRejected())
	require.True(t, d.Calibrating())

	// The next warm-up block installs a fresh center.
	block := make([]int16, 100)
	for i := range block {
		block[i] = 500
	}
	feed(d, block)
	require.Equal(t, 500, d.Center())
}

func TestRecalFailuresPolicy(t *testing.T) {
	cfg := e2Config()
	cfg.RecalFailures = 3
	d := decode.NewDecoder(cfg)
	feed(d, gen.Warmup(100))

	require.False(t, d.FrameRejected())
	require.False(t, d.FrameRejected())
	require.True(t, d.FrameRejected())
	require.True(t, d.Calibrating())
}

func TestFrameBitCountBoundsAssembly(t *testing.T) {
	frame, err := gen.NewRandFrame(8)
	require.NoError(t, err)

	s := gen.Warmup(100)
	s = gen.AppendFrame(s, frame)

	// 64 more qualifying pulses with no preamble between them. The frame
	// bit bound resets assembly, so none of these may surface as a frame.
	for i := 0; i < 64; i++ {
		s = gen.AppendRun(s, gen.High, gen.ZeroRun)
		s = gen.AppendRun(s, gen.Low, gen.GapRun)
	}

	d := decode.NewDecoder(e2Config())
	frames := feed(d, s)

	require.Len(t, frames, 1)
	require.Equal(t, frame, frames[0])
}

func TestNoPreambleNoFrame(t *testing.T) {
	s := gen.Warmup(100)
	for i := 0; i < 128; i++ {
		s = gen.AppendRun(s, gen.High, gen.OneRun)
		s = gen.AppendRun(s, gen.Low, gen.GapRun)
	}

	d := decode.NewDecoder(e2Config())
	require.Empty(t, feed(d, s))
}

func TestSampleReader(t *testing.T) {
	src := decode.NewSampleReader(bytes.NewReader([]byte{0x34, 0x12, 0xFF, 0xFF, 0x01}))

	s, err := src.Next()
	require.NoError(t, err)
	require.Equal(t, int16(0x1234), s)

	s, err = src.Next()
	require.NoError(t, err)
	require.Equal(t, int16(-1), s)

	_, err = src.Next()
	require.Equal(t, io.ErrUnexpectedEOF, err)
}
