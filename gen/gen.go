// Package gen builds synthetic Efergy sample streams for testing.
package gen

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/emetry/rtlefergy/efergy"
)

// Nominal amplitudes for synthetic on-off-keyed samples.
const (
	High int16 = 6000
	Low  int16 = -6000
)

// Default pulse geometry: a low gap before each bit, then a short high run
// for 0 or a long one for 1.
const (
	PreambleRun = 45
	GapRun      = 4
	ZeroRun     = 5
	OneRun      = 12
)

// NewRandFrame returns an n-byte frame with a random payload and a valid
// trailing checksum.
func NewRandFrame(n int) (frame []byte, err error) {
	frame = make([]byte, n)
	if _, err = rand.Read(frame[:n-1]); err != nil {
		return nil, err
	}
	frame[n-1] = efergy.Checksum(frame)
	return
}

// Warmup returns n zero samples, enough to calibrate the wave center to 0.
func Warmup(n int) []int16 {
	return make([]int16, n)
}

// AppendRun appends n samples at the given level.
func AppendRun(s []int16, level int16, n int) []int16 {
	for i := 0; i < n; i++ {
		s = append(s, level)
	}
	return s
}

// AppendFrame encodes a frame as an on-off-keyed pulse stream: a preamble
// high-run, then one low gap and one high run per bit MSB first, then a
// closing low gap so the final bit's trailing edge is seen.
func AppendFrame(s []int16, frame []byte) []int16 {
	s = AppendRun(s, High, PreambleRun)
	for _, b := range frame {
		for bit := 7; bit >= 0; bit-- {
			s = AppendRun(s, Low, GapRun)
			width := ZeroRun
			if b>>uint(bit)&1 == 1 {
				width = OneRun
			}
			s = AppendRun(s, High, width)
		}
	}
	s = AppendRun(s, Low, GapRun)
	return s
}

// Invert flips the polarity of a sample stream in place and returns it.
func Invert(s []int16) []int16 {
	for i, v := range s {
		s[i] = -v
	}
	return s
}

// Bytes packs samples little-endian for feeding a SampleReader.
func Bytes(s []int16) []byte {
	out := make([]byte, len(s)*2)
	for i, v := range s {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}
