// RTLEFERGY - A receiver for Efergy energy monitors using rtl_fm.
// Copyright (C) 2014 The rtlefergy Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package decode

import (
	"github.com/sirupsen/logrus"
)

// Config specifies the demodulation parameters of a transmitter variant.
type Config struct {
	// CenterSamples is the number of samples averaged to compute the wave
	// center during a calibration warm-up.
	CenterSamples int

	// PreambleCount is the high-run length a pulse must exceed to qualify
	// as a preamble.
	PreambleCount int

	// MinLowBit and MinHighBit classify completed high-runs: widths at or
	// below MinLowBit are noise, widths above MinHighBit are logic 1, the
	// rest are logic 0.
	MinLowBit  int
	MinHighBit int

	// FrameBytes is the frame length including the trailing checksum byte.
	FrameBytes int

	// RecalFailures is the number of consecutive checksum failures
	// tolerated before the wave center is recomputed. 1 recalibrates on
	// every failure.
	RecalFailures int
}

// FrameBits is the number of data bits in a full frame, not counting the
// preamble.
func (cfg Config) FrameBits() int {
	return cfg.FrameBytes * 8
}

// ClassifyPulse maps a completed high-run width to a bit value. Runs of
// MinLowBit samples or fewer are noise and emit no bit.
func (cfg Config) ClassifyPulse(width int) (bit byte, ok bool) {
	if width <= cfg.MinLowBit {
		return 0, false
	}
	if width > cfg.MinHighBit {
		return 1, true
	}
	return 0, true
}

// Decoder is the streaming demodulation state machine. It owns the wave
// center, the pulse counter and all frame-assembly state, one instance per
// sample stream.
type Decoder struct {
	Cfg Config

	center     int
	centerSum  int64
	centerLeft int

	prev     int
	run      int
	preamble bool
	frame    bool

	bits   int
	bitPos int
	acc    byte
	buf    []byte

	failures int
}

// NewDecoder returns a decoder for the given configuration. The decoder
// starts in a calibration warm-up: the first CenterSamples samples fed to it
// establish the wave center before any framing begins.
func NewDecoder(cfg Config) *Decoder {
	if cfg.RecalFailures < 1 {
		cfg.RecalFailures = 1
	}

	d := &Decoder{Cfg: cfg}
	d.buf = make([]byte, 0, cfg.FrameBytes)
	d.centerLeft = cfg.CenterSamples

	return d
}

// Center returns the current wave center.
func (d *Decoder) Center() int {
	return d.center
}

// Calibrating reports whether the decoder is inside a warm-up block.
func (d *Decoder) Calibrating() bool {
	return d.centerLeft > 0
}

// Recalibrate discards any in-flight frame and recomputes the wave center
// from the next CenterSamples samples.
func (d *Decoder) Recalibrate() {
	d.centerLeft = d.Cfg.CenterSamples
	d.centerSum = 0
	d.resetFraming()
}

func (d *Decoder) resetFraming() {
	d.run = 0
	d.preamble = false
	d.frame = false
	d.bits = 0
	d.bitPos = 0
	d.acc = 0
	d.buf = d.buf[:0]
}

// Feed advances the state machine by one sample. When the sample completes a
// frame, the frame is returned with ok set. Feed never fails: samples during
// a warm-up are absorbed into the center computation and everything else is
// classification.
func (d *Decoder) Feed(sample int16) (frame []byte, ok bool) {
	cur := int(sample)

	if d.centerLeft > 0 {
		d.centerLeft--
		d.centerSum += int64(cur)
		if d.centerLeft == 0 {
			d.center = int(d.centerSum / int64(d.Cfg.CenterSamples))
			d.resetFraming()
		}
		d.prev = cur
		return nil, false
	}

	switch {
	case cur > d.center && d.prev < d.center:
		// Positive edge, a new high-run begins with this sample.
		d.run = 1
	case cur > d.center && d.prev > d.center:
		d.run++
		if d.run > d.Cfg.PreambleCount {
			d.preamble = true
		}
	case cur < d.center && d.prev > d.center:
		// Negative edge, the completed high-run is the pulse width.
		if d.frame {
			if bit, emit := d.Cfg.ClassifyPulse(d.run); emit {
				frame, ok = d.push(bit)
			}
		}
		d.run = 0
	default:
		d.run = 0
	}

	// The preamble is confirmed only once its long high-run ends. Its
	// trailing low edge is also the first data bit boundary, so framing
	// starts here rather than at preamble detection.
	if d.run == 0 && d.preamble {
		d.preamble = false
		d.frame = true
	}

	d.prev = cur
	return frame, ok
}

// push shifts one bit into the frame under assembly, MSB first.
func (d *Decoder) push(bit byte) (frame []byte, ok bool) {
	d.bits++
	d.bitPos++
	d.acc = d.acc<<1 | bit

	if d.bitPos > 7 {
		d.buf = append(d.buf, d.acc)
		d.acc = 0
		d.bitPos = 0

		if len(d.buf) == d.Cfg.FrameBytes {
			frame = make([]byte, len(d.buf))
			copy(frame, d.buf)
			d.buf = d.buf[:0]
			ok = true
		}
	}

	// Bound on a stuck decoder: without it a noisy stream that never
	// yields a terminating edge accumulates bits forever.
	if d.bits > d.Cfg.FrameBits() {
		d.resetFraming()
	}

	return frame, ok
}

// FrameRejected records a checksum failure. Persistent failures are treated
// as evidence the wave center has drifted: after RecalFailures consecutive
// rejections the decoder recalibrates. Reports whether recalibration was
// triggered.
func (d *Decoder) FrameRejected() bool {
	d.failures++
	if d.failures < d.Cfg.RecalFailures {
		return false
	}
	d.failures = 0
	d.Recalibrate()
	return true
}

// FrameAccepted clears the consecutive-failure count.
func (d *Decoder) FrameAccepted() {
	d.failures = 0
}

// Run pulls samples from src one at a time until the stream is exhausted,
// invoking fn for every assembled frame. Frame validation is the caller's
// concern.
func (d *Decoder) Run(src *SampleReader, fn func(frame []byte)) error {
	for {
		s, err := src.Next()
		if err != nil {
			return eofOK(err)
		}
		if frame, ok := d.Feed(s); ok {
			fn(frame)
		}
	}
}

// Log writes the decoder configuration to the log.
func (d *Decoder) Log() {
	logrus.WithFields(logrus.Fields{
		"CenterSamples": d.Cfg.CenterSamples,
		"PreambleCount": d.Cfg.PreambleCount,
		"MinLowBit":     d.Cfg.MinLowBit,
		"MinHighBit":    d.Cfg.MinHighBit,
		"FrameBytes":    d.Cfg.FrameBytes,
		"RecalFailures": d.Cfg.RecalFailures,
	}).Info("decoder")
}
