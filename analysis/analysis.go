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

// Package analysis implements the diagnostic decode mode: it captures raw
// samples around a detected preamble and reports pulse statistics useful for
// tuning frequency and thresholds, then attempts a best-effort decode from
// both signal polarities.
package analysis

import (
	"fmt"
	"io"
	"time"

	"github.com/lestrrat-go/strftime"
	"gonum.org/v1/gonum/stat"

	"github.com/emetry/rtlefergy/decode"
	"github.com/emetry/rtlefergy/efergy"
)

// SamplesPerBit is an empirical estimate of how many rtl_fm samples encode
// one data bit, used to size the capture buffer with some padding.
const SamplesPerBit = 19

// Preamble thresholds. Unlike the primary loop's single-polarity test, a
// qualifying positive run and a qualifying negative run must be adjacent,
// which rejects narrowband noise.
const (
	MinPositivePreamble = 40
	MinNegativePreamble = 40
)

// An Analyzer is the diagnostic pipeline. It tracks its own wave center,
// carried forward from one captured frame to the next.
type Analyzer struct {
	cfg       decode.Config
	dev       efergy.Device
	verbosity int

	center int
	buf    []int16

	out io.Writer
}

// NewAnalyzer returns an analyzer for the given device at the given
// verbosity (0 to 3).
func NewAnalyzer(cfg decode.Config, dev efergy.Device, verbosity int, out io.Writer) *Analyzer {
	return &Analyzer{
		cfg:       cfg,
		dev:       dev,
		verbosity: verbosity,
		buf:       make([]int16, 0, cfg.FrameBits()*SamplesPerBit),
		out:       out,
	}
}

// Center returns the analyzer's current wave center.
func (a *Analyzer) Center() int {
	return a.center
}

// Run repeatedly seeks a preamble, captures a frame's worth of raw samples
// and reports on them, until the stream is exhausted.
func (a *Analyzer) Run(src *decode.SampleReader) error {
	for {
		if err := a.seekPreamble(src); err != nil {
			return eofOK(err)
		}
		if err := a.capture(src); err != nil {
			return eofOK(err)
		}
	}
}

func eofOK(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil
	}
	return err
}

// seekPreamble consumes samples until a back-to-back pair of qualifying
// positive and negative runs has been seen, in either order.
func (a *Analyzer) seekPreamble(src *decode.SampleReader) error {
	var posRun, negRun int
	prev := 0

	for {
		s, err := src.Next()
		if err != nil {
			return err
		}
		cur := int(s)

		switch {
		case prev >= a.center && cur >= a.center:
			posRun++
		case prev < a.center && cur < a.center:
			negRun++
		case prev >= a.center && cur < a.center:
			if posRun > MinPositivePreamble && negRun > MinNegativePreamble {
				return nil
			}
			negRun = 0
		case prev < a.center && cur >= a.center:
			if posRun > MinPositivePreamble && negRun > MinNegativePreamble {
				return nil
			}
			posRun = 0
		}

		prev = cur
	}
}

// capture stores raw samples until the buffer is full, then processes it.
// Samples beyond capacity would be dropped, but processing happens exactly
// at capacity so in practice nothing is lost silently.
func (a *Analyzer) capture(src *decode.SampleReader) error {
	a.buf = a.buf[:0]

	for {
		s, err := src.Next()
		if err != nil {
			return err
		}

		if len(a.buf) < cap(a.buf) {
			a.buf = append(a.buf, s)
		}
		if len(a.buf) == cap(a.buf) {
			a.analyze()
			return nil
		}
	}
}

func (a *Analyzer) analyze() {
	// Balance check: best case is avgNeg + avgPos = 0. If the magnitudes
	// differ the tuned frequency is off center.
	var pos, neg []float64
	for _, s := range a.buf {
		if s >= 0 {
			pos = append(pos, float64(s))
		} else {
			neg = append(neg, float64(s))
		}
	}

	var avgPos, avgNeg float64
	if len(pos) > 0 {
		avgPos = stat.Mean(pos, nil)
	}
	if len(neg) > 0 {
		avgNeg = stat.Mean(neg, nil)
	}
	center := avgNeg + (avgPos-avgNeg)/2

	stamp, _ := strftime.Format(efergy.TimestampFormat, time.Now())
	if a.verbosity > 0 {
		fmt.Fprintf(a.out, "\nAnalysis of sample data for frame received on %s\n", stamp)
		fmt.Fprintf(a.out, "     Number of Samples: %6d\n", len(a.buf))
		fmt.Fprintf(a.out, "    Avg. Sample Values: %6.0f (negative)   %6.0f (positive)\n", avgNeg, avgPos)
		fmt.Fprintf(a.out, "           Wave Center: %6.0f (this frame) %6d (last frame)\n", center, a.center)
	} else {
		fmt.Fprintf(a.out, "%s ", stamp)
	}

	// The recalibrated center is carried forward to the next frame.
	a.center = int(center)

	if a.verbosity == 3 {
		a.dumpSamples()
	}

	pulses, spaces := a.pulseRuns()

	// On some receiver and frequency combinations the polarities come out
	// swapped. The sign of the first samples after the preamble tells the
	// two cases apart.
	if int(a.buf[2]) < a.center {
		a.report("Decode from positive pulses: ", a.decodeRuns(pulses))
	} else {
		a.report("Decode from negative pulses: ", a.decodeRuns(spaces))
	}

	if a.verbosity > 0 {
		fmt.Fprintln(a.out)
	}
}

// dumpSamples prints the centered raw samples, sixteen per line.
func (a *Analyzer) dumpSamples() {
	fmt.Fprintf(a.out, "\nShowing raw sample data received between start of frame and end of frame\n")
	wrap := 0
	for _, s := range a.buf {
		fmt.Fprintf(a.out, "%6d ", int(s)-a.center)
		wrap++
		if wrap >= 16 {
			fmt.Fprintln(a.out)
			wrap = 0
		}
	}
	fmt.Fprint(a.out, "\n\n")
}

// pulseRuns builds the two run-length histograms: consecutive samples above
// center (P) and below center (N). At verbosity 2 and up the interleaved
// pulse stream is printed as it is collected.
func (a *Analyzer) pulseRuns() (pulses, spaces []int) {
	details := a.verbosity >= 2
	if details {
		fmt.Fprintf(a.out, "\nPulse stream for this frame (P-Consecutive samples > center, N-Consecutive samples < center)\n")
	}

	var pulseRun, spaceRun, wrap int
	for _, s := range a.buf {
		centered := int(s) - a.center
		if centered < 0 {
			if pulseRun > 0 {
				pulses = append(pulses, pulseRun)
				if details {
					fmt.Fprintf(a.out, "%2dP ", pulseRun)
				}
				wrap++
			}
			pulseRun = 0
			spaceRun++
		} else {
			if spaceRun > 0 {
				spaces = append(spaces, spaceRun)
				if details {
					fmt.Fprintf(a.out, "%2dN ", spaceRun)
				}
				wrap++
			}
			spaceRun = 0
			pulseRun++
		}

		if wrap >= 16 {
			if details {
				fmt.Fprintln(a.out)
			}
			wrap = 0
		}
	}

	if details {
		fmt.Fprint(a.out, "\n\n")
	}
	return pulses, spaces
}

// decodeRuns assembles bytes from one run-length histogram using the same
// pulse classification as the primary loop.
func (a *Analyzer) decodeRuns(runs []int) []byte {
	frame := make([]byte, 0, a.cfg.FrameBytes)

	var acc byte
	var bitPos int
	for _, width := range runs {
		bit, ok := a.cfg.ClassifyPulse(width)
		if !ok {
			continue
		}

		acc = acc<<1 | bit
		bitPos++
		if bitPos > 7 {
			frame = append(frame, acc)
			acc = 0
			bitPos = 0
			if len(frame) == a.cfg.FrameBytes {
				break
			}
		}
	}

	return frame
}

// report prints the decoded byte sequence with its computed checksum byte
// (displayed, not enforced) and a best-effort power estimate.
func (a *Analyzer) report(label string, frame []byte) {
	fmt.Fprint(a.out, label)
	for _, b := range frame {
		fmt.Fprintf(a.out, "%02x ", b)
	}

	var chk byte
	if len(frame) > 1 {
		chk = efergy.Checksum(frame)
	}
	fmt.Fprintf(a.out, "chk: %02x ", chk)

	var watts float64
	if len(frame) > 6 {
		watts = efergy.Power(frame, a.dev.Voltage)
	}
	if efergy.InRange(watts) {
		fmt.Fprintf(a.out, " kW: %4.3f\n", watts)
	} else {
		fmt.Fprint(a.out, " kW: <out of range>\n")
	}
}
