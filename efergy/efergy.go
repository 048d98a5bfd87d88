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

// Package efergy implements the Efergy telemetry frame format: additive
// checksum validation, ADC to power conversion and decoded messages.
package efergy

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
)

// TimestampFormat is the strftime layout of decoded reading timestamps,
// matching the date,time prefix of output lines.
const TimestampFormat = "%x,%X"

// Readings outside (MinPower, MaxPower) watts are implausible for a
// household feed and treated as decode artifacts.
const (
	MinPower = 0
	MaxPower = 5000
)

// Checksum sums every byte of the frame but the last, modulo 256.
func Checksum(frame []byte) (sum byte) {
	for _, b := range frame[:len(frame)-1] {
		sum += b
	}
	return
}

// Valid reports whether the frame's trailing byte matches its checksum.
func Valid(frame []byte) bool {
	if len(frame) < 8 {
		return false
	}
	return Checksum(frame) == frame[len(frame)-1]
}

// Power converts a frame's payload to watts for the given reference
// voltage. Bytes 4 and 5 are a big-endian ADC reading, byte 6 a signed
// binary exponent.
func Power(frame []byte, voltage float64) float64 {
	adc := float64(uint16(frame[4])<<8 | uint16(frame[5]))
	exp := float64(int8(frame[6]))
	return voltage * adc / (32768 / math.Pow(2, exp))
}

// InRange reports whether a reading is plausible.
func InRange(watts float64) bool {
	return watts > MinPower && watts < MaxPower
}

// A Message is one validated power reading.
type Message struct {
	Device string    `xml:",attr"`
	Time   time.Time `xml:",attr"`
	Power  float64   `xml:",attr"`
	Frame  []byte    `xml:"-"`
}

func NewMessage(dev Device, frame []byte, at time.Time) Message {
	return Message{
		Device: dev.Name,
		Time:   at,
		Power:  Power(frame, dev.Voltage),
		Frame:  frame,
	}
}

func (m Message) MsgType() string {
	return m.Device
}

func (m Message) Checksum() []byte {
	return []byte{m.Frame[len(m.Frame)-1]}
}

// Timestamp renders the reading time as a locale-style "date,time" pair.
func (m Message) Timestamp() string {
	out, err := strftime.Format(TimestampFormat, m.Time)
	if err != nil {
		return m.Time.Format("01/02/06,15:04:05")
	}
	return out
}

func (m Message) Record() (r []string) {
	r = append(r, strings.SplitN(m.Timestamp(), ",", 2)...)
	r = append(r, strconv.FormatFloat(m.Power, 'f', 6, 64))
	return
}

// String is the primary output line: date,time,power.
func (m Message) String() string {
	return fmt.Sprintf("%s,%f", m.Timestamp(), m.Power)
}
