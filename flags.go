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

package main

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/emetry/rtlefergy/csv"
	"github.com/emetry/rtlefergy/efergy"
)

var (
	device  = pflag.String("device", "e2", fmt.Sprintf("device variant to decode: %s", strings.Join(efergy.DeviceNames(), ", ")))
	voltage = pflag.Float64("voltage", 0, "reference line voltage, 0 for the device default")

	centerSamples = pflag.Int("centersamples", 100, "samples in a wave-center warm-up block")
	preambleCount = pflag.Int("preamblecount", 40, "minimum high-run length for a preamble")
	minLowBit     = pflag.Int("minlowbit", 0, "pulse widths at or below this are noise, 0 for the device default")
	minHighBit    = pflag.Int("minhighbit", 0, "pulse widths above this decode as logic 1, 0 for the device default")
	recalFailures = pflag.Int("recalfailures", 1, "consecutive checksum failures before recalibrating the wave center")

	sampleFilename = pflag.String("samplefile", "", "read samples from file instead of stdin")
	logFilename    = pflag.String("logfile", "", "append decoded readings to file")
	crlf           = pflag.Bool("crlf", false, "terminate log file lines with \\r\\n")
	flushEvery     = pflag.Int("flushevery", 10, "flush the log file every n readings")

	analyze   = pflag.Bool("analyze", false, "run in analysis mode")
	verbosity = pflag.Int("verbosity", 2, "analysis mode verbosity, 0 to 3")

	format         = pflag.String("format", "plain", "decoded message output format: plain, csv, json or xml")
	configFilename = pflag.String("config", "", "yaml configuration file, flags override its values")
	timeLimit      = pflag.Duration("duration", 0, "time to run for, 0 for infinite, ex. 1h5m10s")

	version = pflag.Bool("version", false, "display build date and commit hash")
)

var encoder Encoder

// EnvOverride applies RTLEFERGY_* environment variables to any flag not set
// on the command line.
func EnvOverride() {
	pflag.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}

		envName := "RTLEFERGY_" + strings.ToUpper(f.Name)
		flagValue := os.Getenv(envName)
		if flagValue == "" {
			return
		}

		if err := pflag.Set(f.Name, flagValue); err != nil {
			logrus.Printf(
				"Environment variable %q failed to override flag %q with value %q: %q\n",
				envName, f.Name, flagValue, err,
			)
		} else {
			logrus.Printf("Environment variable %q overrides flag %q with %q\n", envName, f.Name, flagValue)
		}
	})
}

// HandleFlags picks the output encoder.
func HandleFlags(cfg Config) {
	switch strings.ToLower(cfg.Format) {
	case "plain":
		encoder = PlainEncoder{}
	case "csv":
		encoder = csv.NewEncoder(os.Stdout)
	case "json":
		encoder = json.NewEncoder(os.Stdout)
	case "xml":
		encoder = xml.NewEncoder(os.Stdout)
	default:
		logrus.Fatalf("invalid format: %q", cfg.Format)
	}
}

// JSON and XML encoders both implement this interface so output formatting
// is uniform.
type Encoder interface {
	Encode(interface{}) error
}

type PlainEncoder struct{}

func (PlainEncoder) Encode(msg interface{}) (err error) {
	_, err = fmt.Println(msg)
	return
}
