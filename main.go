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
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/emetry/rtlefergy/analysis"
	"github.com/emetry/rtlefergy/decode"
	"github.com/emetry/rtlefergy/efergy"
)

var rcvr Receiver

type Receiver struct {
	cfg Config
	dev efergy.Device

	d   *decode.Decoder
	src *decode.SampleReader

	input *os.File
	lw    *LogWriter
}

func (rcvr *Receiver) NewReceiver(cfg Config) {
	rcvr.cfg = cfg

	dev, err := efergy.NewDevice(cfg.Device)
	if err != nil {
		logrus.Fatal(err)
	}

	// Explicit threshold and voltage settings win over the variant's
	// defaults.
	if cfg.Voltage != 0 {
		dev.Voltage = cfg.Voltage
	}
	if cfg.MinLowBit != 0 {
		dev.MinLowBit = cfg.MinLowBit
	}
	if cfg.MinHighBit != 0 {
		dev.MinHighBit = cfg.MinHighBit
	}
	rcvr.dev = dev

	rcvr.input = os.Stdin
	if *sampleFilename != "" {
		rcvr.input, err = os.Open(*sampleFilename)
		if err != nil {
			logrus.WithError(err).Fatal("opening sample file")
		}
	}
	rcvr.src = decode.NewSampleReader(rcvr.input)

	rcvr.d = decode.NewDecoder(decode.Config{
		CenterSamples: cfg.CenterSamples,
		PreambleCount: cfg.PreambleCount,
		MinLowBit:     dev.MinLowBit,
		MinHighBit:    dev.MinHighBit,
		FrameBytes:    dev.FrameBytes,
		RecalFailures: cfg.RecalFailures,
	})
	rcvr.d.Log()

	if cfg.LogFile != "" {
		rcvr.lw, err = NewLogWriter(cfg.LogFile, cfg.CRLF, cfg.FlushEvery)
		if err != nil {
			// The decoder recovers from everything else, but a log
			// destination that can't be opened is fatal.
			logrus.WithError(err).Fatal("opening log file")
		}
	}
}

func (rcvr *Receiver) Close() {
	if rcvr.lw != nil {
		if err := rcvr.lw.Close(); err != nil {
			logrus.WithError(err).Error("closing log file")
		}
	}
	if rcvr.input != os.Stdin {
		rcvr.input.Close()
	}
}

func (rcvr *Receiver) Run() {
	// Setup signal channel for interruption.
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt)

	// Setup time limit channel.
	tLimit := make(<-chan time.Time, 1)
	if *timeLimit != 0 {
		tLimit = time.After(*timeLimit)
	}

	start := time.Now()
	done := make(chan error, 1)

	go func() {
		if *analyze {
			fmt.Printf("\nEfergy Power Monitor Decoder - Running in analysis mode using verbosity level %d\n\n", *verbosity)
			a := analysis.NewAnalyzer(rcvr.d.Cfg, rcvr.dev, *verbosity, os.Stdout)
			done <- a.Run(rcvr.src)
			return
		}
		done <- rcvr.d.Run(rcvr.src, rcvr.handleFrame)
	}()

	select {
	case <-sigint:
		return
	case <-tLimit:
		logrus.Println("Time Limit Reached:", time.Since(start))
		return
	case err := <-done:
		if err != nil {
			logrus.WithError(err).Fatal("reading samples")
		}
		logrus.Println("stream exhausted")
	}
}

// handleFrame validates one assembled frame and emits the decoded reading.
// A checksum mismatch feeds the recalibration policy instead.
func (rcvr *Receiver) handleFrame(frame []byte) {
	if !efergy.Valid(frame) {
		logrus.WithField("frame", fmt.Sprintf("% 02x", frame)).
			Warn("checksum mismatch, try -analyze to inspect sample data")
		if rcvr.d.FrameRejected() {
			logrus.Info("recalibrating wave center")
		}
		return
	}
	rcvr.d.FrameAccepted()

	msg := efergy.NewMessage(rcvr.dev, frame, time.Now())
	if !efergy.InRange(msg.Power) {
		logrus.WithField("watts", msg.Power).Debug("reading out of range")
		return
	}

	if err := encoder.Encode(msg); err != nil {
		logrus.WithError(err).Fatal("encoding message")
	}

	if rcvr.lw != nil {
		if err := rcvr.lw.WriteLine(msg.String()); err != nil {
			logrus.WithError(err).Fatal("writing log file")
		}
	}
}

func init() {
	logrus.SetOutput(os.Stderr)
}

var (
	buildTag   = "dev"     // v#.#.#
	buildDate  = "unknown" // date -u '+%Y-%m-%d'
	commitHash = "unknown" // git rev-parse HEAD
)

func main() {
	pflag.Parse()
	EnvOverride()

	if *version {
		fmt.Println("Build Tag: ", buildTag)
		fmt.Println("Build Date:", buildDate)
		fmt.Println("Commit:    ", commitHash)
		os.Exit(0)
	}

	cfg, err := resolveConfig()
	if err != nil {
		logrus.Fatal(err)
	}
	HandleFlags(cfg)

	rcvr.NewReceiver(cfg)
	defer rcvr.Close()

	rcvr.Run()
}
