package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config collects every tunable: device variant, demodulation thresholds and
// output arrangements. Values come from defaults, then an optional YAML
// file, then explicit flags, in that order.
type Config struct {
	Device  string  `yaml:"device"`
	Voltage float64 `yaml:"voltage"`

	CenterSamples int `yaml:"center_samples"`
	PreambleCount int `yaml:"preamble_count"`
	MinLowBit     int `yaml:"min_low_bit"`
	MinHighBit    int `yaml:"min_high_bit"`
	RecalFailures int `yaml:"recal_failures"`

	LogFile    string `yaml:"log_file"`
	CRLF       bool   `yaml:"crlf"`
	FlushEvery int    `yaml:"flush_every"`

	Format string `yaml:"format"`
}

func resolveConfig() (Config, error) {
	cfg := Config{
		Device:        "e2",
		CenterSamples: 100,
		PreambleCount: 40,
		RecalFailures: 1,
		FlushEvery:    10,
		Format:        "plain",
	}

	if *configFilename != "" {
		if err := cfg.mergeFile(*configFilename); err != nil {
			return cfg, err
		}
	}
	cfg.mergeFlags()

	return cfg, nil
}

// mergeFile overlays values present in the YAML file, leaving absent keys at
// their defaults.
func (cfg *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading config")
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return errors.Wrap(err, "parsing config")
	}
	return nil
}

// mergeFlags overlays flags given explicitly on the command line (or via
// EnvOverride), which win over the file.
func (cfg *Config) mergeFlags() {
	set := pflag.CommandLine.Changed

	if set("device") {
		cfg.Device = *device
	}
	if set("voltage") {
		cfg.Voltage = *voltage
	}
	if set("centersamples") {
		cfg.CenterSamples = *centerSamples
	}
	if set("preamblecount") {
		cfg.PreambleCount = *preambleCount
	}
	if set("minlowbit") {
		cfg.MinLowBit = *minLowBit
	}
	if set("minhighbit") {
		cfg.MinHighBit = *minHighBit
	}
	if set("recalfailures") {
		cfg.RecalFailures = *recalFailures
	}
	if set("logfile") {
		cfg.LogFile = *logFilename
	}
	if set("crlf") {
		cfg.CRLF = *crlf
	}
	if set("flushevery") {
		cfg.FlushEvery = *flushEvery
	}
	if set("format") {
		cfg.Format = *format
	}
}
