//
// Copyright 2017 Rackspace
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS-IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package config declares the data structures used for all execution entry points
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	ErrorInvalidAlpha    = errors.New("alpha_pct must be within 1..100")
	ErrorInvalidInterval = errors.New("intervals and windows must be positive")
	ErrorInvalidCapacity = errors.New("registry capacities must be positive")
)

// Config carries every tunable of the agent. All values have working
// defaults; a config file only needs to list overrides.
type Config struct {
	// Prediction
	AlphaPct     int
	CPUThreshold int
	MemThreshold int
	IOThreshold  int

	// Cadence
	SampleInterval time.Duration
	ReportInterval time.Duration

	// Response
	Cooldown          time.Duration
	RestorationWindow time.Duration

	// Capacities
	MaxTracked  int
	MaxAdjusted int

	// ReportLogPath, when set, receives every spike report as a JSON line.
	ReportLogPath string

	// Agent Info
	Guid    string
	DryRun  bool
	Verbose bool
}

type configEntry struct {
	Name     string
	ValuePtr interface{}
	// Scale converts integer config values into ValuePtr durations,
	// e.g. time.Millisecond for a *_ms key.
	Scale time.Duration
	Tweak func()
}

func NewConfig(guid string) *Config {
	cfg := &Config{}
	cfg.Guid = guid
	cfg.AlphaPct = DefaultAlphaPct
	cfg.CPUThreshold = DefaultCPUThreshold
	cfg.MemThreshold = DefaultMemThreshold
	cfg.IOThreshold = DefaultIOThreshold
	cfg.SampleInterval = DefaultSampleInterval
	cfg.ReportInterval = DefaultReportInterval
	cfg.Cooldown = DefaultCooldown
	cfg.RestorationWindow = DefaultRestorationWindow
	cfg.MaxTracked = DefaultMaxTracked
	cfg.MaxAdjusted = DefaultMaxAdjusted
	return cfg
}

// LoadFromFile populates this Config with the values defined in that file.
// Lines are "key value" pairs; # starts a comment; unknown keys are ignored
// so that newer config files keep working with older agents.
func (cfg *Config) LoadFromFile(filepath string) error {
	f, err := os.Open(filepath)
	if err != nil {
		return err
	}
	defer f.Close()

	configEntries := cfg.DefineConfigEntries()

	regexComment, _ := regexp.Compile("^#")
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()

		if regexComment.MatchString(line) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if err := cfg.ParseFields(configEntries, fields); err != nil {
			return err
		}
	}

	log.WithField("file", filepath).Info("Loaded configuration")
	return nil
}

func (cfg *Config) DefineConfigEntries() []configEntry {
	return []configEntry{
		{
			Name:     "alpha_pct",
			ValuePtr: &cfg.AlphaPct,
		},
		{
			Name:     "cpu_threshold",
			ValuePtr: &cfg.CPUThreshold,
		},
		{
			Name:     "mem_threshold",
			ValuePtr: &cfg.MemThreshold,
		},
		{
			Name:     "io_threshold",
			ValuePtr: &cfg.IOThreshold,
		},
		{
			Name:     "sample_interval_ms",
			ValuePtr: &cfg.SampleInterval,
			Scale:    time.Millisecond,
		},
		{
			Name:     "report_interval_ms",
			ValuePtr: &cfg.ReportInterval,
			Scale:    time.Millisecond,
		},
		{
			Name:     "cooldown_secs",
			ValuePtr: &cfg.Cooldown,
			Scale:    time.Second,
		},
		{
			Name:     "restoration_window_secs",
			ValuePtr: &cfg.RestorationWindow,
			Scale:    time.Second,
		},
		{
			Name:     "max_tracked",
			ValuePtr: &cfg.MaxTracked,
		},
		{
			Name:     "max_adjusted",
			ValuePtr: &cfg.MaxAdjusted,
		},
		{
			Name:     "report_log",
			ValuePtr: &cfg.ReportLogPath,
		},
	}
}

func (cfg *Config) ParseFields(configEntries []configEntry, fields []string) error {
	if len(fields) < 2 {
		return fmt.Errorf("Invalid fields length: %v", fields)
	}

	for _, entry := range configEntries {
		if entry.Name != fields[0] {
			continue
		}

		switch valuePtr := entry.ValuePtr.(type) {
		case *string:
			*valuePtr = fields[1]
		case *int:
			v, err := strconv.Atoi(fields[1])
			if err != nil {
				return fmt.Errorf("Invalid integer for %s : %v", entry.Name, err)
			}
			*valuePtr = v
		case *time.Duration:
			v, err := strconv.Atoi(fields[1])
			if err != nil {
				return fmt.Errorf("Invalid integer for %s : %v", entry.Name, err)
			}
			*valuePtr = time.Duration(v) * entry.Scale
		default:
			return fmt.Errorf("Unsupported config entry type for %s", entry.Name)
		}

		if entry.Tweak != nil {
			entry.Tweak()
		}
	}

	return nil
}

func (cfg *Config) Validate() error {
	if cfg.AlphaPct <= 0 || cfg.AlphaPct > 100 {
		return ErrorInvalidAlpha
	}
	if cfg.SampleInterval <= 0 || cfg.ReportInterval <= 0 ||
		cfg.Cooldown <= 0 || cfg.RestorationWindow <= 0 {
		return ErrorInvalidInterval
	}
	if cfg.MaxTracked <= 0 || cfg.MaxAdjusted <= 0 {
		return ErrorInvalidCapacity
	}
	return nil
}
