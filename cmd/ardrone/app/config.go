// config.go

// Copyright (C) 2018  Steve Merrony

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package app

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/SMerrony/ardrone"
	"github.com/SMerrony/ardrone/internal/logging"
)

// Config is the ardrone tool's configuration file.
type Config struct {
	Drone     ardrone.Config  `yaml:"drone"`
	Log       logging.Config  `yaml:"log"`
	FlightLog FlightLogConfig `yaml:"flightLog"`
	Relay     RelayConfig     `yaml:"relay"`
}

// FlightLogConfig enables the SQLite flight log when Path is set.
type FlightLogConfig struct {
	Path string `yaml:"path"`
}

// RelayConfig enables the WebSocket telemetry relay when ListenAddr is set.
type RelayConfig struct {
	ListenAddr string `yaml:"listenAddr"`
}

// DefaultConfig talks to a stock drone and logs to stderr.
func DefaultConfig() *Config {
	return &Config{
		Drone: ardrone.DefaultConfig(),
		Log:   logging.Config{Level: "info", Format: "console", MaxSizeMB: 10, MaxBackups: 3},
	}
}

// LoadConfig reads path over the defaults. An empty path means defaults only.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.Drone.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
