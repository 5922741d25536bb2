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

package ardrone

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Well-known AR.Drone addresses and ports.
const (
	DefaultDroneAddr   = "192.168.1.1"
	DefaultNavDataPort = 5554
	DefaultVideoPort   = 5555
	DefaultCommandPort = 5559
	DefaultControlPort = 5559
)

// NavDataPolicy decides what happens to telemetry decoded while the session is not READY.
type NavDataPolicy string

// NavData policies...
const (
	// DropUntilReady discards telemetry which arrives outside READY.
	DropUntilReady NavDataPolicy = "drop"
	// BufferUntilReady keeps up to PendingLimit records decoded while BOOTSTRAP or WATCHDOG
	// and delivers them, oldest first, when the session next becomes READY.
	BufferUntilReady NavDataPolicy = "buffer"
)

// WatchdogConfig controls the liveness monitor. A zero Timeout disables it.
type WatchdogConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	Interval time.Duration `yaml:"interval"`
}

// Config holds everything a Drone needs to open a session.
type Config struct {
	DroneAddr        string         `yaml:"droneAddr"`
	NavDataPort      int            `yaml:"navDataPort"`
	VideoPort        int            `yaml:"videoPort"`
	CommandPort      int            `yaml:"commandPort"`
	ControlPort      int            `yaml:"controlPort"`
	OpenVideoSocket  bool           `yaml:"openVideoSocket"`
	ControlChannel   bool           `yaml:"controlChannel"` // open the reserved TCP control socket
	NavDataQueueSize int            `yaml:"navDataQueueSize"`
	NavDataPolicy    NavDataPolicy  `yaml:"navDataPolicy"`
	PendingLimit     int            `yaml:"pendingLimit"`
	ReadBufferSize   int            `yaml:"readBufferSize"`
	DrainTimeout     time.Duration  `yaml:"drainTimeout"` // how long Disconnect() lets the sender loop flush
	StopTimeout      time.Duration  `yaml:"stopTimeout"`  // how long Disconnect() waits for the receiver loop
	DialTimeout      time.Duration  `yaml:"dialTimeout"`
	Watchdog         WatchdogConfig `yaml:"watchdog"`
}

// DefaultConfig returns the settings for a stock drone on its own access point.
func DefaultConfig() Config {
	return Config{
		DroneAddr:        DefaultDroneAddr,
		NavDataPort:      DefaultNavDataPort,
		VideoPort:        DefaultVideoPort,
		CommandPort:      DefaultCommandPort,
		ControlPort:      DefaultControlPort,
		OpenVideoSocket:  true,
		NavDataQueueSize: 256,
		NavDataPolicy:    DropUntilReady,
		PendingLimit:     64,
		ReadBufferSize:   4096,
		DrainTimeout:     250 * time.Millisecond,
		StopTimeout:      time.Second,
		DialTimeout:      3 * time.Second,
		Watchdog: WatchdogConfig{
			Interval: 100 * time.Millisecond,
		},
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("ardrone: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("ardrone: parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that the settings are usable.
func (c Config) Validate() error {
	if net.ParseIP(c.DroneAddr) == nil {
		if _, err := net.ResolveIPAddr("ip", c.DroneAddr); err != nil {
			return fmt.Errorf("ardrone: invalid drone address %q: %w", c.DroneAddr, err)
		}
	}
	for name, port := range map[string]int{
		"navDataPort": c.NavDataPort,
		"videoPort":   c.VideoPort,
		"commandPort": c.CommandPort,
		"controlPort": c.ControlPort,
	} {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("ardrone: %s %d out of range", name, port)
		}
	}
	switch c.NavDataPolicy {
	case DropUntilReady, BufferUntilReady:
	default:
		return fmt.Errorf("ardrone: unknown navDataPolicy %q", c.NavDataPolicy)
	}
	if c.NavDataQueueSize < 1 {
		return errors.New("ardrone: navDataQueueSize must be at least 1")
	}
	if c.NavDataPolicy == BufferUntilReady && c.PendingLimit < 1 {
		return errors.New("ardrone: pendingLimit must be at least 1 when buffering")
	}
	if c.ReadBufferSize < 16 {
		return errors.New("ardrone: readBufferSize too small for a navdata header")
	}
	if c.Watchdog.Timeout < 0 || (c.Watchdog.Timeout > 0 && c.Watchdog.Interval <= 0) {
		return errors.New("ardrone: watchdog needs a positive interval")
	}
	return nil
}
