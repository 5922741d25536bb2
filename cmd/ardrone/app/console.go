// console.go

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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/SMerrony/ardrone"
)

// Controller is the part of *ardrone.Drone the console drives.
type Controller interface {
	FlatTrim() error
	TakeOff() error
	Land() error
	Hover() error
	SendEmergencySignal() error
	ClearEmergencySignal() error
	Set(roll, pitch, gaz, yaw float32) error
	SetCombinedYawMode(on bool)
	CombinedYawMode() bool
	SendAllNavigationData() error
	SendDemoNavigationData() error
	SetConfigOption(name, value string) error
	PlayLED(animation int, freq float32, durationMs int) error
	PlayAnimation(animation int, durationMs int) error
	State() ardrone.SessionState
}

var errQuit = errors.New("quit")

const usage = `commands:
  takeoff | land | hover | trim | emergency | clear
  set <roll> <pitch> <gaz> <yaw>     values in [-1, 1]
  yaw on|off                         combined yaw mode
  navdata full|demo
  config <name> <value>
  led <animation> <freqHz> <ms>
  anim <animation> <ms>
  state | help | quit`

// Execute runs one console line against c and returns what to print.
func Execute(c Controller, line string) (string, error) {
	f := strings.Fields(line)
	if len(f) == 0 {
		return "", nil
	}
	args := f[1:]
	switch cmd := strings.ToLower(f[0]); cmd {
	case "takeoff":
		return "ok", c.TakeOff()
	case "land":
		return "ok", c.Land()
	case "hover":
		return "ok", c.Hover()
	case "trim":
		return "ok", c.FlatTrim()
	case "emergency":
		return "ok", c.SendEmergencySignal()
	case "clear":
		return "ok", c.ClearEmergencySignal()
	case "set":
		v, err := floats(args, 4)
		if err != nil {
			return "", err
		}
		return "ok", c.Set(v[0], v[1], v[2], v[3])
	case "yaw":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return "", errors.New("usage: yaw on|off")
		}
		c.SetCombinedYawMode(args[0] == "on")
		return fmt.Sprintf("combined yaw %v", c.CombinedYawMode()), nil
	case "navdata":
		if len(args) != 1 {
			return "", errors.New("usage: navdata full|demo")
		}
		switch args[0] {
		case "full":
			return "ok", c.SendAllNavigationData()
		case "demo":
			return "ok", c.SendDemoNavigationData()
		}
		return "", errors.New("usage: navdata full|demo")
	case "config":
		if len(args) != 2 {
			return "", errors.New("usage: config <name> <value>")
		}
		return "ok", c.SetConfigOption(args[0], args[1])
	case "led":
		if len(args) != 3 {
			return "", errors.New("usage: led <animation> <freqHz> <ms>")
		}
		anim, err1 := strconv.Atoi(args[0])
		freq, err2 := strconv.ParseFloat(args[1], 32)
		ms, err3 := strconv.Atoi(args[2])
		if err := errors.Join(err1, err2, err3); err != nil {
			return "", fmt.Errorf("led: %w", err)
		}
		return "ok", c.PlayLED(anim, float32(freq), ms)
	case "anim":
		if len(args) != 2 {
			return "", errors.New("usage: anim <animation> <ms>")
		}
		anim, err1 := strconv.Atoi(args[0])
		ms, err2 := strconv.Atoi(args[1])
		if err := errors.Join(err1, err2); err != nil {
			return "", fmt.Errorf("anim: %w", err)
		}
		return "ok", c.PlayAnimation(anim, ms)
	case "state":
		return c.State().String(), nil
	case "help", "?":
		return usage, nil
	case "quit", "exit":
		return "", errQuit
	default:
		return "", fmt.Errorf("unknown command %q, try help", cmd)
	}
}

func floats(args []string, n int) ([]float32, error) {
	if len(args) != n {
		return nil, fmt.Errorf("need %d values, got %d", n, len(args))
	}
	out := make([]float32, n)
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(v)
	}
	return out, nil
}

// RunConsole executes lines from r until EOF, "quit" or ctx is done.
func RunConsole(ctx context.Context, r io.Reader, w io.Writer, c Controller, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	fmt.Fprintln(w, "type help for commands")
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			return err
		case line := <-lines:
			out, err := Execute(c, line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				log.Debug("console: command failed", zap.String("line", line), zap.Error(err))
				fmt.Fprintf(w, "error: %v\n", err)
				continue
			}
			if out != "" {
				fmt.Fprintln(w, out)
			}
		}
	}
}
