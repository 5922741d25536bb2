// watchdog.go

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
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Liveness is the view of a session a LivenessMonitor works against.
type Liveness interface {
	// LastNavData is when telemetry was last decoded on the current connection.
	LastNavData() time.Time
	// EnterWatchdog moves READY to WATCHDOG and reports whether it did.
	EnterWatchdog() bool
	// LeaveWatchdog moves WATCHDOG back to READY and reports whether it did.
	LeaveWatchdog() bool
}

// LivenessMonitor drives the WATCHDOG state. A fresh monitor is started for each
// connection and stopped during teardown.
type LivenessMonitor interface {
	Start(s Liveness)
	Stop()
}

// Watchdog is the default LivenessMonitor. Every Interval it compares the time since the
// last telemetry against Timeout.
type Watchdog struct {
	Timeout  time.Duration
	Interval time.Duration

	log      *zap.Logger
	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewWatchdog returns a stopped Watchdog.
func NewWatchdog(timeout, interval time.Duration, log *zap.Logger) *Watchdog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watchdog{
		Timeout:  timeout,
		Interval: interval,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the monitoring goroutine.
func (w *Watchdog) Start(s Liveness) {
	if w.started.Swap(true) {
		return
	}
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-w.stop:
				return
			case now := <-ticker.C:
				w.check(s, now)
			}
		}
	}()
}

func (w *Watchdog) check(s Liveness, now time.Time) {
	last := s.LastNavData()
	if last.IsZero() {
		return // still bootstrapping
	}
	silence := now.Sub(last)
	if silence > w.Timeout {
		if s.EnterWatchdog() {
			w.log.Warn("watchdog: telemetry silent", zap.Duration("silence", silence))
		}
		return
	}
	if s.LeaveWatchdog() {
		w.log.Info("watchdog: telemetry resumed")
	}
}

// Stop ends monitoring and waits for the goroutine. It is safe to call more than once,
// and before Start.
func (w *Watchdog) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	if w.started.Load() {
		<-w.done
	}
}
