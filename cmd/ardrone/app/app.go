// app.go

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

// Package app is the interactive ardrone controller.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/SMerrony/ardrone"
	"github.com/SMerrony/ardrone/internal/flightlog"
	"github.com/SMerrony/ardrone/internal/relay"
)

// Run connects to the drone, drives it from stdin until the console ends or ctx is
// cancelled, then disconnects and logs a session summary.
func Run(ctx context.Context, cfg *Config, log *zap.Logger) error {
	var (
		flog *flightlog.Log
		hub  *relay.Hub
		err  error

		flogMu     sync.Mutex // state notifications may still arrive while Run returns
		flogClosed bool
	)
	if cfg.FlightLog.Path != "" {
		if flog, err = flightlog.Open(cfg.FlightLog.Path, log); err != nil {
			return err
		}
		defer func() {
			flogMu.Lock()
			defer flogMu.Unlock()
			flogClosed = true
			flog.Close()
		}()
	}
	if cfg.Relay.ListenAddr != "" {
		hub = relay.NewHub(log)
		stop, err := serveRelay(cfg.Relay.ListenAddr, hub, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	onState := func(old, s ardrone.SessionState) {
		now := time.Now()
		if flog != nil {
			flogMu.Lock()
			if !flogClosed {
				if err := flog.RecordState(now, old, s); err != nil {
					log.Warn("flight log: state not recorded", zap.Error(err))
				}
			}
			flogMu.Unlock()
		}
		if hub != nil {
			hub.Publish(relay.StateEvent(now, old, s))
		}
	}
	onError := func(err error) {
		log.Error("session error", zap.Error(err))
	}

	drone, err := ardrone.New(cfg.Drone,
		ardrone.WithLogger(log),
		ardrone.WithStateHandler(onState),
		ardrone.WithErrorHandler(onError),
	)
	if err != nil {
		return err
	}
	if err := drone.Connect(); err != nil {
		return err
	}

	pumpCtx, stopPump := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pumpNavData(pumpCtx, drone.NavData(), flog, hub, log)
	}()

	consoleErr := RunConsole(ctx, os.Stdin, os.Stdout, drone, log)

	discErr := drone.Disconnect()
	stopPump()
	wg.Wait()

	logSummary(log, drone.Stats(), flog)
	return errors.Join(consoleErr, discErr)
}

func pumpNavData(ctx context.Context, in <-chan ardrone.NavData, flog *flightlog.Log, hub *relay.Hub, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case nd := <-in:
			if flog != nil {
				if err := flog.RecordNavData(nd); err != nil {
					log.Warn("flight log: navdata not recorded", zap.Error(err))
				}
			}
			if hub != nil {
				hub.Publish(relay.NavDataEvent(nd))
			}
		}
	}
}

func serveRelay(addr string, hub *relay.Hub, log *zap.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/telemetry", hub.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("relay: server stopped", zap.Error(err))
		}
	}()
	log.Info("relay: listening", zap.String("addr", ln.Addr().String()))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		hub.Close()
		_ = srv.Shutdown(ctx)
	}, nil
}

func logSummary(log *zap.Logger, st ardrone.Stats, flog *flightlog.Log) {
	last := "never"
	if !st.LastNavData.IsZero() {
		last = humanize.Time(st.LastNavData)
	}
	fields := []zap.Field{
		zap.String("commandsSent", humanize.Comma(int64(st.CommandsSent))),
		zap.String("transmitFailures", humanize.Comma(int64(st.TransmitFailures))),
		zap.String("navDataReceived", humanize.Comma(int64(st.NavDataReceived))),
		zap.String("navDataDelivered", humanize.Comma(int64(st.NavDataDelivered))),
		zap.String("navDataDropped", humanize.Comma(int64(st.NavDataDropped))),
		zap.String("navDataMalformed", humanize.Comma(int64(st.NavDataMalformed))),
		zap.String("lastNavData", last),
	}
	if flog != nil {
		if fi, err := os.Stat(flog.Path()); err == nil {
			fields = append(fields, zap.String("flightLogSize", humanize.Bytes(uint64(fi.Size()))))
		}
	}
	log.Info("session summary", fields...)
}
