// main.go

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

// ardrone flies a Parrot AR.Drone 2.0 from the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/SMerrony/ardrone/cmd/ardrone/app"
	"github.com/SMerrony/ardrone/internal/logging"
)

func main() {
	cfgPath := flag.String("c", "", "path to YAML configuration file")
	flag.Parse()

	cfg, err := app.LoadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ardrone: %v\n", err)
		os.Exit(2)
	}
	log, sync, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ardrone: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = app.Run(ctx, cfg, log)
	stop()
	if err != nil {
		log.Error("ardrone exited", zap.Error(err))
		sync()
		os.Exit(1)
	}
	sync()
}
