// errors.go

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
)

var (
	// ErrNotConnected is returned by the command API when there is no live session.
	ErrNotConnected = errors.New("ardrone: not connected")
	// ErrAlreadyConnected is returned by Connect() on a session which owns open sockets.
	ErrAlreadyConnected = errors.New("ardrone: already connected")
	// ErrMalformedNavData is returned by a Decoder for datagrams which are not telemetry.
	ErrMalformedNavData = errors.New("ardrone: malformed navdata")
	// ErrDroneStateUnknown is returned by commands which need telemetry that has not arrived.
	ErrDroneStateUnknown = errors.New("ardrone: drone state unknown")
)

// ConnectionError reports an I/O failure while setting up a session.
type ConnectionError struct {
	Op  string // which setup step failed, eg. "listen navdata"
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("ardrone: connect: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TransmitError reports a failure to send one command. It never stops the sender loop
// unless the command socket itself has gone away.
type TransmitError struct {
	Command Command
	Err     error
}

func (e *TransmitError) Error() string {
	return fmt.Sprintf("ardrone: transmit %s (priority %s, seq %d): %v",
		e.Command.Name(), e.Command.Priority(), e.Command.Sequence(), e.Err)
}

func (e *TransmitError) Unwrap() error { return e.Err }

// ReceiveError reports an unexpected failure of the telemetry socket.
type ReceiveError struct {
	Err error
}

func (e *ReceiveError) Error() string {
	return fmt.Sprintf("ardrone: navdata receive: %v", e.Err)
}

func (e *ReceiveError) Unwrap() error { return e.Err }

// TeardownError reports failures while releasing session resources.
// Err may hold several causes combined with multierr.
type TeardownError struct {
	Err error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("ardrone: teardown: %v", e.Err)
}

func (e *TeardownError) Unwrap() error { return e.Err }
