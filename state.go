// state.go

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

// SessionState is the lifecycle state of a Drone session.
type SessionState int32

// Session states...
const (
	StateDisconnected SessionState = iota // initial state, and the state after Disconnect()
	StateBootstrap                        // sockets open, handshake sent, waiting for telemetry
	StateReady                            // drone is streaming telemetry
	StateWatchdog                         // telemetry has gone quiet for longer than the liveness timeout
	StateError                            // unrecoverable failure, resources already released
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateBootstrap:
		return "bootstrap"
	case StateReady:
		return "ready"
	case StateWatchdog:
		return "watchdog"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Connected is true for every state in which the session owns open sockets.
func (s SessionState) Connected() bool {
	return s == StateBootstrap || s == StateReady || s == StateWatchdog
}
