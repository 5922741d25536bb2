// command.go

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

// Priority is the dispatch class of a Command. Lower values are sent first.
type Priority int

// Command priorities...
const (
	PriorityEmergency Priority = iota
	PriorityControl
	PriorityMovement
	priorityQuit // sentinel, never sent
)

func (p Priority) String() string {
	switch p {
	case PriorityEmergency:
		return "emergency"
	case PriorityControl:
		return "control"
	case PriorityMovement:
		return "movement"
	case priorityQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Encoder produces the wire form of a command.
// seq is the per-connection wire sequence number assigned by the sender loop.
type Encoder interface {
	Encode(seq uint32) []byte
}

// EncoderFunc adapts a function to the Encoder interface.
type EncoderFunc func(seq uint32) []byte

// Encode calls f(seq).
func (f EncoderFunc) Encode(seq uint32) []byte { return f(seq) }

// RawPayload is a pre-encoded command which ignores the wire sequence number.
type RawPayload []byte

// Encode returns a copy of the payload.
func (p RawPayload) Encode(uint32) []byte { return append([]byte(nil), p...) }

// Command is an immutable unit of outbound intent.
type Command struct {
	name     string
	priority Priority
	sequence uint64 // assigned by the queue
	payload  Encoder
}

// NewCommand builds a Command. The queue sequence number is assigned on enqueue.
func NewCommand(name string, priority Priority, payload Encoder) Command {
	return Command{name: name, priority: priority, payload: payload}
}

func quitCommand() Command {
	return Command{name: "quit", priority: priorityQuit}
}

// Name is a short label for logs.
func (c Command) Name() string { return c.name }

// Priority returns the dispatch class.
func (c Command) Priority() Priority { return c.priority }

// Sequence is the queue sequence number, zero until enqueued.
func (c Command) Sequence() uint64 { return c.sequence }

func (c Command) isQuit() bool { return c.priority == priorityQuit }

// before is the dispatch order: priority, then FIFO within a priority.
func (c Command) before(o Command) bool {
	if c.priority != o.priority {
		return c.priority < o.priority
	}
	return c.sequence < o.sequence
}
