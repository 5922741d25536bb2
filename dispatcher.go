// dispatcher.go

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
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// CommandDispatcher owns the outbound command queue and the sender loop which drains it
// onto the command socket in priority order.
type CommandDispatcher struct {
	queue    *commandQueue
	conn     net.PacketConn
	dest     net.Addr
	log      *zap.Logger
	counters *counters

	onTransmitError func(*TransmitError)
	onFatal         func(error) // called when the loop dies outside an orderly stop

	loops    *sync.WaitGroup // optional, marks the loop goroutine as running
	stopping atomic.Bool
	done     chan struct{}
	wireSeq  uint32 // only touched by the sender loop
}

func newCommandDispatcher(conn net.PacketConn, dest net.Addr, log *zap.Logger, c *counters) *CommandDispatcher {
	if c == nil {
		c = new(counters)
	}
	return &CommandDispatcher{
		queue:    newCommandQueue(),
		conn:     conn,
		dest:     dest,
		log:      log,
		counters: c,
		done:     make(chan struct{}),
	}
}

// Enqueue adds cmd to the queue and returns it stamped with its sequence number.
// It never blocks and never rejects.
func (d *CommandDispatcher) Enqueue(cmd Command) Command {
	return d.queue.push(cmd)
}

// Pending returns the number of queued commands.
func (d *CommandDispatcher) Pending() int { return d.queue.len() }

func (d *CommandDispatcher) start() {
	if d.loops != nil {
		d.loops.Add(1)
	}
	go func() {
		if d.loops != nil {
			defer d.loops.Done()
		}
		err := d.run()
		close(d.done)
		if err != nil && !d.stopping.Load() {
			d.log.Error("dispatcher: sender loop failed", zap.Error(err))
			if d.onFatal != nil {
				d.onFatal(err)
			}
		}
	}()
}

func (d *CommandDispatcher) run() error {
	for {
		cmd := d.queue.pop()
		if cmd.isQuit() {
			d.log.Debug("dispatcher: quit received", zap.Int("discarded", d.queue.len()))
			return nil
		}
		if cmd.payload == nil {
			d.transmitFailed(&TransmitError{Command: cmd, Err: errors.New("no payload")})
			continue
		}
		d.wireSeq++
		buf := cmd.payload.Encode(d.wireSeq)
		if _, err := d.conn.WriteTo(buf, d.dest); err != nil {
			terr := &TransmitError{Command: cmd, Err: err}
			if errors.Is(err, net.ErrClosed) {
				return terr
			}
			d.transmitFailed(terr)
			continue
		}
		d.counters.commandsSent.Add(1)
	}
}

func (d *CommandDispatcher) transmitFailed(err *TransmitError) {
	d.counters.transmitFailures.Add(1)
	if d.stopping.Load() {
		return
	}
	d.log.Warn("dispatcher: send failed",
		zap.String("command", err.Command.Name()),
		zap.Stringer("priority", err.Command.Priority()),
		zap.Uint64("seq", err.Command.Sequence()),
		zap.Error(err.Err),
	)
	if d.onTransmitError != nil {
		d.onTransmitError(err)
	}
}

// requestStop queues the QUIT sentinel behind everything already queued.
func (d *CommandDispatcher) requestStop() {
	if d.stopping.Swap(true) {
		return
	}
	d.queue.push(quitCommand())
}

// wait blocks until the sender loop has exited or timeout passes.
func (d *CommandDispatcher) wait(timeout time.Duration) bool {
	select {
	case <-d.done:
		return true
	default:
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-d.done:
		return true
	case <-t.C:
		return false
	}
}
