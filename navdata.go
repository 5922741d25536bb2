// navdata.go

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
	"encoding/binary"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const navDataMagic = 0x55667788

const navDataHeaderSize = 16

// droneStateEmergency is the bit of NavDataHeader.DroneState set while the drone is in emergency.
const droneStateEmergency = 1 << 31

// NavData is one decoded telemetry datagram. It is never modified after creation.
type NavData struct {
	ReceivedAt time.Time
	Raw        any // whatever the session's Decoder produced
}

// Decoder turns a telemetry datagram into a decoded record.
// It must return an error for anything that is not telemetry.
type Decoder interface {
	Decode(datagram []byte) (any, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(datagram []byte) (any, error)

// Decode calls f(datagram).
func (f DecoderFunc) Decode(datagram []byte) (any, error) { return f(datagram) }

// NavDataHeader is the fixed part of a navdata datagram. Option blocks are left undecoded.
type NavDataHeader struct {
	DroneState uint32
	Sequence   uint32
	VisionFlag uint32
	Options    []byte
}

// HeaderDecoder is the default Decoder. It only checks and splits out the header.
type HeaderDecoder struct{}

// Decode parses the header of a little-endian navdata datagram.
func (HeaderDecoder) Decode(b []byte) (any, error) {
	if len(b) < navDataHeaderSize || binary.LittleEndian.Uint32(b[0:4]) != navDataMagic {
		return nil, ErrMalformedNavData
	}
	return NavDataHeader{
		DroneState: binary.LittleEndian.Uint32(b[4:8]),
		Sequence:   binary.LittleEndian.Uint32(b[8:12]),
		VisionFlag: binary.LittleEndian.Uint32(b[12:16]),
		Options:    append([]byte(nil), b[navDataHeaderSize:]...),
	}, nil
}

// navDataSink is the side of the session the receiver reports to.
type navDataSink interface {
	navDataReady()
	navDataReceived(NavData)
}

// NavDataReceiver owns the telemetry socket's receive loop.
type NavDataReceiver struct {
	conn     net.PacketConn
	decoder  Decoder
	sink     navDataSink
	log      *zap.Logger
	counters *counters
	bufSize  int
	now      func() time.Time

	onFatal func(error) // called when the loop dies without stop() having been requested

	loops   *sync.WaitGroup // optional, marks the loop goroutine as running
	stopped atomic.Bool
	done    chan struct{}
}

func newNavDataReceiver(conn net.PacketConn, dec Decoder, sink navDataSink, log *zap.Logger, c *counters, bufSize int) *NavDataReceiver {
	if c == nil {
		c = new(counters)
	}
	return &NavDataReceiver{
		conn:     conn,
		decoder:  dec,
		sink:     sink,
		log:      log,
		counters: c,
		bufSize:  bufSize,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

func (r *NavDataReceiver) start() {
	if r.loops != nil {
		r.loops.Add(1)
	}
	go func() {
		if r.loops != nil {
			defer r.loops.Done()
		}
		err := r.run()
		close(r.done)
		if err != nil && !r.stopped.Load() {
			r.log.Error("navdata: receive loop failed", zap.Error(err))
			if r.onFatal != nil {
				r.onFatal(err)
			}
		}
	}()
}

func (r *NavDataReceiver) run() error {
	buf := make([]byte, r.bufSize)
	notified := false
	for {
		n, _, err := r.conn.ReadFrom(buf)
		if err != nil {
			if r.stopped.Load() {
				r.log.Debug("navdata: receiver stopped")
				return nil
			}
			return &ReceiveError{Err: err}
		}
		raw, err := r.decoder.Decode(append([]byte(nil), buf[:n]...))
		if err != nil {
			// transport noise
			r.counters.navDataMalformed.Add(1)
			continue
		}
		r.counters.navDataReceived.Add(1)
		nd := NavData{ReceivedAt: r.now(), Raw: raw}
		if !notified {
			notified = true
			r.sink.navDataReady()
		}
		r.sink.navDataReceived(nd)
	}
}

// stop closes the telemetry socket, which unblocks the pending read, and waits up to
// timeout for the loop to exit. The close error, if any, is returned.
func (r *NavDataReceiver) stop(timeout time.Duration) (exited bool, err error) {
	r.stopped.Store(true)
	err = r.conn.Close()
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-r.done:
		return true, err
	case <-t.C:
		return false, err
	}
}
