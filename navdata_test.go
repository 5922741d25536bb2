// ardrone project navdata_test.go

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
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestHeaderDecoder(t *testing.T) {
	raw, err := HeaderDecoder{}.Decode(navDatagram(42, 0xaa, 0xbb))
	if err != nil {
		t.Fatal(err)
	}
	h := raw.(NavDataHeader)
	if h.Sequence != 42 || h.DroneState != 0x0800 || h.VisionFlag != 1 {
		t.Errorf("header %+v", h)
	}
	if !bytes.Equal(h.Options, []byte{0xaa, 0xbb}) {
		t.Errorf("options %x", h.Options)
	}

	for _, bad := range [][]byte{nil, []byte("junk"), make([]byte, 32)} {
		if _, err := (HeaderDecoder{}).Decode(bad); !errors.Is(err, ErrMalformedNavData) {
			t.Errorf("decoded %x: %v", bad, err)
		}
	}
}

type recordingSink struct {
	mu       sync.Mutex
	ready    int
	received []NavData
}

func (s *recordingSink) navDataReady() {
	s.mu.Lock()
	s.ready++
	s.mu.Unlock()
}

func (s *recordingSink) navDataReceived(nd NavData) {
	s.mu.Lock()
	s.received = append(s.received, nd)
	s.mu.Unlock()
}

func (s *recordingSink) snapshot() (int, []NavData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready, append([]NavData(nil), s.received...)
}

func TestReceiverNotifiesReadyOnceAndKeepsOrder(t *testing.T) {
	conn := newFakePacketConn(":5554")
	sink := &recordingSink{}
	c := new(counters)
	r := newNavDataReceiver(conn, HeaderDecoder{}, sink, zaptest.NewLogger(t), c, 4096)
	r.start()

	conn.reads <- []byte("noise")
	conn.reads <- navDatagram(1)
	conn.reads <- navDatagram(2)
	conn.reads <- navDatagram(3)
	waitFor(t, "three records", func() bool {
		_, got := sink.snapshot()
		return len(got) == 3
	})

	ready, got := sink.snapshot()
	if ready != 1 {
		t.Errorf("ready notified %d times", ready)
	}
	for i, nd := range got {
		if seq := nd.Raw.(NavDataHeader).Sequence; seq != uint32(i+1) {
			t.Errorf("record %d has sequence %d", i, seq)
		}
		if nd.ReceivedAt.IsZero() {
			t.Error("missing receive time")
		}
	}
	if c.navDataMalformed.Load() != 1 || c.navDataReceived.Load() != 3 {
		t.Errorf("malformed %d, received %d", c.navDataMalformed.Load(), c.navDataReceived.Load())
	}
	r.stop(time.Second)
}

func TestReceiverStopUnblocksRead(t *testing.T) {
	conn := newFakePacketConn(":5554")
	r := newNavDataReceiver(conn, HeaderDecoder{}, &recordingSink{}, zaptest.NewLogger(t), nil, 4096)
	r.onFatal = func(err error) { t.Errorf("stop reported as failure: %v", err) }
	r.start()

	start := time.Now()
	exited, err := r.stop(time.Second)
	if !exited || err != nil {
		t.Fatalf("exited %v, err %v", exited, err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("stop took too long")
	}
	if conn.closes() != 1 {
		t.Errorf("socket closed %d times", conn.closes())
	}
}

func TestReceiverReadFailureIsFatal(t *testing.T) {
	conn := newFakePacketConn(":5554")
	r := newNavDataReceiver(conn, HeaderDecoder{}, &recordingSink{}, zaptest.NewLogger(t), nil, 4096)
	fatal := make(chan error, 1)
	r.onFatal = func(err error) { fatal <- err }
	r.start()

	conn.readErrs <- errBoom
	select {
	case err := <-fatal:
		var rerr *ReceiveError
		if !errors.As(err, &rerr) || !errors.Is(err, errBoom) {
			t.Errorf("fatal error %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("read failure not reported")
	}
}
