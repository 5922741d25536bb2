// ardrone project fakes_test.go

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
	"errors"
	"net"
	"sync"
	"testing"
	"time"
)

type datagram struct {
	data []byte
	addr string
}

// fakePacketConn stands in for a UDP socket. Reads come from the reads/readErrs channels
// and block until Close() otherwise.
type fakePacketConn struct {
	local string

	mu         sync.Mutex
	writes     []datagram
	writeErrs  []error // consumed one per WriteTo, nil entries mean success
	closeCount int
	closeErr   error

	reads    chan []byte
	readErrs chan error
	written  chan datagram
	hold     chan struct{} // when non-nil, WriteTo waits for it to close
	closed   chan struct{}
}

func newFakePacketConn(local string) *fakePacketConn {
	return &fakePacketConn{
		local:    local,
		reads:    make(chan []byte, 16),
		readErrs: make(chan error, 1),
		written:  make(chan datagram, 64),
		closed:   make(chan struct{}),
	}
}

func (f *fakePacketConn) ReadFrom(b []byte) (int, net.Addr, error) {
	select {
	case p := <-f.reads:
		return copy(b, p), &net.UDPAddr{IP: net.IPv4(192, 168, 1, 1), Port: DefaultNavDataPort}, nil
	case err := <-f.readErrs:
		return 0, nil, err
	case <-f.closed:
		return 0, nil, net.ErrClosed
	}
}

func (f *fakePacketConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	f.mu.Lock()
	hold := f.hold
	f.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-f.closed:
			return 0, net.ErrClosed
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.closed:
		return 0, net.ErrClosed
	default:
	}
	if len(f.writeErrs) > 0 {
		err := f.writeErrs[0]
		f.writeErrs = f.writeErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	dg := datagram{data: append([]byte(nil), b...), addr: addr.String()}
	f.writes = append(f.writes, dg)
	select {
	case f.written <- dg:
	default:
	}
	return len(b), nil
}

func (f *fakePacketConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCount++
	if f.closeCount == 1 {
		close(f.closed)
		return f.closeErr
	}
	return net.ErrClosed
}

func (f *fakePacketConn) LocalAddr() net.Addr {
	a, _ := net.ResolveUDPAddr("udp", f.local)
	return a
}

func (f *fakePacketConn) SetDeadline(time.Time) error      { return nil }
func (f *fakePacketConn) SetReadDeadline(time.Time) error  { return nil }
func (f *fakePacketConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakePacketConn) failWrites(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErrs = append(f.writeErrs, errs...)
}

func (f *fakePacketConn) holdWrites() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hold = make(chan struct{})
	return f.hold
}

func (f *fakePacketConn) closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCount
}

func (f *fakePacketConn) sent() []datagram {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]datagram(nil), f.writes...)
}

// fakeStreamConn is the TCP control channel.
type fakeStreamConn struct {
	net.Conn
	mu         sync.Mutex
	closeCount int
	closeErr   error
}

func (c *fakeStreamConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCount++
	return c.closeErr
}

// fakeNetwork hands out fakePacketConns keyed by local address.
type fakeNetwork struct {
	mu        sync.Mutex
	conns     map[string]*fakePacketConn
	listenErr map[string]error
	dialErr   error
	ctrl      *fakeStreamConn
	dialed    []string
	setup     func(address string, c *fakePacketConn) // runs on every new socket
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		conns:     make(map[string]*fakePacketConn),
		listenErr: make(map[string]error),
		ctrl:      &fakeStreamConn{},
	}
}

func (n *fakeNetwork) ListenPacket(network, address string) (net.PacketConn, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.listenErr[address]; err != nil {
		return nil, err
	}
	c := newFakePacketConn(address)
	if n.setup != nil {
		n.setup(address, c)
	}
	n.conns[address] = c
	return c, nil
}

func (n *fakeNetwork) DialTimeout(network, address string, timeout time.Duration) (net.Conn, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.dialErr != nil {
		return nil, n.dialErr
	}
	n.dialed = append(n.dialed, address)
	return n.ctrl, nil
}

func (n *fakeNetwork) conn(t *testing.T, address string) *fakePacketConn {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	c, ok := n.conns[address]
	if !ok {
		t.Fatalf("no socket opened on %s", address)
	}
	return c
}

// navDatagram builds a well-formed navdata header followed by opts.
func navDatagram(seq uint32, opts ...byte) []byte {
	b := make([]byte, navDataHeaderSize, navDataHeaderSize+len(opts))
	binary.LittleEndian.PutUint32(b[0:4], navDataMagic)
	binary.LittleEndian.PutUint32(b[4:8], 0x0800)
	binary.LittleEndian.PutUint32(b[8:12], seq)
	binary.LittleEndian.PutUint32(b[12:16], 1)
	return append(b, opts...)
}

// navDatagramState is navDatagram with the given drone state word.
func navDatagramState(seq, state uint32) []byte {
	b := navDatagram(seq)
	binary.LittleEndian.PutUint32(b[4:8], state)
	return b
}

var errBoom = errors.New("boom")

// settle waits until every state and error notification posted so far has been handled.
func settle(t *testing.T, d *Drone) {
	t.Helper()
	done := make(chan struct{})
	d.notes.post(func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notifications")
	}
}

// waitLoops fails the test unless every sender and receiver loop has exited.
func waitLoops(t *testing.T, d *Drone) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		d.loops.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session loops still running")
	}
}

// waitFor polls cond until it holds or a couple of seconds pass.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func nextWrite(t *testing.T, c *fakePacketConn) datagram {
	t.Helper()
	select {
	case dg := <-c.written:
		return dg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a datagram")
	}
	return datagram{}
}
