// drone.go

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
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// counters are shared by a Drone and the loops of its current connection.
type counters struct {
	commandsSent     atomic.Uint64
	transmitFailures atomic.Uint64
	navDataReceived  atomic.Uint64
	navDataDelivered atomic.Uint64
	navDataDropped   atomic.Uint64
	navDataMalformed atomic.Uint64
}

// Stats is a snapshot of the session counters. They accumulate across reconnects.
type Stats struct {
	CommandsSent     uint64
	TransmitFailures uint64
	NavDataReceived  uint64
	NavDataDelivered uint64
	NavDataDropped   uint64
	NavDataMalformed uint64
	LastNavData      time.Time
}

// resources are the sockets and loops of one connection.
type resources struct {
	cmdConn, navConn, videoConn net.PacketConn
	ctrlConn                    net.Conn
	dispatcher                  *CommandDispatcher
	receiver                    *NavDataReceiver
	monitor                     LivenessMonitor
}

// Option customises a Drone.
type Option func(*Drone)

// WithLogger sets the logger used by the session and its loops.
func WithLogger(log *zap.Logger) Option {
	return func(d *Drone) {
		if log != nil {
			d.log = log
		}
	}
}

// WithNetwork replaces the socket factory.
func WithNetwork(n Network) Option {
	return func(d *Drone) { d.network = n }
}

// WithDecoder replaces the default HeaderDecoder.
func WithDecoder(dec Decoder) Option {
	return func(d *Drone) { d.decoder = dec }
}

// WithErrorHandler registers fn to be told about steady-state failures: transmit errors,
// receive errors and entry into the ERROR state. Handlers run on a notification goroutine
// in the order the events happened, never with session locks held, so fn may call
// Connect or Disconnect.
func WithErrorHandler(fn func(error)) Option {
	return func(d *Drone) { d.onError = fn }
}

// WithStateHandler registers fn to be called after every state change. It runs on the
// same notification goroutine as the error handler.
func WithStateHandler(fn func(old, new SessionState)) Option {
	return func(d *Drone) { d.onStateChange = fn }
}

// WithLivenessMonitor replaces the Watchdog. newMonitor is called once per connection.
func WithLivenessMonitor(newMonitor func() LivenessMonitor) Option {
	return func(d *Drone) { d.newMonitor = newMonitor }
}

// Drone is a client session with one drone. It owns the command, telemetry and video
// sockets, the command sender loop and the telemetry receiver loop.
type Drone struct {
	cfg           Config
	log           *zap.Logger
	network       Network
	decoder       Decoder
	newMonitor    func() LivenessMonitor
	onError       func(error)
	onStateChange func(old, new SessionState)

	lifecycleMu sync.Mutex // serialises Connect, Disconnect and entry into ERROR
	gen         uint64     // connection generation, guarded by lifecycleMu
	res         *resources // guarded by lifecycleMu

	mu          sync.Mutex // guards state, pending, lastNavData and droneState
	state       SessionState
	pending     []NavData
	lastNavData time.Time
	droneState  uint32
	stateKnown  bool // droneState holds the header of the latest telemetry

	notes notifier
	loops sync.WaitGroup // every sender and receiver loop ever started

	dispatcher  atomic.Pointer[CommandDispatcher]
	navData     chan NavData
	combinedYaw atomic.Bool
	counters    counters
}

// New builds a disconnected Drone.
func New(cfg Config, opts ...Option) (*Drone, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Drone{
		cfg:     cfg,
		log:     zap.NewNop(),
		network: SystemNetwork{},
		decoder: HeaderDecoder{},
		navData: make(chan NavData, cfg.NavDataQueueSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With(zap.String("drone", cfg.DroneAddr))
	if d.newMonitor == nil && cfg.Watchdog.Timeout > 0 {
		d.newMonitor = func() LivenessMonitor {
			return NewWatchdog(cfg.Watchdog.Timeout, cfg.Watchdog.Interval, d.log)
		}
	}
	return d, nil
}

// NewDefault builds a Drone for the default address and ports.
func NewDefault(opts ...Option) (*Drone, error) {
	return New(DefaultConfig(), opts...)
}

// Config returns the settings the session was built with.
func (d *Drone) Config() Config { return d.cfg }

// State returns the current session state.
func (d *Drone) State() SessionState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// NavData returns the telemetry queue. It is shared by every connection of this Drone and
// is never closed. When it is full new telemetry is dropped.
func (d *Drone) NavData() <-chan NavData { return d.navData }

// Stats returns a snapshot of the session counters.
func (d *Drone) Stats() Stats {
	return Stats{
		CommandsSent:     d.counters.commandsSent.Load(),
		TransmitFailures: d.counters.transmitFailures.Load(),
		NavDataReceived:  d.counters.navDataReceived.Load(),
		NavDataDelivered: d.counters.navDataDelivered.Load(),
		NavDataDropped:   d.counters.navDataDropped.Load(),
		NavDataMalformed: d.counters.navDataMalformed.Load(),
		LastNavData:      d.LastNavData(),
	}
}

func (d *Drone) hostPort(port int) string {
	return net.JoinHostPort(d.cfg.DroneAddr, strconv.Itoa(port))
}

// bootstrapHandshake asks the drone to start streaming telemetry.
func bootstrapHandshake() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, 1)
	return b
}

// Connect opens the sockets, starts the sender and receiver loops and sends the bootstrap
// handshake. On success the session is in BOOTSTRAP; it becomes READY when the first
// telemetry datagram is decoded. Any socket failure leaves the session in ERROR and is
// returned as a *ConnectionError.
func (d *Drone) Connect() error {
	d.lifecycleMu.Lock()
	defer d.lifecycleMu.Unlock()

	if d.State().Connected() {
		return ErrAlreadyConnected
	}

	cmdAddr, err := net.ResolveUDPAddr("udp", d.hostPort(d.cfg.CommandPort))
	if err != nil {
		return d.connectFailed(nil, "resolve command address", err)
	}
	navAddr, err := net.ResolveUDPAddr("udp", d.hostPort(d.cfg.NavDataPort))
	if err != nil {
		return d.connectFailed(nil, "resolve navdata address", err)
	}

	res := &resources{}
	if res.cmdConn, err = d.network.ListenPacket("udp", ":0"); err != nil {
		return d.connectFailed(res, "listen command", err)
	}
	if res.navConn, err = d.network.ListenPacket("udp", ":"+strconv.Itoa(d.cfg.NavDataPort)); err != nil {
		return d.connectFailed(res, "listen navdata", err)
	}
	if d.cfg.OpenVideoSocket {
		if res.videoConn, err = d.network.ListenPacket("udp", ":"+strconv.Itoa(d.cfg.VideoPort)); err != nil {
			return d.connectFailed(res, "listen video", err)
		}
	}
	if d.cfg.ControlChannel {
		if res.ctrlConn, err = d.network.DialTimeout("tcp", d.hostPort(d.cfg.ControlPort), d.cfg.DialTimeout); err != nil {
			return d.connectFailed(res, "dial control", err)
		}
	}

	d.gen++
	gen := d.gen
	d.mu.Lock()
	d.pending = nil
	d.lastNavData = time.Time{}
	d.stateKnown = false
	d.mu.Unlock()

	res.dispatcher = newCommandDispatcher(res.cmdConn, cmdAddr, d.log, &d.counters)
	res.dispatcher.loops = &d.loops
	res.dispatcher.onTransmitError = func(err *TransmitError) { d.report(err) }
	res.dispatcher.onFatal = func(err error) { d.loopFailed(gen, err) }
	res.dispatcher.start()

	// nothing else may reach the wire before the handshake
	if _, err := res.navConn.WriteTo(bootstrapHandshake(), navAddr); err != nil {
		return d.connectFailed(res, "send handshake", err)
	}

	d.res = res
	d.setState(StateBootstrap)
	d.dispatcher.Store(res.dispatcher)

	res.receiver = newNavDataReceiver(res.navConn, d.decoder, d, d.log, &d.counters, d.cfg.ReadBufferSize)
	res.receiver.onFatal = func(err error) { d.loopFailed(gen, err) }
	res.receiver.loops = &d.loops
	res.receiver.start()

	if d.newMonitor != nil {
		res.monitor = d.newMonitor()
		res.monitor.Start(d)
	}

	d.log.Info("connected", zap.Stringer("command", cmdAddr), zap.Stringer("navdata", navAddr))
	return nil
}

func (d *Drone) connectFailed(res *resources, op string, err error) error {
	cerr := &ConnectionError{Op: op, Err: err}
	if res != nil {
		if terr := d.teardown(res); terr != nil {
			d.log.Debug("teardown after failed connect", zap.Error(terr))
		}
	}
	d.setState(StateError)
	d.log.Error("connect failed", zap.Error(cerr))
	return cerr
}

// Disconnect stops both loops, closes every socket and leaves the session DISCONNECTED.
// It is idempotent. Only a failure to close the optional control channel is returned.
func (d *Drone) Disconnect() error {
	d.lifecycleMu.Lock()
	defer d.lifecycleMu.Unlock()

	res := d.res
	d.res = nil
	var err error
	if res != nil {
		err = d.teardown(res)
		d.log.Info("disconnected")
	}
	d.setState(StateDisconnected)
	return err
}

// teardown releases everything in res. The order is: QUIT to the sender loop, stop the
// receiver, let the sender drain, close the sockets, and the control channel last.
func (d *Drone) teardown(res *resources) error {
	if res.dispatcher != nil {
		d.dispatcher.CompareAndSwap(res.dispatcher, nil)
	}
	if res.monitor != nil {
		res.monitor.Stop()
	}
	if res.dispatcher != nil {
		res.dispatcher.requestStop()
	}

	var errs error
	if res.receiver != nil {
		exited, err := res.receiver.stop(d.cfg.StopTimeout)
		if !exited {
			d.log.Warn("navdata: receiver did not stop in time", zap.Duration("timeout", d.cfg.StopTimeout))
		}
		errs = multierr.Append(errs, err)
	} else if res.navConn != nil {
		errs = multierr.Append(errs, res.navConn.Close())
	}
	if res.dispatcher != nil && !res.dispatcher.wait(d.cfg.DrainTimeout) {
		d.log.Warn("dispatcher: drain timed out", zap.Int("pending", res.dispatcher.Pending()))
	}
	if res.cmdConn != nil {
		errs = multierr.Append(errs, res.cmdConn.Close())
	}
	if res.videoConn != nil {
		errs = multierr.Append(errs, res.videoConn.Close())
	}

	d.mu.Lock()
	d.pending = nil
	d.mu.Unlock()

	if errs != nil {
		d.log.Debug("teardown errors ignored", zap.Error(&TeardownError{Err: errs}))
	}
	if res.ctrlConn != nil {
		if err := res.ctrlConn.Close(); err != nil {
			return &TeardownError{Err: err}
		}
	}
	return nil
}

// changeToErrorState tears the connection down, if there is one, and enters ERROR.
// Concurrent callers are serialised and only the first has any effect.
func (d *Drone) changeToErrorState(cause error) {
	d.lifecycleMu.Lock()
	defer d.lifecycleMu.Unlock()
	d.enterError(cause)
}

// loopFailed is how a loop of connection gen reports its own death. Reports from a
// connection which has already been torn down are ignored.
func (d *Drone) loopFailed(gen uint64, cause error) {
	d.lifecycleMu.Lock()
	defer d.lifecycleMu.Unlock()
	if gen != d.gen || d.res == nil {
		d.log.Debug("late loop failure ignored", zap.Error(cause))
		return
	}
	d.enterError(cause)
}

// enterError requires lifecycleMu.
func (d *Drone) enterError(cause error) {
	if d.State() == StateError {
		return
	}
	if res := d.res; res != nil {
		d.res = nil
		if err := d.teardown(res); err != nil {
			d.log.Debug("teardown on error", zap.Error(err))
		}
	}
	d.setState(StateError)
	d.log.Error("session failed", zap.Error(cause))
	d.report(cause)
}

// report hands err to the error handler without waiting for it.
func (d *Drone) report(err error) {
	if err != nil && d.onError != nil {
		d.notes.post(func() { d.onError(err) })
	}
}

func (d *Drone) setState(s SessionState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	old := d.state
	d.state = s
	if s == StateReady {
		d.flushPendingLocked()
	}
	d.stateChangedLocked(old, s)
}

// transition moves to `to` only from one of `from`.
func (d *Drone) transition(to SessionState, from ...SessionState) bool {
	d.mu.Lock()
	old := d.state
	if !slices.Contains(from, old) {
		d.mu.Unlock()
		return false
	}
	d.state = to
	if to == StateReady {
		d.flushPendingLocked()
	}
	d.stateChangedLocked(old, to)
	d.mu.Unlock()
	return true
}

// stateChangedLocked queues the state handler while mu still orders the change.
func (d *Drone) stateChangedLocked(old, s SessionState) {
	if old == s {
		return
	}
	d.log.Debug("state changed", zap.Stringer("from", old), zap.Stringer("to", s))
	if d.onStateChange != nil {
		d.notes.post(func() { d.onStateChange(old, s) })
	}
}

// navDataReady is the receiver's one-shot notice that the drone is responding.
func (d *Drone) navDataReady() {
	if d.transition(StateReady, StateBootstrap) {
		d.log.Info("drone responding, session ready")
	}
}

// navDataReceived applies the delivery policy to one decoded record.
func (d *Drone) navDataReceived(nd NavData) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastNavData = nd.ReceivedAt
	if h, ok := nd.Raw.(NavDataHeader); ok {
		d.droneState, d.stateKnown = h.DroneState, true
	}
	switch {
	case d.state == StateReady:
		d.deliverLocked(nd)
	case d.cfg.NavDataPolicy == BufferUntilReady && (d.state == StateBootstrap || d.state == StateWatchdog):
		if len(d.pending) >= d.cfg.PendingLimit {
			copy(d.pending, d.pending[1:])
			d.pending = d.pending[:len(d.pending)-1]
			d.counters.navDataDropped.Add(1)
		}
		d.pending = append(d.pending, nd)
	default:
		d.counters.navDataDropped.Add(1)
	}
}

func (d *Drone) deliverLocked(nd NavData) {
	select {
	case d.navData <- nd:
		d.counters.navDataDelivered.Add(1)
	default:
		d.counters.navDataDropped.Add(1)
	}
}

func (d *Drone) flushPendingLocked() {
	for _, nd := range d.pending {
		d.deliverLocked(nd)
	}
	d.pending = nil
}

// DroneState returns the state word of the latest NavDataHeader on the current connection.
// ok is false until one has been decoded, or when a custom Decoder produces other records.
func (d *Drone) DroneState() (state uint32, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.droneState, d.stateKnown
}

// LastNavData is when telemetry was last decoded on the current connection.
func (d *Drone) LastNavData() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastNavData
}

// EnterWatchdog moves a READY session to WATCHDOG.
func (d *Drone) EnterWatchdog() bool {
	return d.transition(StateWatchdog, StateReady)
}

// LeaveWatchdog moves a WATCHDOG session back to READY, delivering any buffered telemetry.
func (d *Drone) LeaveWatchdog() bool {
	return d.transition(StateReady, StateWatchdog)
}
