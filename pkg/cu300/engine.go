// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package cu300

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/chr15toffer/GrundfosCU300/pkg/genibus"
)

// ConnState is the engine's connection state.
type ConnState int32

// Connection states
const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// DialFunc produces a fresh transport. The engine never reuses a transport
// across reconnects; each connect attempt gets a new instance.
type DialFunc func() Transport

// Engine owns one GENIBus connection: it serializes every request/response
// exchange behind a single mutex, because the protocol has no request
// correlation and concurrent requests cannot be matched to replies.
type Engine struct {
	mu sync.Mutex // held around build -> write -> read -> parse

	catalog *genibus.Catalog
	family  string
	dial    DialFunc

	deviceAddr byte
	sourceAddr byte
	timeouts   TimeoutConfig
	pollPoints []string

	transport Transport // nil unless connected
	state     atomic.Int32

	log   *zap.Logger
	stats *Statistics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a zap logger. The default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithStatistics attaches a shared statistics tracker.
func WithStatistics(stats *Statistics) Option {
	return func(e *Engine) { e.stats = stats }
}

// WithPollMeasurements overrides the measurement set PollData requests.
func WithPollMeasurements(names []string) Option {
	return func(e *Engine) { e.pollPoints = names }
}

// NewEngine creates an engine over the given transport factory. The catalog
// is shared read-only; addressing and timeouts come from cfg.
func NewEngine(catalog *genibus.Catalog, dial DialFunc, cfg *Config, opts ...Option) *Engine {
	e := &Engine{
		catalog:    catalog,
		family:     cfg.Protocol.Family,
		dial:       dial,
		deviceAddr: cfg.Protocol.DeviceAddress,
		sourceAddr: cfg.Protocol.SourceAddress,
		timeouts:   cfg.Timeouts,
		pollPoints: cfg.Poll.Measurements,
		log:        zap.NewNop(),
		stats:      NewStatistics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current connection state.
func (e *Engine) State() ConnState {
	return ConnState(e.state.Load())
}

// Statistics returns the engine's exchange counters.
func (e *Engine) Statistics() *Statistics {
	return e.stats
}

func (e *Engine) setState(s ConnState) {
	old := ConnState(e.state.Swap(int32(s)))
	if old != s {
		e.log.Debug("state transition",
			zap.Stringer("from", old),
			zap.Stringer("to", s))
	}
}

// Connect opens a fresh transport and performs the GENIBus handshake: one
// connect request to the connection request address, one valid reply within
// the handshake timeout. Any failure leaves the engine Disconnected.
func (e *Engine) Connect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connectLocked(ctx)
}

func (e *Engine) connectLocked(ctx context.Context) error {
	if e.transport != nil && e.State() == StateConnected {
		return nil
	}
	// A dead transport may still be held after a failed exchange. Release it
	// before dialing; a leaked serial handle blocks the fresh open.
	if e.transport != nil {
		e.closeTransport(e.transport)
		e.transport = nil
	}
	e.setState(StateConnecting)

	t := e.dial()
	connectCtx, cancel := context.WithTimeout(ctx, e.timeouts.Connect)
	defer cancel()
	if err := t.Connect(connectCtx); err != nil {
		e.setState(StateDisconnected)
		return &OpError{Op: "connect", Kind: KindConnection, Err: err}
	}
	e.log.Info("transport open", zap.String("transport", t.String()))

	pdu, err := genibus.BuildConnectRequest(e.catalog, e.family, e.sourceAddr)
	if err != nil {
		e.closeTransport(t)
		e.setState(StateDisconnected)
		return &OpError{Op: "connect", Kind: KindProtocol, Err: err}
	}
	frame, err := e.roundTrip(t, pdu, e.timeouts.Handshake)
	if err != nil {
		e.closeTransport(t)
		e.setState(StateDisconnected)
		return &OpError{Op: "connect", Kind: classifyExchange(err), Err: err}
	}
	if _, err := genibus.ParseReply(e.catalog, e.family, frame.Bytes(), genibus.ConnectRequest); err != nil {
		e.closeTransport(t)
		e.setState(StateDisconnected)
		return &OpError{Op: "connect", Kind: KindProtocol, Err: err}
	}

	e.transport = t
	e.setState(StateConnected)
	e.log.Info("handshake complete", zap.Uint8("device_addr", e.deviceAddr))
	return nil
}

// Disconnect closes the transport unconditionally and transitions to
// Disconnected. Close failures are logged, not propagated.
func (e *Engine) Disconnect() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disconnectLocked()
	return nil
}

func (e *Engine) disconnectLocked() {
	if e.transport != nil {
		e.closeTransport(e.transport)
		e.transport = nil
	}
	e.setState(StateDisconnected)
}

func (e *Engine) closeTransport(t Transport) {
	if err := t.Close(); err != nil {
		e.log.Warn("transport close failed", zap.Error(err))
	}
}

// Reconnect tears the connection down, waits out a short backoff, and
// connects again on a fresh transport. The backoff observes context
// cancellation so shutdown can abort a queued reconnect cleanly.
func (e *Engine) Reconnect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.setState(StateReconnecting)
	if e.transport != nil {
		e.closeTransport(e.transport)
		e.transport = nil
	}
	e.stats.record(func(s *Statistics) { s.Reconnects++ })

	select {
	case <-time.After(e.timeouts.ReconnectBackoff):
	case <-ctx.Done():
		e.setState(StateDisconnected)
		return &OpError{Op: "reconnect", Kind: KindConnection, Err: ctx.Err()}
	}
	return e.connectLocked(ctx)
}

// PollData reads the configured measurement set and returns decoded values
// keyed by name. Points the device reported unavailable are absent.
func (e *Engine) PollData(ctx context.Context) (map[string]float64, error) {
	req := genibus.GetValuesRequest{Measurements: e.pollPoints}
	reply, err := e.getValues(ctx, "poll_data", req, e.timeouts.Poll)
	if err != nil {
		return nil, err
	}
	return reply.Values, nil
}

// GetValues reads an arbitrary set of data points in one exchange.
func (e *Engine) GetValues(ctx context.Context, req genibus.GetValuesRequest) (*genibus.Reply, error) {
	return e.getValues(ctx, "get_values", req, e.timeouts.Poll)
}

func (e *Engine) getValues(ctx context.Context, op string, req genibus.GetValuesRequest, timeout time.Duration) (*genibus.Reply, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pdu, err := genibus.BuildGetValues(e.catalog, e.family, e.header(), req)
	if err != nil {
		return nil, &OpError{Op: op, Kind: KindProtocol, Err: err}
	}
	frame, err := e.exchangeLocked(ctx, op, pdu, timeout)
	if err != nil {
		return nil, err
	}
	reply, err := genibus.ParseReply(e.catalog, e.family, frame.Bytes(), req)
	if err != nil {
		e.stats.record(func(s *Statistics) { s.ProtocolErrors++ })
		return nil, &OpError{Op: op, Kind: KindProtocol, Err: err}
	}
	return reply, nil
}

// StartPump switches the pump to remote control and starts it. The protocol
// has no distinct command acknowledgment; any well-formed reply counts as
// success, a documented limitation of the device.
func (e *Engine) StartPump(ctx context.Context) error {
	return e.sendCommands(ctx, "start_pump", []string{"REMOTE", "START"})
}

// StopPump stops the pump.
func (e *Engine) StopPump(ctx context.Context) error {
	return e.sendCommands(ctx, "stop_pump", []string{"STOP"})
}

func (e *Engine) sendCommands(ctx context.Context, op string, commands []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pdu, err := genibus.BuildSetCommands(e.catalog, e.family, e.header(), commands)
	if err != nil {
		return &OpError{Op: op, Kind: KindProtocol, Err: err}
	}
	if _, err := e.exchangeLocked(ctx, op, pdu, e.timeouts.Command); err != nil {
		return err
	}
	e.log.Info("commands acknowledged", zap.Strings("commands", commands))
	return nil
}

// SetReference writes the remote reference setpoint in percent. Values
// outside [0,100] fail validation before any I/O takes place.
func (e *Engine) SetReference(ctx context.Context, value int) error {
	if value < 0 || value > 100 {
		return &OpError{
			Op:   "set_reference",
			Kind: KindValidation,
			Err:  fmt.Errorf("reference %d outside [0,100]", value),
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	pdu, err := genibus.BuildSetValues(e.catalog, e.family, e.header(), nil,
		[]genibus.SetValue{{Name: "ref", Value: byte(value)}})
	if err != nil {
		return &OpError{Op: "set_reference", Kind: KindProtocol, Err: err}
	}
	if _, err := e.exchangeLocked(ctx, "set_reference", pdu, e.timeouts.Command); err != nil {
		return err
	}
	e.log.Info("reference set", zap.Int("percent", value))
	return nil
}

// RequestInfo asks the device to describe the named measurements.
func (e *Engine) RequestInfo(ctx context.Context, measurements []string) (map[string]genibus.PointInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	req := genibus.GetValuesRequest{Measurements: measurements}
	pdu, err := genibus.BuildGetInfo(e.catalog, e.family, e.header(), req)
	if err != nil {
		return nil, &OpError{Op: "request_info", Kind: KindProtocol, Err: err}
	}
	frame, err := e.exchangeLocked(ctx, "request_info", pdu, e.timeouts.Command)
	if err != nil {
		return nil, err
	}
	info, err := genibus.ParseInfoReply(e.catalog, e.family, frame.Bytes(), req)
	if err != nil {
		e.stats.record(func(s *Statistics) { s.ProtocolErrors++ })
		return nil, &OpError{Op: "request_info", Kind: KindProtocol, Err: err}
	}
	return info, nil
}

func (e *Engine) header() genibus.Header {
	return genibus.RequestHeader(e.deviceAddr, e.sourceAddr)
}

// exchangeLocked performs one write/read round trip. The caller holds e.mu.
// A write failure marks the connection Reconnecting; a response timeout does
// not change state — the coordinator decides whether the link is degraded.
func (e *Engine) exchangeLocked(ctx context.Context, op string, pdu []byte, timeout time.Duration) (*genibus.Frame, error) {
	if e.transport == nil || e.State() != StateConnected {
		return nil, &OpError{Op: op, Kind: KindConnection, Err: ErrNotConnected}
	}
	if err := ctx.Err(); err != nil {
		return nil, &OpError{Op: op, Kind: KindConnection, Err: err}
	}
	frame, err := e.roundTrip(e.transport, pdu, timeout)
	if err != nil {
		kind := classifyExchange(err)
		if kind == KindConnection {
			e.setState(StateReconnecting)
		}
		return nil, &OpError{Op: op, Kind: kind, Err: err}
	}
	return frame, nil
}

// roundTrip writes one request and reads exactly one reply frame.
func (e *Engine) roundTrip(t Transport, pdu []byte, timeout time.Duration) (*genibus.Frame, error) {
	if !genibus.CheckCRC(pdu) {
		pdu = genibus.AppendCRC(pdu)
	}
	e.stats.record(func(s *Statistics) { s.Exchanges++ })
	e.log.Debug("tx", zap.String("frame", hex.EncodeToString(pdu)))

	if err := t.Write(pdu); err != nil {
		e.stats.record(func(s *Statistics) { s.ConnectionErrors++ })
		return nil, fmt.Errorf("write: %w", err)
	}

	frame, err := genibus.NewReceiver(timeout).ReadFrame(t)
	if err != nil {
		e.recordReceiveError(err)
		return nil, err
	}
	e.stats.record(func(s *Statistics) { s.ValidReplies++ })
	e.log.Debug("rx", zap.String("frame", hex.EncodeToString(frame.Bytes())))
	return frame, nil
}

func (e *Engine) recordReceiveError(err error) {
	e.stats.record(func(s *Statistics) {
		switch {
		case errors.Is(err, genibus.ErrChecksumMismatch):
			s.CRCErrors++
		case classifyExchange(err) == KindTimeout:
			s.Timeouts++
		case classifyExchange(err) == KindProtocol:
			s.ProtocolErrors++
		default:
			s.ConnectionErrors++
		}
	})
}
