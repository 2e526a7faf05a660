// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package cu300

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Snapshot is the coordinator's view of the device. When a poll fails the
// previous values stay visible but Available flips to false: stale data is
// marked stale, never replaced with fabrications.
type Snapshot struct {
	Values     map[string]float64
	Available  bool
	LastUpdate time.Time
	LastError  error
	State      ConnState
}

// Coordinator owns the periodic poll cycle and the reconnect policy. It is
// the thin facade callers use instead of the engine directly: commands pass
// through, failures come back with their ErrorKind intact, and connection
// failures additionally schedule a background reconnect.
type Coordinator struct {
	engine   *Engine
	interval time.Duration
	log      *zap.Logger

	mu   sync.RWMutex
	snap Snapshot

	reconnectCh chan struct{}
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewCoordinator creates a coordinator polling at the given interval.
func NewCoordinator(engine *Engine, interval time.Duration, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		engine:      engine,
		interval:    interval,
		log:         log,
		reconnectCh: make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

// Start connects the engine and launches the poll loop. It returns the
// connect error if the initial connection fails; the loop is not started in
// that case.
func (c *Coordinator) Start(ctx context.Context) error {
	if err := c.engine.Connect(ctx); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go c.run(runCtx)
	return nil
}

// Stop cancels the poll loop, waits for it to unwind, and disconnects.
// A reconnect queued or in flight observes the cancellation and aborts.
func (c *Coordinator) Stop() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	_ = c.engine.Disconnect()
}

// Done reports loop termination, for callers that supervise shutdown.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Prime the snapshot immediately instead of waiting a full interval.
	c.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollOnce(ctx)
		case <-c.reconnectCh:
			if err := c.engine.Reconnect(ctx); err != nil {
				c.log.Warn("reconnect failed", zap.Error(err))
				// Try again next cycle unless we are shutting down.
				if ctx.Err() == nil {
					c.scheduleReconnect()
				}
			} else {
				c.log.Info("reconnected")
			}
		}
	}
}

func (c *Coordinator) pollOnce(ctx context.Context) {
	values, err := c.engine.PollData(ctx)

	c.mu.Lock()
	c.snap.State = c.engine.State()
	if err != nil {
		c.snap.Available = false
		c.snap.LastError = err
	} else {
		c.snap.Values = values
		c.snap.Available = true
		c.snap.LastUpdate = time.Now()
		c.snap.LastError = nil
	}
	c.mu.Unlock()

	if err != nil {
		c.handlePollError(ctx, err)
	}
}

func (c *Coordinator) handlePollError(ctx context.Context, err error) {
	switch Kind(err) {
	case KindConnection, KindTimeout:
		c.log.Warn("poll failed, scheduling reconnect", zap.Error(err))
		if ctx.Err() == nil {
			c.scheduleReconnect()
		}
	default:
		c.log.Warn("poll failed", zap.Error(err))
	}
}

func (c *Coordinator) scheduleReconnect() {
	select {
	case c.reconnectCh <- struct{}{}:
	default: // one queued reconnect is enough
	}
}

// Snapshot returns the last known device state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := c.snap
	snap.State = c.engine.State()
	if c.snap.Values != nil {
		snap.Values = make(map[string]float64, len(c.snap.Values))
		for k, v := range c.snap.Values {
			snap.Values[k] = v
		}
	}
	return snap
}

// PollNow performs an immediate poll outside the periodic cycle.
func (c *Coordinator) PollNow(ctx context.Context) (map[string]float64, error) {
	values, err := c.engine.PollData(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.State = c.engine.State()
	if err != nil {
		c.snap.Available = false
		c.snap.LastError = err
		return nil, err
	}
	c.snap.Values = values
	c.snap.Available = true
	c.snap.LastUpdate = time.Now()
	c.snap.LastError = nil
	return values, nil
}

// StartPump passes through to the engine.
func (c *Coordinator) StartPump(ctx context.Context) error {
	return c.commandResult(ctx, c.engine.StartPump(ctx))
}

// StopPump passes through to the engine.
func (c *Coordinator) StopPump(ctx context.Context) error {
	return c.commandResult(ctx, c.engine.StopPump(ctx))
}

// SetReference passes through to the engine.
func (c *Coordinator) SetReference(ctx context.Context, value int) error {
	return c.commandResult(ctx, c.engine.SetReference(ctx, value))
}

// commandResult surfaces command failures unchanged but lets connection
// failures trigger the reconnect policy, same as a failed poll.
func (c *Coordinator) commandResult(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) == KindConnection && ctx.Err() == nil {
		c.scheduleReconnect()
	}
	return err
}
