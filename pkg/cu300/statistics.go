// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package cu300

import (
	"sync"
	"time"
)

// Statistics tracks exchange outcomes and error rates for one engine.
type Statistics struct {
	mu sync.Mutex

	StartTime time.Time

	Exchanges        uint64
	ValidReplies     uint64
	CRCErrors        uint64
	Timeouts         uint64
	ProtocolErrors   uint64
	ConnectionErrors uint64
	Reconnects       uint64
}

// NewStatistics creates a statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{StartTime: time.Now()}
}

func (s *Statistics) record(f func(*Statistics)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s)
}

// Snapshot returns a copy safe to read without synchronization.
func (s *Statistics) Snapshot() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Statistics{
		StartTime:        s.StartTime,
		Exchanges:        s.Exchanges,
		ValidReplies:     s.ValidReplies,
		CRCErrors:        s.CRCErrors,
		Timeouts:         s.Timeouts,
		ProtocolErrors:   s.ProtocolErrors,
		ConnectionErrors: s.ConnectionErrors,
		Reconnects:       s.Reconnects,
	}
}

// ExchangeRate returns completed exchanges per second since start.
func (s *Statistics) ExchangeRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.Exchanges) / elapsed
}
