// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package cu300

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatisticsSnapshot(t *testing.T) {
	s := NewStatistics()
	s.record(func(s *Statistics) {
		s.Exchanges = 10
		s.ValidReplies = 8
		s.Timeouts = 2
	})

	snap := s.Snapshot()
	assert.Equal(t, uint64(10), snap.Exchanges)
	assert.Equal(t, uint64(8), snap.ValidReplies)
	assert.Equal(t, uint64(2), snap.Timeouts)

	// Snapshot is a copy; later updates must not show through.
	s.record(func(s *Statistics) { s.Exchanges++ })
	assert.Equal(t, uint64(10), snap.Exchanges)
}

func TestStatisticsExchangeRate(t *testing.T) {
	s := NewStatistics()
	s.StartTime = time.Now().Add(-10 * time.Second)
	s.record(func(s *Statistics) { s.Exchanges = 20 })

	assert.InDelta(t, 2.0, s.ExchangeRate(), 0.1)
}
