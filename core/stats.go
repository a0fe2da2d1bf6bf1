package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// CallStats counts backend calls per role for one session. It is owned by the
// session and passed explicitly to every call site; there is no package-level
// singleton. Safe for concurrent use.
type CallStats struct {
	mu             sync.Mutex
	totalCalls     int
	callsByRole    map[Role]int
	tokensEstimate int
}

// NewCallStats returns an empty counter.
func NewCallStats() *CallStats {
	return &CallStats{callsByRole: make(map[Role]int)}
}

// Record registers one backend call for role with an optional token estimate.
func (s *CallStats) Record(role Role, tokensEstimate int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalCalls++
	s.callsByRole[role]++
	s.tokensEstimate += tokensEstimate
}

// Reset clears all counters. Called at session boundaries.
func (s *CallStats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalCalls = 0
	s.callsByRole = make(map[Role]int)
	s.tokensEstimate = 0
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	TotalCalls     int
	CallsByRole    map[Role]int
	TokensEstimate int
}

// Snapshot returns a copy of the current counters.
func (s *CallStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	byRole := make(map[Role]int, len(s.callsByRole))
	for r, n := range s.callsByRole {
		byRole[r] = n
	}
	return StatsSnapshot{
		TotalCalls:     s.totalCalls,
		CallsByRole:    byRole,
		TokensEstimate: s.tokensEstimate,
	}
}

// Summary renders the counters as a short human-readable block.
func (s *CallStats) Summary() string {
	snap := s.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "backend calls: %d", snap.TotalCalls)
	roles := make([]string, 0, len(snap.CallsByRole))
	for r := range snap.CallsByRole {
		roles = append(roles, string(r))
	}
	sort.Strings(roles)
	for _, r := range roles {
		fmt.Fprintf(&b, "\n  %s: %d", r, snap.CallsByRole[Role(r)])
	}
	if snap.TokensEstimate > 0 {
		fmt.Fprintf(&b, "\nestimated tokens: ~%d", snap.TokensEstimate)
	}
	return b.String()
}
