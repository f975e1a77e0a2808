package daemon

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/mediabridge/mediabridge/internal/bridge"
)

// Status keeps the outcome of the most recent passes for the status API.
type Status struct {
	mu       sync.RWMutex
	started  time.Time
	passes   int
	lastPass *PassResult
	reports  map[string]*bridge.Report
}

func NewStatus(now time.Time) *Status {
	return &Status{
		started: now,
		reports: make(map[string]*bridge.Report),
	}
}

func (s *Status) recordReport(r *bridge.Report) {
	if r == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.Root] = r
}

func (s *Status) recordPass(p *PassResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passes++
	s.lastPass = p
}

type StatusSnapshot struct {
	StartedAt time.Time        `json:"started_at"`
	Passes    int              `json:"passes"`
	LastPass  *PassResult      `json:"last_pass,omitempty"`
	Roots     []*bridge.Report `json:"roots"`
}

func (s *Status) Snapshot() StatusSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roots := make([]*bridge.Report, 0, len(s.reports))
	for _, name := range slices.Sorted(maps.Keys(s.reports)) {
		roots = append(roots, s.reports[name])
	}
	return StatusSnapshot{
		StartedAt: s.started,
		Passes:    s.passes,
		LastPass:  s.lastPass,
		Roots:     roots,
	}
}
