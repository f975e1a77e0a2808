// Package daemon runs the sync engine continuously: a poller that syncs every
// root once per interval, a status server, and the supervisor tree tying
// them together.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mediabridge/mediabridge/internal/bridge"
	"github.com/mediabridge/mediabridge/internal/metrics"
)

// Syncer drains one root; *bridge.Synchronizer is the production one.
type Syncer interface {
	Sync(ctx context.Context, root bridge.Root) (*bridge.Report, error)
}

type PassResult struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Synced    int       `json:"synced"`
	Failed    int       `json:"failed"`
	Aborted   bool      `json:"aborted"`
	Error     string    `json:"error,omitempty"`

	err error
}

// Err joins the root failures of the pass.
func (r *PassResult) Err() error {
	return r.err
}

type Poller struct {
	syncer   Syncer
	roots    []bridge.Root
	interval time.Duration
	clock    clockwork.Clock
	status   *Status
	logger   *slog.Logger
}

type PollerOption func(*Poller)

func WithClock(clock clockwork.Clock) PollerOption {
	return func(p *Poller) {
		p.clock = clock
	}
}

func WithStatus(status *Status) PollerOption {
	return func(p *Poller) {
		p.status = status
	}
}

func WithPollerLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) {
		p.logger = logger
	}
}

func NewPoller(syncer Syncer, roots []bridge.Root, interval time.Duration, opts ...PollerOption) *Poller {
	p := &Poller{
		syncer:   syncer,
		roots:    roots,
		interval: interval,
		clock:    clockwork.NewRealClock(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.status == nil {
		p.status = NewStatus(p.clock.Now())
	}
	return p
}

func (p *Poller) Status() *Status {
	return p.status
}

// Serve runs a pass, then waits one interval, until ctx is done. The wait
// starts after the pass finished, so a slow pass never queues another.
func (p *Poller) Serve(ctx context.Context) error {
	p.logger.Info("poller start", "roots", len(p.roots), "interval", p.interval)

	for {
		p.RunPass(ctx)

		timer := p.clock.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info("poller stop")
			return ctx.Err()
		case <-timer.Chan():
		}
	}
}

// RunPass syncs every root once, in order. A failing root is logged and the
// next one runs; a registry persist failure ends the pass.
func (p *Poller) RunPass(ctx context.Context) *PassResult {
	result := &PassResult{
		ID:        uuid.NewString(),
		StartedAt: p.clock.Now(),
	}
	logger := p.logger.With("pass", result.ID)
	logger.Debug("pass start")

	var errs []error
	for _, root := range p.roots {
		if ctx.Err() != nil {
			result.Aborted = true
			errs = append(errs, ctx.Err())
			break
		}

		report, err := p.syncer.Sync(ctx, root)
		p.status.recordReport(report)
		if err == nil {
			result.Synced++
			continue
		}

		result.Failed++
		errs = append(errs, err)
		if bridge.IsPersistError(err) {
			logger.Error("registry write failed, pass aborted", "root", root.Name, "error", err)
			result.Aborted = true
			break
		}
		logger.Warn("root sync failed", "root", root.Name, "error", err)
	}

	result.Duration = p.clock.Since(result.StartedAt).Round(time.Millisecond).String()
	result.err = errors.Join(errs...)
	if result.err != nil {
		result.Error = result.err.Error()
	}

	outcome := metrics.ResultOK
	switch {
	case result.Aborted:
		outcome = metrics.ResultAborted
	case result.Failed > 0:
		outcome = metrics.ResultPartial
	}
	metrics.PassesTotal.WithLabelValues(outcome).Inc()
	p.status.recordPass(result)

	logger.Info("pass done", "synced", result.Synced, "failed", result.Failed, "aborted", result.Aborted, "duration", result.Duration)
	return result
}

func (p *Poller) String() string {
	return "poller"
}
