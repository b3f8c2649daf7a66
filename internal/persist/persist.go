// Package persist writes snapshots locally and pushes them to the hosted
// repository with at most one push in flight.
package persist

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/memodesk/internal/checksum"
	"github.com/starford/memodesk/internal/localstore"
	"github.com/starford/memodesk/internal/metrics"
	"github.com/starford/memodesk/internal/models"
	"github.com/starford/memodesk/internal/remote"
)

// Sync event kinds passed to a Notifier.
const (
	EventSyncSucceeded = "sync.succeeded"
	EventSyncFailed    = "sync.failed"
)

// Notifier is told about the outcome of every remote push.
type Notifier func(kind string, err error)

// Persister owns the save path: a synchronous local write followed by a
// queued remote push. Pushes requested while one is running collapse into
// a single follow-up push of the newest snapshot.
type Persister struct {
	local  *localstore.Store
	remote *remote.Adapter
	logger *slog.Logger
	notify Notifier

	kick chan struct{}

	mu         sync.Mutex
	pending    []byte
	hasPending bool
	inFlight   bool
	lastPushed string
	waiters    []chan struct{}
}

// New creates a Persister. remote may be nil for local-only operation.
func New(local *localstore.Store, rem *remote.Adapter, logger *slog.Logger, notify Notifier) *Persister {
	return &Persister{
		local:  local,
		remote: rem,
		logger: logger,
		notify: notify,
		kick:   make(chan struct{}, 1),
	}
}

// Load returns the persisted snapshot (hosted copy first in remote mode),
// or nil when nothing has been saved.
func (p *Persister) Load(ctx context.Context) (*models.Snapshot, error) {
	if p.remote != nil {
		return p.remote.Load(ctx)
	}
	return p.local.Load()
}

// Save writes snap locally and, when the remote side is active, schedules a
// push. A local write failure is returned and no push is scheduled.
func (p *Persister) Save(snap models.Snapshot) error {
	data, err := localstore.Encode(snap)
	if err != nil {
		return err
	}
	if err := p.local.SaveRaw(data); err != nil {
		metrics.LocalSaves.WithLabelValues(metrics.ResultError).Inc()
		p.logger.Error("persist: local save failed", slog.String("error", err.Error()))
		return err
	}
	metrics.LocalSaves.WithLabelValues(metrics.ResultOK).Inc()

	if p.remote == nil || !p.remote.Active() {
		return nil
	}

	p.mu.Lock()
	if p.hasPending {
		metrics.CoalescedPushes.Inc()
	}
	p.pending = data
	p.hasPending = true
	p.mu.Unlock()

	select {
	case p.kick <- struct{}{}:
	default:
	}
	return nil
}

// Run drives remote pushes until ctx is cancelled, then makes one last
// attempt to push anything still pending.
func (p *Persister) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			p.drain(drainCtx)
			cancel()
			return nil
		case <-p.kick:
			p.drain(ctx)
		}
	}
}

// Flush blocks until no push is pending or running.
func (p *Persister) Flush(ctx context.Context) error {
	p.mu.Lock()
	if !p.hasPending && !p.inFlight {
		p.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	p.waiters = append(p.waiters, ch)
	p.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Persister) drain(ctx context.Context) {
	for {
		p.mu.Lock()
		if !p.hasPending {
			p.inFlight = false
			for _, ch := range p.waiters {
				close(ch)
			}
			p.waiters = nil
			p.mu.Unlock()
			return
		}
		data := p.pending
		p.pending, p.hasPending = nil, false
		p.inFlight = true
		p.mu.Unlock()

		p.push(ctx, data)
	}
}

func (p *Persister) push(ctx context.Context, data []byte) {
	sum := checksum.Sum(data)

	p.mu.Lock()
	unchanged := sum == p.lastPushed
	p.mu.Unlock()
	if unchanged {
		metrics.RemotePushes.WithLabelValues(metrics.ResultSkipped).Inc()
		p.logger.Debug("persist: snapshot unchanged since last push")
		return
	}

	// Save already wrote data locally, and a newer Save may have written
	// over it since; a failed push must not put data back.
	err := p.remote.Upload(ctx, data)
	switch {
	case errors.Is(err, remote.ErrInactive):
		metrics.RemotePushes.WithLabelValues(metrics.ResultSkipped).Inc()
	case err != nil:
		metrics.RemotePushes.WithLabelValues(metrics.ResultError).Inc()
		p.logger.Error("persist: remote push failed", slog.String("error", err.Error()))
		if p.notify != nil {
			p.notify(EventSyncFailed, err)
		}
	default:
		metrics.RemotePushes.WithLabelValues(metrics.ResultOK).Inc()
		p.mu.Lock()
		p.lastPushed = sum
		p.mu.Unlock()
		if p.notify != nil {
			p.notify(EventSyncSucceeded, nil)
		}
	}
}
