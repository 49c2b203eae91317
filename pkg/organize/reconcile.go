package organize

import (
	"context"
	"sync"

	"github.com/kadoten/drivemaid/pkg/utils/logging"
)

// Reconciler serializes webhook-triggered passes. Triggers are collapsed
// into a single-slot queue: while one pass runs and one is pending, further
// triggers are dropped, so rapid notification bursts cause at most one
// follow-up pass and two passes never run concurrently.
type Reconciler struct {
	organizer *Organizer
	trigger   chan struct{}

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

func NewReconciler(organizer *Organizer) *Reconciler {
	return &Reconciler{
		organizer: organizer,
		trigger:   make(chan struct{}, 1),
	}
}

// Start launches the background worker. It returns immediately; the worker
// stops when ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}
	r.running = true
	r.done = make(chan struct{})

	go r.loop(ctx)
}

func (r *Reconciler) loop(ctx context.Context) {
	defer func() {
		r.mu.Lock()
		r.running = false
		close(r.done)
		r.mu.Unlock()
	}()

	logger := logging.From(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.trigger:
			stats, err := r.organizer.Run(ctx)
			if err != nil {
				logger.Error("reconciliation pass failed", "error", err)
				continue
			}
			logger.Info("reconciliation pass finished",
				"total", stats.Total,
				"organized", stats.Organized,
				"skipped", stats.Skipped,
				"errors", stats.Errors,
			)
		}
	}
}

// Trigger requests a reconciliation pass. It never blocks; when a pass is
// already pending the trigger is merged into it.
func (r *Reconciler) Trigger() bool {
	select {
	case r.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Active reports whether the background worker is running.
func (r *Reconciler) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Wait blocks until the worker has stopped after its context was cancelled.
func (r *Reconciler) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()

	if done != nil {
		<-done
	}
}
