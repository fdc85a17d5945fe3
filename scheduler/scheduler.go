package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"hyprice/middleware"
	"hyprice/models"
	"hyprice/refresh"
	"hyprice/sink"
	"hyprice/utils"
)

// Refresher runs one refresh pass for a subscriber.
type Refresher interface {
	Refresh(ctx context.Context, subscriberID int64, mode refresh.Mode) (refresh.Result, error)
}

// ViewSource provides subscriber state for rendering after a tick.
// Lookups are read-only: a subscriber reset while its pass ran yields
// nil and must not be re-created.
type ViewSource interface {
	View(id int64) *models.Subscriber
}

// Renderer turns subscriber state into a deliverable view.
type Renderer func(*models.Subscriber) models.RenderedView

type loop struct {
	cancel   context.CancelFunc
	inFlight atomic.Bool
}

// Manager runs one periodic refresh loop per active subscriber. Loops
// tick independently; no subscriber's pass blocks another's.
type Manager struct {
	mu    sync.Mutex
	loops map[int64]*loop

	engine   Refresher
	views    ViewSource
	render   Renderer
	out      sink.PresentationSink
	interval time.Duration
}

func NewManager(engine Refresher, views ViewSource, render Renderer, out sink.PresentationSink, interval time.Duration) *Manager {
	return &Manager{
		loops:    make(map[int64]*loop),
		engine:   engine,
		views:    views,
		render:   render,
		out:      out,
		interval: interval,
	}
}

// Start begins the refresh loop for a subscriber. Starting an already
// active subscriber is a no-op; returns whether a new loop was started.
func (m *Manager) Start(id int64) bool {
	m.mu.Lock()
	if _, active := m.loops[id]; active {
		m.mu.Unlock()
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &loop{cancel: cancel}
	m.loops[id] = l
	m.mu.Unlock()

	go middleware.RecoverGoroutine("refresh-loop", func() {
		m.run(ctx, id, l)
	})

	utils.Logger.Infow("Refresh loop started", "subscriber", id, "interval", m.interval)
	return true
}

// Stop cancels a subscriber's loop. A pass already in flight completes
// and its delivery is suppressed. Stopping an inactive subscriber is a
// no-op; returns whether a loop was actually stopped.
func (m *Manager) Stop(id int64) bool {
	m.mu.Lock()
	l, active := m.loops[id]
	if active {
		delete(m.loops, id)
	}
	m.mu.Unlock()

	if !active {
		return false
	}
	l.cancel()
	utils.Logger.Infow("Refresh loop stopped", "subscriber", id)
	return true
}

// StopAll cancels every active loop.
func (m *Manager) StopAll() {
	m.mu.Lock()
	loops := m.loops
	m.loops = make(map[int64]*loop)
	m.mu.Unlock()

	for _, l := range loops {
		l.cancel()
	}
	if len(loops) > 0 {
		utils.Logger.Infow("All refresh loops stopped", "count", len(loops))
	}
}

// Active reports whether a subscriber currently has a running loop.
func (m *Manager) Active(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.loops[id]
	return ok
}

// Count returns the number of active loops.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loops)
}

func (m *Manager) run(ctx context.Context, id int64, l *loop) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Skip, never queue: a slow pass must not pile up ticks.
			if !l.inFlight.CompareAndSwap(false, true) {
				utils.Logger.Debugw("Previous pass still running, tick skipped", "subscriber", id)
				continue
			}
			go middleware.RecoverGoroutine("refresh-tick", func() {
				defer l.inFlight.Store(false)
				m.tick(ctx, id)
			})
		}
	}
}

func (m *Manager) tick(ctx context.Context, id int64) {
	res, err := m.engine.Refresh(ctx, id, refresh.Scheduled)
	if err != nil {
		// Cancelled mid-pass; the result is discarded.
		return
	}
	if !res.AnyUpdated {
		return
	}
	// The loop may have been stopped while the pass ran; deliver
	// nothing for a removed subscriber.
	if ctx.Err() != nil {
		return
	}

	sub := m.views.View(id)
	if sub == nil {
		return
	}
	view := m.render(sub)
	if err := m.out.Deliver(id, view); err != nil {
		utils.Error(err, "View delivery failed", "subscriber", id)
	}
}
