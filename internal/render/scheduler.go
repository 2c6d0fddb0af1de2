// Package render draws the live preview: it resolves the clip under the
// playhead, keeps the media element on the right source and composites the
// current frame over the styled background.
package render

import (
	"context"
	"sync"
	"time"
)

// FrameDriver is an animation-frame source. RequestFrame arranges for fn to run
// once on the next frame.
type FrameDriver interface {
	RequestFrame(fn func())
}

// SchedulerState is the lifecycle of the single in-flight frame
type SchedulerState int

const (
	StateIdle SchedulerState = iota
	StateScheduled
	StateRunning
)

func (s SchedulerState) String() string {
	switch s {
	case StateScheduled:
		return "scheduled"
	case StateRunning:
		return "running"
	default:
		return "idle"
	}
}

// Scheduler keeps at most one frame in flight. Requests while a frame is
// scheduled are coalesced; a request while a frame runs queues exactly one
// follow-up frame.
type Scheduler struct {
	driver FrameDriver
	frame  func()

	mu      sync.Mutex
	state   SchedulerState
	pending bool
	stopped bool
}

// NewScheduler runs frame on frames obtained from driver
func NewScheduler(driver FrameDriver, frame func()) *Scheduler {
	return &Scheduler{driver: driver, frame: frame}
}

// Request asks for a frame
func (s *Scheduler) Request() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	switch s.state {
	case StateIdle:
		s.state = StateScheduled
		s.mu.Unlock()
		s.driver.RequestFrame(s.run)
		return
	case StateRunning:
		s.pending = true
	}
	s.mu.Unlock()
}

// State returns the current scheduler state
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stop drops any scheduled frame and ignores further requests
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.pending = false
	if s.state == StateScheduled {
		s.state = StateIdle
	}
}

func (s *Scheduler) run() {
	s.mu.Lock()
	if s.stopped || s.state != StateScheduled {
		s.mu.Unlock()
		return
	}
	s.state = StateRunning
	s.mu.Unlock()

	s.frame()

	s.mu.Lock()
	if s.pending && !s.stopped {
		s.pending = false
		s.state = StateScheduled
		s.mu.Unlock()
		s.driver.RequestFrame(s.run)
		return
	}
	s.state = StateIdle
	s.mu.Unlock()
}

// TickerDriver delivers frames from a fixed-rate ticker goroutine. Callbacks
// requested during one tick run on the next.
type TickerDriver struct {
	interval time.Duration

	mu    sync.Mutex
	queue []func()
}

// NewTickerDriver creates a driver ticking fps times per second
func NewTickerDriver(fps int) *TickerDriver {
	if fps <= 0 {
		fps = 30
	}
	return &TickerDriver{interval: time.Second / time.Duration(fps)}
}

func (d *TickerDriver) RequestFrame(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, fn)
}

// Run delivers frames until ctx is done
func (d *TickerDriver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.mu.Lock()
			queue := d.queue
			d.queue = nil
			d.mu.Unlock()
			for _, fn := range queue {
				fn()
			}
		}
	}
}
