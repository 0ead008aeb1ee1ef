// Package scheduler runs the repeating frame task behind the compositor. A
// task never overlaps itself: the next run is only scheduled once the
// current one has returned.
package scheduler

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/sharecrop/internal/timeutil"
)

// Task is a handle on a repeating job.
type Task interface {
	// Cancel stops future runs. A run already in progress completes.
	Cancel()
	// Done is closed once the task has been cancelled.
	Done() <-chan struct{}
}

// Scheduler starts repeating tasks.
type Scheduler interface {
	// Every runs fn as soon as possible, then again interval after each run
	// returns, until the task is cancelled.
	Every(interval time.Duration, fn func()) Task
}

// Host is a display-synchronised frame primitive such as a window's paint
// cycle. RequestFrame calls fn once, before the next frame is presented.
type Host interface {
	RequestFrame(fn func())
}

// New picks the host frame primitive when one is available and otherwise
// falls back to a fixed-delay timer on clock.
func New(host Host, clock timeutil.Clock) Scheduler {
	if host != nil {
		return &hostScheduler{host: host, clock: clock}
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &timerScheduler{clock: clock}
}

type task struct {
	mu        sync.Mutex
	cancelled bool
	timer     timeutil.Timer
	done      chan struct{}
	once      sync.Once
}

func newTask() *task {
	return &task{done: make(chan struct{})}
}

func (t *task) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	timer := t.timer
	t.timer = nil
	t.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
	t.once.Do(func() { close(t.done) })
}

func (t *task) Done() <-chan struct{} { return t.done }

func (t *task) isCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// arm stores the pending timer unless the task was cancelled meanwhile.
func (t *task) arm(schedule func() timeutil.Timer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return
	}
	t.timer = schedule()
}

type timerScheduler struct {
	clock timeutil.Clock
}

func (s *timerScheduler) Every(interval time.Duration, fn func()) Task {
	t := newTask()
	var run func()
	run = func() {
		if t.isCancelled() {
			return
		}
		fn()
		t.arm(func() timeutil.Timer { return s.clock.AfterFunc(interval, run) })
	}
	t.arm(func() timeutil.Timer { return s.clock.AfterFunc(0, run) })
	return t
}

// hostScheduler waits interval between frames, like the timer scheduler,
// but performs each run inside the host's frame callback.
type hostScheduler struct {
	host  Host
	clock timeutil.Clock
}

func (s *hostScheduler) Every(interval time.Duration, fn func()) Task {
	t := newTask()
	var run func()
	run = func() {
		if t.isCancelled() {
			return
		}
		fn()
		if s.clock == nil {
			if !t.isCancelled() {
				s.host.RequestFrame(run)
			}
			return
		}
		t.arm(func() timeutil.Timer {
			return s.clock.AfterFunc(interval, func() { s.host.RequestFrame(run) })
		})
	}
	s.host.RequestFrame(run)
	logrus.WithFields(logrus.Fields{
		"function": "Every",
		"interval": interval,
	}).Debug("frame task bound to host")
	return t
}

// Manual is a Scheduler driven by explicit Step calls. It is used by
// headless rendering and by tests that need to count frames.
type Manual struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	*task
	fn func()
}

// NewManual returns an empty Manual scheduler.
func NewManual() *Manual { return &Manual{} }

// Every registers fn. It runs on each Step until cancelled.
func (m *Manual) Every(_ time.Duration, fn func()) Task {
	mt := &manualTask{task: newTask(), fn: fn}
	m.mu.Lock()
	m.tasks = append(m.tasks, mt)
	m.mu.Unlock()
	return mt
}

// Step runs every live task once and drops cancelled ones. It returns the
// number of tasks that ran.
func (m *Manual) Step() int {
	m.mu.Lock()
	tasks := append([]*manualTask(nil), m.tasks...)
	m.mu.Unlock()

	ran := 0
	for _, t := range tasks {
		if t.isCancelled() {
			continue
		}
		t.fn()
		ran++
	}
	m.prune()
	return ran
}

// Live returns the number of tasks that have not been cancelled.
func (m *Manual) Live() int {
	m.prune()
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (m *Manual) prune() {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.isCancelled() {
			kept = append(kept, t)
		}
	}
	m.tasks = kept
}
