package sessiondriver

import (
	"sort"
	"sync"
	"time"
)

// Scheduler runs fn every d until the returned cancel function is called.
type Scheduler interface {
	Every(d time.Duration, fn func()) (cancel func())
}

// TickerScheduler runs callbacks on time.Ticker goroutines.
type TickerScheduler struct{}

func (TickerScheduler) Every(d time.Duration, fn func()) func() {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return sync.OnceFunc(func() { close(done) })
}

// ManualScheduler fires callbacks only when Advance is called.
type ManualScheduler struct {
	mu   sync.Mutex
	now  time.Duration
	seq  int
	jobs map[int]*manualJob
}

type manualJob struct {
	id     int
	every  time.Duration
	next   time.Duration
	fn     func()
	active bool
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{jobs: make(map[int]*manualJob)}
}

func (m *ManualScheduler) Every(d time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	job := &manualJob{id: m.seq, every: d, next: m.now + d, fn: fn, active: true}
	m.jobs[job.id] = job
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		job.active = false
		delete(m.jobs, job.id)
	}
}

// Active returns the number of scheduled callbacks.
func (m *ManualScheduler) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// Advance moves the clock forward by d and fires every callback that falls
// due, in time order. Callbacks run without the scheduler lock held.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		var due []*manualJob
		for _, j := range m.jobs {
			if j.next <= target {
				due = append(due, j)
			}
		}
		if len(due) == 0 {
			m.now = target
			m.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, k int) bool {
			if due[i].next == due[k].next {
				return due[i].id < due[k].id
			}
			return due[i].next < due[k].next
		})
		job := due[0]
		m.now = job.next
		job.next += job.every
		active := job.active
		m.mu.Unlock()

		if active {
			job.fn()
		}
	}
}
