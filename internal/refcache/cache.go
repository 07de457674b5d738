// Package refcache keeps an in-memory view of the reference collections,
// refreshed by polling on a fixed interval. Reads of reference data are
// non-critical: a failed refresh keeps the previous snapshot and logs a
// warning so the app stays usable while the backend is degraded.
package refcache

import (
	"context"
	"log"
	"sync"
	"time"

	"hadirku/internal/model"
	"hadirku/internal/store"
)

// Snapshot is one immutable view of the reference data.
type Snapshot struct {
	Students    []model.Student
	Teachers    []model.Teacher
	Subjects    []model.Subject
	Schedules   []model.Schedule
	RefreshedAt time.Time
}

// Cache polls the gateway and swaps snapshots atomically.
type Cache struct {
	gw       store.Gateway
	interval time.Duration

	mu   sync.RWMutex
	snap Snapshot

	stop chan struct{}
	done chan struct{}
}

// New builds a cache and performs the initial refresh synchronously so the
// first read never sees an empty view on a healthy backend.
func New(ctx context.Context, gw store.Gateway, interval time.Duration) *Cache {
	if interval <= 0 {
		interval = time.Minute
	}
	c := &Cache{
		gw:       gw,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	c.refresh(ctx)
	go c.run()
	return c
}

func (c *Cache) run() {
	defer close(c.done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.refresh(context.Background())
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) refresh(ctx context.Context) {
	next := Snapshot{RefreshedAt: time.Now()}
	ok := true

	if students, err := store.List[model.Student](ctx, c.gw, store.Students); err == nil {
		next.Students = students
	} else {
		log.Printf("warning: refresh students: %v", err)
		ok = false
	}
	if teachers, err := store.List[model.Teacher](ctx, c.gw, store.Teachers); err == nil {
		next.Teachers = teachers
	} else {
		log.Printf("warning: refresh teachers: %v", err)
		ok = false
	}
	if subjects, err := store.List[model.Subject](ctx, c.gw, store.Subjects); err == nil {
		next.Subjects = subjects
	} else {
		log.Printf("warning: refresh subjects: %v", err)
		ok = false
	}
	if schedules, err := store.List[model.Schedule](ctx, c.gw, store.Schedules); err == nil {
		next.Schedules = schedules
	} else {
		log.Printf("warning: refresh schedules: %v", err)
		ok = false
	}

	if !ok {
		// partial failure: keep the last good snapshot rather than
		// replacing loaded collections with empty ones
		return
	}
	c.mu.Lock()
	c.snap = next
	c.mu.Unlock()
}

// Snapshot returns the current view.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Stop cancels the poller and waits for it to exit.
func (c *Cache) Stop() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
	<-c.done
}
