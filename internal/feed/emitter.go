package feed

import (
	"context"
	"sync"
	"time"

	"github.com/woozymasta/floorguide/internal/geo"

	"github.com/rs/zerolog/log"
)

// DefaultInterval is the polling interval used when none is given.
const DefaultInterval = 100 * time.Millisecond

// Handler receives every emitted position.
type Handler func(geo.GeoPoint)

// Emitter polls a Source on an interval and pushes each position to its subscribers.
// Samples are delivered as they come; nothing is buffered or debounced.
type Emitter struct {
	source   Source
	handlers map[uint64]Handler
	latest   geo.GeoPoint
	interval time.Duration
	nextID   uint64
	mu       sync.RWMutex
	hasFix   bool
}

// NewEmitter creates an emitter polling src every interval.
func NewEmitter(src Source, interval time.Duration) *Emitter {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Emitter{
		source:   src,
		interval: interval,
		handlers: make(map[uint64]Handler),
	}
}

// Subscribe registers fn and returns a function removing it again.
func (e *Emitter) Subscribe(fn Handler) (unsubscribe func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.handlers[id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.handlers, id)
			e.mu.Unlock()
		})
	}
}

// Latest returns the last emitted position, if any.
func (e *Emitter) Latest() (geo.GeoPoint, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latest, e.hasFix
}

// Run emits one position immediately and then one per tick until ctx is done.
func (e *Emitter) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	log.Debug().Dur("interval", e.interval).Msg("Position feed started")

	e.Emit(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("Position feed stopped")
			return
		case <-ticker.C:
			e.Emit(ctx)
		}
	}
}

// Emit queries the source once and notifies subscribers.
// A failed query is logged and skipped.
func (e *Emitter) Emit(ctx context.Context) {
	p, err := e.source.Position(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Msg("Failed to read position")
		}
		return
	}

	e.mu.Lock()
	e.latest = p
	e.hasFix = true
	handlers := make([]Handler, 0, len(e.handlers))
	for _, h := range e.handlers {
		handlers = append(handlers, h)
	}
	e.mu.Unlock()

	for _, h := range handlers {
		h(p)
	}
}
