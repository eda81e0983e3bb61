package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Cheertaboi/esim-catalog-service/internal/apperror"
)

// State is the lifecycle of one keyed data source.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
	StateError   State = "error"
)

type entry[T any] struct {
	state    State
	value    T
	err      error
	loadedAt time.Time
	done     chan struct{}
}

// States tracks idle/loading/loaded/error per query key. Concurrent callers
// of a loading key share the one in-flight load; loaded values expire after
// ttl; errors are retried by the next caller.
type States[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	ttl     time.Duration
	now     func() time.Time
}

func NewStates[T any](ttl time.Duration) *States[T] {
	return &States[T]{
		entries: make(map[string]*entry[T]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Load returns the value for key, running load when the key is idle,
// expired or failed.
func (s *States[T]) Load(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if ok {
		switch e.state {
		case StateLoaded:
			if s.ttl <= 0 || s.now().Sub(e.loadedAt) < s.ttl {
				v := e.value
				s.mu.Unlock()
				return v, nil
			}
		case StateLoading:
			done := e.done
			s.mu.Unlock()
			select {
			case <-done:
				return e.value, e.err
			case <-ctx.Done():
				var zero T
				return zero, ctx.Err()
			}
		}
	}

	e = &entry[T]{state: StateLoading, done: make(chan struct{})}
	s.entries[key] = e
	s.mu.Unlock()

	v, err := runLoad(ctx, load)

	s.mu.Lock()
	if err != nil {
		e.state = StateError
		e.err = err
	} else {
		e.state = StateLoaded
		e.value = v
		e.loadedAt = s.now()
	}
	close(e.done)
	s.mu.Unlock()

	return v, err
}

// runLoad turns a panicking load into an error so the entry never stays
// loading.
func runLoad[T any](ctx context.Context, load func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, apperror.Newf(apperror.TypeInternal, "load panicked: %v", r)
		}
	}()
	// the load outlives the request that triggered it; waiters still need it
	return load(context.WithoutCancel(ctx))
}

// State reports the current state of key.
func (s *States[T]) State(key string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return e.state
	}
	return StateIdle
}

// Invalidate drops key back to idle. An in-flight load still completes for
// its waiters.
func (s *States[T]) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// InvalidateAll drops every key and returns how many were dropped.
func (s *States[T]) InvalidateAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	s.entries = make(map[string]*entry[T])
	return n
}
