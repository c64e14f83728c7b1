// Package admission provides per-client admission control: a fairness queue
// with strict FIFO ordering and a single concurrent execution slot per client
// identifier, so one caller can't starve others or run its own requests in
// parallel. States with the slot held or with waiters are pinned in memory,
// only fully idle client states live in a bounded LRU cache with TTL and get
// evicted over time.
package admission

import (
	"context"
	"errors"
	"sync"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v3"
)

// ErrCapacityExceeded is returned by Acquire when the client's queue is full.
// The request is rejected immediately, nothing is enqueued.
var ErrCapacityExceeded = errors.New("too many queued requests")

// default limits, match the single-concurrency-per-client model with up to
// 20 occupants (one active plus waiters) per client id
const (
	defaultMaxPerClient = 20
	defaultMaxClients   = 10000
	defaultClientTTL    = 30 * time.Minute
)

// Queue serializes requests per client identifier.
type Queue struct {
	maxPerClient int
	ttl          time.Duration
	active       map[string]*clientState           // states holding the slot or with waiters, never evicted
	idle         cache.Cache[string, *clientState] // fully idle states, bounded with TTL
	mu           sync.Mutex
}

// clientState is created lazily on the first request from a new client id.
type clientState struct {
	waiting []*ticket // FIFO order, earliest first
	busy    bool      // exclusive execution slot
}

// ticket represents one caller's position in the queue. It is granted exactly
// once or removed on cancellation, never both.
type ticket struct {
	ready   chan struct{}
	granted bool
}

// NewQueue makes an admission queue. Zero values pick the defaults:
// 20 occupants per client, 10k tracked idle clients, 30m idle TTL.
func NewQueue(maxPerClient, maxClients int, ttl time.Duration) *Queue {
	if maxPerClient <= 0 {
		maxPerClient = defaultMaxPerClient
	}
	if maxClients <= 0 {
		maxClients = defaultMaxClients
	}
	if ttl <= 0 {
		ttl = defaultClientTTL
	}
	return &Queue{
		maxPerClient: maxPerClient,
		ttl:          ttl,
		active:       map[string]*clientState{},
		idle:         cache.NewCache[string, *clientState]().WithMaxKeys(maxClients).WithTTL(ttl),
	}
}

// Acquire blocks until the caller holds the client's exclusive execution slot.
// It fails immediately with ErrCapacityExceeded when the client already has
// maxPerClient requests in flight or queued. Cancelling ctx while queued
// removes the ticket at whatever position it occupies; a grant racing the
// cancellation is passed on to the next waiter.
func (q *Queue) Acquire(ctx context.Context, clientID string) error {
	q.mu.Lock()
	st := q.state(clientID)

	occupied := len(st.waiting)
	if st.busy {
		occupied++
	}
	if occupied >= q.maxPerClient {
		q.mu.Unlock()
		return ErrCapacityExceeded
	}

	if !st.busy && len(st.waiting) == 0 {
		st.busy = true
		q.park(clientID, st)
		q.mu.Unlock()
		return nil
	}

	t := &ticket{ready: make(chan struct{})}
	st.waiting = append(st.waiting, t)
	q.park(clientID, st)
	q.mu.Unlock()

	select {
	case <-t.ready:
		return nil
	case <-ctx.Done():
		q.mu.Lock()
		defer q.mu.Unlock()
		if t.granted {
			// release raced the cancellation and handed us the slot, pass it on
			q.release(clientID)
			return ctx.Err()
		}
		for i, w := range st.waiting {
			if w == t {
				st.waiting = append(st.waiting[:i], st.waiting[i+1:]...)
				break
			}
		}
		q.park(clientID, st)
		return ctx.Err()
	}
}

// Release frees the client's exclusive slot and hands it to the earliest
// still-queued ticket as a single atomic step.
func (q *Queue) Release(clientID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.release(clientID)
}

// Pending returns the number of requests waiting for the client's slot.
func (q *Queue) Pending(clientID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if st, ok := q.lookup(clientID); ok {
		return len(st.waiting)
	}
	return 0
}

// Active reports if the client currently holds its execution slot.
func (q *Queue) Active(clientID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if st, ok := q.lookup(clientID); ok {
		return st.busy
	}
	return false
}

// release must be called with the lock held. Cancelled tickets are removed
// from waiting eagerly, so the head is always a live caller.
func (q *Queue) release(clientID string) {
	st := q.state(clientID)
	st.busy = false
	if len(st.waiting) > 0 {
		t := st.waiting[0]
		st.waiting = st.waiting[1:]
		st.busy = true
		t.granted = true
		close(t.ready)
	}
	q.park(clientID, st)
}

// state returns the client's state, creating it on first use. Must be called
// with the lock held.
func (q *Queue) state(clientID string) *clientState {
	if st, ok := q.lookup(clientID); ok {
		return st
	}
	return &clientState{}
}

// lookup finds an existing client state, pinned or idle. Must be called with
// the lock held.
func (q *Queue) lookup(clientID string) (*clientState, bool) {
	if st, ok := q.active[clientID]; ok {
		return st, true
	}
	if st, ok := q.idle.Get(clientID); ok {
		return st, true
	}
	return nil, false
}

// park files the state after a mutation: non-idle states are pinned in the
// active map so LRU eviction can't lose a held slot or parked waiters, fully
// idle states are demoted to the expirable cache and aged out from there.
// Must be called with the lock held.
func (q *Queue) park(clientID string, st *clientState) {
	if st.busy || len(st.waiting) > 0 {
		q.active[clientID] = st
		q.idle.Invalidate(clientID)
		return
	}
	delete(q.active, clientID)
	q.idle.Set(clientID, st, q.ttl)
}
