// Package syncengine pull-replicates the shared store into client memory on
// a fixed cadence and reconciles the process-local identity against every
// fresh user set.
package syncengine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/gastrack/industrial-gas-monitoring/internal/domain"
	"github.com/gastrack/industrial-gas-monitoring/internal/session"
)

// Fetcher is the slice of the store contract the engine needs.
type Fetcher interface {
	FetchAll(ctx context.Context) (*domain.Snapshot, error)
}

// State is what the engine hands to consumers on every successful tick.
// ActiveUser is re-resolved from the snapshot's user list; nil means
// unauthenticated, including the forced sign-out after the backing account
// disappears mid-session.
type State struct {
	Snapshot   *domain.Snapshot
	ActiveUser *domain.User
}

type Engine struct {
	fetcher  Fetcher
	interval time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	userID string
	last   *State

	inflight atomic.Bool
}

func New(fetcher Fetcher, interval time.Duration, logger zerolog.Logger) *Engine {
	return &Engine{
		fetcher:  fetcher,
		interval: interval,
		log:      logger,
	}
}

// SignIn records the stable identity that every subsequent snapshot
// re-resolves. Only the id is kept; the User object itself is never cached.
func (e *Engine) SignIn(userID string) {
	e.mu.Lock()
	e.userID = userID
	e.mu.Unlock()
}

func (e *Engine) SignOut() {
	e.SignIn("")
}

// Current returns the last emitted state. After a fetch failure this is the
// retained stale snapshot; consumers keep rendering it until the next tick
// succeeds.
func (e *Engine) Current() *State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Subscription cancels a running poll loop. Stop is idempotent and does not
// return until the loop has exited, so no onSnapshot call can follow it.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *Subscription) Stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Start fetches once immediately, then on every interval tick until
// stopped. onSnapshot runs on the loop goroutine, serialized.
func (e *Engine) Start(onSnapshot func(State)) *Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}
	go e.run(ctx, onSnapshot, sub.done)
	return sub
}

func (e *Engine) run(ctx context.Context, onSnapshot func(State), done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	results := make(chan *domain.Snapshot, 1)
	e.kick(ctx, results)

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-results:
			onSnapshot(e.reconcile(snap))
		case <-ticker.C:
			e.kick(ctx, results)
		}
	}
}

// kick starts one fetch unless the previous one is still outstanding.
// Fetches never overlap for one engine instance; a tick that fires mid-fetch
// is skipped, not queued.
func (e *Engine) kick(ctx context.Context, results chan<- *domain.Snapshot) {
	if !e.inflight.CompareAndSwap(false, true) {
		e.log.Debug().Msg("previous fetch still in flight, skipping tick")
		return
	}
	go func() {
		defer e.inflight.Store(false)
		snap, err := e.fetcher.FetchAll(ctx)
		if err != nil {
			// Stale-read tolerance: keep the previous snapshot and let
			// the next scheduled tick retry.
			e.log.Error().Err(err).Msg("snapshot fetch failed, retaining previous state")
			return
		}
		select {
		case results <- snap:
		case <-ctx.Done():
		}
	}()
}

// reconcile re-resolves the active identity against the new user list. If
// the id no longer resolves the session is stale and the identity is
// cleared: deleting a logged-in user takes effect exactly here.
func (e *Engine) reconcile(snap *domain.Snapshot) State {
	e.mu.Lock()
	id := e.userID
	e.mu.Unlock()

	active := session.Resolve(snap.Users, id)
	if id != "" && active == nil {
		e.log.Warn().Str("user_id", id).Msg("active account no longer present, signing out")
		e.SignOut()
	}

	st := State{Snapshot: snap, ActiveUser: active}
	e.mu.Lock()
	e.last = &st
	e.mu.Unlock()
	return st
}
