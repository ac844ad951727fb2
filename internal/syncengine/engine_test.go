package syncengine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gastrack/industrial-gas-monitoring/internal/domain"
)

type fakeFetcher struct {
	mu        sync.Mutex
	responses []*domain.Snapshot
	err       error
	calls     int32
	active    int32
	maxActive int32
	block     chan struct{}
}

// FetchAll returns the queued responses in order, repeating the last one.
func (f *fakeFetcher) FetchAll(ctx context.Context) (*domain.Snapshot, error) {
	cur := atomic.AddInt32(&f.active, 1)
	for {
		max := atomic.LoadInt32(&f.maxActive)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxActive, max, cur) {
			break
		}
	}
	defer atomic.AddInt32(&f.active, -1)

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	n := int(atomic.AddInt32(&f.calls, 1)) - 1
	if f.err != nil {
		return nil, f.err
	}
	if n >= len(f.responses) {
		n = len(f.responses) - 1
	}
	return f.responses[n], nil
}

func userSnap(ids ...string) *domain.Snapshot {
	snap := &domain.Snapshot{Assignments: domain.Assignments{}}
	for _, id := range ids {
		snap.Users = append(snap.Users, domain.User{ID: id, Username: "u-" + id})
	}
	return snap
}

func collect(t *testing.T, states <-chan State, want int, timeout time.Duration) []State {
	t.Helper()
	var out []State
	deadline := time.After(timeout)
	for len(out) < want {
		select {
		case st := <-states:
			out = append(out, st)
		case <-deadline:
			t.Fatalf("got %d states, want %d", len(out), want)
		}
	}
	return out
}

func TestEngineEmitsImmediately(t *testing.T) {
	fetcher := &fakeFetcher{responses: []*domain.Snapshot{userSnap("U-1")}}
	eng := New(fetcher, time.Hour, zerolog.Nop())

	states := make(chan State, 4)
	sub := eng.Start(func(st State) { states <- st })
	defer sub.Stop()

	got := collect(t, states, 1, time.Second)
	require.Len(t, got[0].Snapshot.Users, 1)
	assert.Nil(t, got[0].ActiveUser)
}

func TestEngineResolvesActiveUser(t *testing.T) {
	fetcher := &fakeFetcher{responses: []*domain.Snapshot{userSnap("U-1", "U-2")}}
	eng := New(fetcher, time.Hour, zerolog.Nop())
	eng.SignIn("U-2")

	states := make(chan State, 4)
	sub := eng.Start(func(st State) { states <- st })
	defer sub.Stop()

	got := collect(t, states, 1, time.Second)
	require.NotNil(t, got[0].ActiveUser)
	assert.Equal(t, "U-2", got[0].ActiveUser.ID)
}

func TestEngineStaleSessionForcesSignOut(t *testing.T) {
	fetcher := &fakeFetcher{responses: []*domain.Snapshot{
		userSnap("U-1", "U-2"),
		userSnap("U-1"), // U-2 deleted between polls
	}}
	eng := New(fetcher, 10*time.Millisecond, zerolog.Nop())
	eng.SignIn("U-2")

	states := make(chan State, 16)
	sub := eng.Start(func(st State) { states <- st })
	defer sub.Stop()

	got := collect(t, states, 2, time.Second)
	require.NotNil(t, got[0].ActiveUser)
	assert.Nil(t, got[1].ActiveUser)

	// The identity was cleared, so a later snapshot containing U-2 again
	// must not silently re-authenticate.
	eng.mu.Lock()
	id := eng.userID
	eng.mu.Unlock()
	assert.Equal(t, "", id)
}

func TestEngineRetainsSnapshotOnFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{responses: []*domain.Snapshot{userSnap("U-1")}}
	eng := New(fetcher, 10*time.Millisecond, zerolog.Nop())

	states := make(chan State, 16)
	sub := eng.Start(func(st State) { states <- st })
	defer sub.Stop()

	collect(t, states, 1, time.Second)

	fetcher.mu.Lock()
	fetcher.err = errors.New("store unavailable")
	fetcher.mu.Unlock()

	time.Sleep(50 * time.Millisecond)
	cur := eng.Current()
	require.NotNil(t, cur)
	assert.Len(t, cur.Snapshot.Users, 1)
}

func TestEngineSkipsOverlappingFetches(t *testing.T) {
	fetcher := &fakeFetcher{
		responses: []*domain.Snapshot{userSnap("U-1")},
		block:     make(chan struct{}),
	}
	eng := New(fetcher, 5*time.Millisecond, zerolog.Nop())

	states := make(chan State, 64)
	sub := eng.Start(func(st State) { states <- st })
	defer sub.Stop()

	// The first fetch blocks across many ticks; every tick in between must
	// be skipped rather than stacking up concurrent fetches.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.maxActive))

	close(fetcher.block)
	collect(t, states, 1, time.Second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.maxActive))
}

func TestStopIsIdempotentAndFinal(t *testing.T) {
	fetcher := &fakeFetcher{responses: []*domain.Snapshot{userSnap("U-1")}}
	eng := New(fetcher, 5*time.Millisecond, zerolog.Nop())

	var emitted int32
	sub := eng.Start(func(State) { atomic.AddInt32(&emitted, 1) })

	time.Sleep(30 * time.Millisecond)
	sub.Stop()
	sub.Stop() // second call must be a no-op

	after := atomic.LoadInt32(&emitted)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&emitted))
}
