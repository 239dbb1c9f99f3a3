package booking

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kulisserna/boxoffice/internal/model"
)

func newTestHold(expiresAt time.Time) *model.Hold {
	return &model.Hold{
		ID:          1,
		SessionKey:  "sess-1",
		EventID:     42,
		RegularQty:  2,
		DiscountQty: 1,
		Reference:   "ref-1",
		ExpiresAt:   expiresAt,
	}
}

func TestSessionLifecycle(t *testing.T) {
	now := time.Now().UTC()

	t.Run("claim then finalize", func(t *testing.T) {
		s := NewSession("k")
		require.Equal(t, StateNone, s.State())
		require.NoError(t, s.Claim(newTestHold(now.Add(5*time.Minute))))
		assert.Equal(t, StateHeld, s.State())
		assert.NotNil(t, s.Hold())
		require.NoError(t, s.Finalize())
		assert.Equal(t, StateFinalized, s.State())
		assert.Nil(t, s.Hold())
	})

	t.Run("claim then release", func(t *testing.T) {
		s := NewSession("k")
		require.NoError(t, s.Claim(newTestHold(now.Add(5*time.Minute))))
		require.NoError(t, s.Release())
		assert.Equal(t, StateReleased, s.State())
	})

	t.Run("second claim while holding is rejected", func(t *testing.T) {
		s := NewSession("k")
		require.NoError(t, s.Claim(newTestHold(now.Add(5*time.Minute))))
		assert.ErrorIs(t, s.Claim(newTestHold(now.Add(5*time.Minute))), ErrInvalidTransition)
		// The original hold is untouched.
		assert.Equal(t, "ref-1", s.Hold().Reference)
	})

	t.Run("finalize without a hold is rejected", func(t *testing.T) {
		s := NewSession("k")
		assert.ErrorIs(t, s.Finalize(), ErrInvalidTransition)
	})

	t.Run("release without a hold is rejected", func(t *testing.T) {
		s := NewSession("k")
		assert.ErrorIs(t, s.Release(), ErrInvalidTransition)
	})

	t.Run("no transitions out of a terminal state", func(t *testing.T) {
		s := NewSession("k")
		require.NoError(t, s.Claim(newTestHold(now.Add(5*time.Minute))))
		require.NoError(t, s.Finalize())
		assert.ErrorIs(t, s.Claim(newTestHold(now.Add(5*time.Minute))), ErrInvalidTransition)
		assert.ErrorIs(t, s.Release(), ErrInvalidTransition)
	})
}

func TestSessionTickSignalsExpiryOnce(t *testing.T) {
	now := time.Now().UTC()
	s := NewSession("k")
	require.NoError(t, s.Claim(newTestHold(now.Add(3*time.Minute))))

	// Before expiry: counting down, no signal.
	cd, fired := s.Tick(now)
	assert.False(t, fired)
	assert.False(t, cd.Expired)
	assert.Equal(t, int64(180), cd.Seconds)

	// First tick past expiry fires exactly once.
	cd, fired = s.Tick(now.Add(3*time.Minute + time.Second))
	assert.True(t, fired)
	assert.True(t, cd.Expired)
	assert.Equal(t, StateExpired, s.State())

	// Every later tick reports expired without firing again.
	for i := 0; i < 3; i++ {
		cd, fired = s.Tick(now.Add(10 * time.Minute))
		assert.False(t, fired)
		assert.True(t, cd.Expired)
	}
}

func TestSessionTickWithoutHold(t *testing.T) {
	s := NewSession("k")
	cd, fired := s.Tick(time.Now().UTC())
	assert.False(t, fired)
	assert.False(t, cd.Expired)
}

func TestRegistryRecyclesTerminalSessions(t *testing.T) {
	now := time.Now().UTC()
	r := NewRegistry()

	s := r.Get("k")
	require.NoError(t, s.Claim(newTestHold(now.Add(time.Minute))))
	assert.Same(t, s, r.Get("k"), "a live session is returned as-is")

	require.NoError(t, s.Finalize())
	fresh := r.Get("k")
	assert.NotSame(t, s, fresh, "a terminal session is replaced")
	assert.Equal(t, StateNone, fresh.State())
}

func TestRegistryDrop(t *testing.T) {
	r := NewRegistry()
	s := r.Get("k")
	r.Drop("k")
	assert.NotSame(t, s, r.Get("k"))
}

// A burst of goroutines racing to claim through the same session must
// produce exactly one winner; everyone else gets ErrInvalidTransition
// and is routed back to the existing hold.
func TestConcurrentClaimsSingleWinner(t *testing.T) {
	now := time.Now().UTC()
	r := NewRegistry()

	var mu sync.Mutex
	s := r.Get("k")

	const racers = 32
	var wg sync.WaitGroup
	wins := make(chan int, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mu.Lock()
			err := s.Claim(newTestHold(now.Add(time.Minute)))
			mu.Unlock()
			if err == nil {
				wins <- i
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []int
	for w := range wins {
		winners = append(winners, w)
	}
	require.Len(t, winners, 1)
	assert.Equal(t, StateHeld, s.State())
}
