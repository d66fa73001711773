package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartrules/internal/cart"
	"cartrules/internal/testing/mock"
)

func TestState_Suppression(t *testing.T) {
	clock := mock.NewClock(time.Time{})
	s := NewState("sess", clock.Now)

	assert.False(t, s.Suppressing())
	require.True(t, s.ArmSuppression(time.Second))
	assert.True(t, s.Suppressing())

	// An active window is not extended.
	clock.Advance(600 * time.Millisecond)
	assert.False(t, s.ArmSuppression(time.Second))
	clock.Advance(400 * time.Millisecond)
	assert.False(t, s.Suppressing())

	// Once expired it can be armed again.
	assert.True(t, s.ArmSuppression(time.Second))
	assert.True(t, s.Suppressing())
}

func TestState_PassFlagIsExclusive(t *testing.T) {
	s := NewState("sess", nil)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.TryBeginPass() {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.True(t, s.Reconciling())
	s.EndPass()
	assert.False(t, s.Reconciling())
	assert.True(t, s.TryBeginPass())
}

func TestState_FiredKeysAreSessionScoped(t *testing.T) {
	a := NewState("a", nil)
	b := NewState("b", nil)

	a.MarkFired("gift")
	assert.True(t, a.HasFired("gift"))
	assert.False(t, a.HasFired("other"))
	assert.False(t, b.HasFired("gift"))
}

func TestState_PruneTracked(t *testing.T) {
	s := NewState("sess", nil)
	s.Track("111")
	s.Track("222")
	s.Track("333")

	pruned := s.PruneTracked(cart.Snapshot{Items: []cart.Item{{ProductID: "222", Quantity: 1}}})
	assert.Equal(t, []string{"111", "333"}, pruned)
	assert.True(t, s.IsTracked("222"))
	assert.False(t, s.IsTracked("111"))
}

func TestState_Status(t *testing.T) {
	s := NewState("sess", nil)
	s.MarkFired("b")
	s.MarkFired("a")
	s.Track("9")
	s.ObserveCart(cart.Snapshot{TotalMinor: 1500, ItemCount: 2})

	st := s.Status()
	assert.Equal(t, "sess", st.SessionID)
	assert.Equal(t, []string{"a", "b"}, st.FiredRules)
	assert.Equal(t, []string{"9"}, st.TrackedProducts)
	require.NotNil(t, st.LastTotalMinor)
	assert.Equal(t, int64(1500), *st.LastTotalMinor)
	assert.Equal(t, 2, *st.LastItemCount)
	assert.False(t, st.Reconciling)
}
