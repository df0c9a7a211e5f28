package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClock_DefaultsToEpoch(t *testing.T) {
	clock := NewFixedClock(time.Time{})
	assert.Equal(t, Epoch, clock.Now())
}

func TestFixedClock_StandsStill(t *testing.T) {
	clock := NewFixedClock(time.Time{})
	first := clock.Now()
	assert.Equal(t, first, clock.Now())
}

func TestFixedClock_Advance(t *testing.T) {
	clock := NewFixedClock(time.Time{})

	got := clock.Advance(time.Minute)

	assert.Equal(t, Epoch.Add(time.Minute), got)
	assert.Equal(t, got, clock.Now())
}

func TestFixedClock_SetNormalizesToUTC(t *testing.T) {
	clock := NewFixedClock(time.Time{})
	loc := time.FixedZone("UTC+2", 2*60*60)

	clock.Set(time.Date(2026, 1, 1, 2, 0, 0, 0, loc))

	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), clock.Now())
	assert.Equal(t, time.UTC, clock.Now().Location())
}

func TestFixedClock_ThreadSafe(t *testing.T) {
	clock := NewFixedClock(time.Time{})
	const numGoroutines = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
		}()
	}
	wg.Wait()

	assert.Equal(t, Epoch.Add(numGoroutines*time.Second), clock.Now())
}
