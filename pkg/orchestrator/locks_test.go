package orchestrator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLocksMutualExclusion(t *testing.T) {
	locks := newKeyedLocks()

	var counter, max int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.acquire("same-key")
			defer release()

			mu.Lock()
			counter++
			if counter > max {
				max = counter
			}
			mu.Unlock()

			mu.Lock()
			counter--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, max, "holders of the same key overlapped")
}

func TestKeyedLocksIndependentKeys(t *testing.T) {
	locks := newKeyedLocks()

	releaseA := locks.acquire("a")
	// Must not block: a different key has its own lock.
	releaseB := locks.acquire("b")

	releaseB()
	releaseA()
}

func TestKeyedLocksCleanup(t *testing.T) {
	locks := newKeyedLocks()

	release := locks.acquire("key")
	release()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.locks, "released entries should be removed")
}
