package collection

import (
	"sync"
	"testing"

	"gotest.tools/v3/assert"
)

func TestFolderLocks_ReleasesEntries(t *testing.T) {
	l := newFolderLocks()

	unlock := l.lock("b", "a", "b")
	assert.Equal(t, l.size(), 2)
	unlock()
	assert.Equal(t, l.size(), 0)
}

func TestFolderLocks_SerializesSameKey(t *testing.T) {
	l := newFolderLocks()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.lock("folder")
			defer unlock()

			mu.Lock()
			inside++
			maxSeen = max(maxSeen, inside)
			mu.Unlock()

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, maxSeen, 1)
	assert.Equal(t, l.size(), 0)
}
