package collection

import (
	"slices"
	"sync"
)

// folderLocks is a keyed mutex. Entries are dropped once no goroutine
// holds or waits on them.
type folderLocks struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newFolderLocks() *folderLocks {
	return &folderLocks{locks: make(map[string]*refMutex)}
}

// lock acquires the locks for every distinct key in sorted order and
// returns a function releasing them.
func (l *folderLocks) lock(keys ...string) func() {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]*refMutex, 0, len(keys))
	for _, k := range keys {
		l.mu.Lock()
		m, ok := l.locks[k]
		if !ok {
			m = &refMutex{}
			l.locks[k] = m
		}
		m.refs++
		l.mu.Unlock()

		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
			l.release(keys[i])
		}
	}
}

func (l *folderLocks) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := l.locks[key]
	m.refs--
	if m.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *folderLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
