package repository

import "sync"

// pairLock serializes commits per (week, participant) key while letting
// distinct pairs proceed in parallel. Entries are reference-counted and
// removed once the last holder releases, so the map stays bounded by
// the number of in-flight commits.
type pairLock struct {
	mu    sync.Mutex
	locks map[string]*pairLockEntry
	pool  sync.Pool
}

type pairLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newPairLock() *pairLock {
	return &pairLock{
		locks: make(map[string]*pairLockEntry),
		pool: sync.Pool{
			New: func() interface{} {
				return &pairLockEntry{}
			},
		},
	}
}

// Lock acquires the lock for key and returns the release function.
func (p *pairLock) Lock(key string) func() {
	p.mu.Lock()
	e, ok := p.locks[key]
	if !ok {
		e = p.pool.Get().(*pairLockEntry)
		p.locks[key] = e
	}
	e.refs++
	p.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		p.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(p.locks, key)
			p.pool.Put(e)
		}
		p.mu.Unlock()
	}
}

// pairKey builds the serialization key for a (week, participant) pair.
func pairKey(weekID, participantID string) string {
	return weekID + "\x00" + participantID
}
