package application

import "sync"

// entityLocks hands out one mutex per entity id so mutations on the same
// account or payment serialize while unrelated entities proceed
// concurrently. Locks are never dropped; the id space is small (one entry
// per account/payment ever touched).
type entityLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newEntityLocks() *entityLocks {
	return &entityLocks{locks: map[string]*sync.Mutex{}}
}

func (l *entityLocks) forID(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lock, ok := l.locks[id]; ok {
		return lock
	}

	lock := &sync.Mutex{}
	l.locks[id] = lock
	return lock
}
