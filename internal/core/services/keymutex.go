package services

import "sync"

// keyMutex provides a mutual-exclusion region per string key. The
// normalization engine uses it to serialize the validate-dedup-insert
// sequence per (source, natural_key), so two candidates for the same
// key cannot both create a "first" version. Unrelated keys do not
// contend.
type keyMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// newKeyMutex creates an empty keyed mutex.
func newKeyMutex() *keyMutex {
	return &keyMutex{locks: make(map[string]*keyLock)}
}

// Lock acquires the mutex for key, blocking until it is free.
func (k *keyMutex) Lock(key string) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
}

// Unlock releases the mutex for key. The entry is removed once no
// goroutine holds or waits on it, so the map does not grow unbounded.
func (k *keyMutex) Unlock(key string) {
	k.mu.Lock()
	l := k.locks[key]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	l.mu.Unlock()
}
