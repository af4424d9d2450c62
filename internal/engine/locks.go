package engine

import "sync"

// fileLocks serializes tasks that resolve to the same filename so the
// existence check and the write happen as one step.
type fileLocks struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newFileLocks() *fileLocks {
	return &fileLocks{locks: make(map[string]*refLock)}
}

// lock acquires the lock for name and returns its release function.
func (f *fileLocks) lock(name string) func() {
	f.mu.Lock()
	l, ok := f.locks[name]
	if !ok {
		l = &refLock{}
		f.locks[name] = l
	}
	l.refs++
	f.mu.Unlock()

	l.Lock()

	return func() {
		l.Unlock()

		f.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(f.locks, name)
		}
		f.mu.Unlock()
	}
}
