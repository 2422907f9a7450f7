package plancache

import "sync"

// call is one in-flight computation. Waiters block on done and then read
// entry and err.
type call struct {
	done  chan struct{}
	entry *Entry
	err   error
}

// singleflight deduplicates concurrent computations per key. Unlike the
// x/sync variant it is specialized to Entry values, which keeps the cache
// API free of type assertions.
type singleflight struct {
	mu    sync.Mutex
	calls map[string]*call
}

// do runs fn for key, or waits for an already-running fn with the same key
// and returns its result.
func (g *singleflight) do(key string, fn func() (*Entry, error)) (*Entry, error) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]*call)
	}
	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		<-c.done
		return c.entry, c.err
	}

	c := &call{done: make(chan struct{})}
	g.calls[key] = c
	g.mu.Unlock()

	c.entry, c.err = fn()

	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()
	close(c.done)

	return c.entry, c.err
}
