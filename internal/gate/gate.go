// Package gate serializes operations on a single entity.
//
// A Gate is procured while the entity is in flux (for example while its
// identity is being swapped). Operations submitted while it is procured are
// queued and run in submission order once it is vacated.
package gate

import "sync"

// Gate is a per-entity operation lock with a FIFO queue of continuations.
// The zero value is an open gate.
type Gate struct {
	mu       sync.Mutex
	procured bool
	draining bool
	queue    []func()
}

// Procure closes the gate. It returns false if the gate was already procured.
func (g *Gate) Procure() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.procured {
		return false
	}
	g.procured = true
	return true
}

// Procured reports whether the gate is currently closed.
func (g *Gate) Procured() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.procured
}

// Pending returns the number of queued operations.
func (g *Gate) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue)
}

// Do runs fn now if the gate is open and nothing is queued ahead of it,
// otherwise queues it.
func (g *Gate) Do(fn func()) {
	g.mu.Lock()
	if g.procured || g.draining || len(g.queue) > 0 {
		g.queue = append(g.queue, fn)
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	fn()
}

// Vacate opens the gate and runs queued operations in FIFO order on the
// calling goroutine. If a queued operation procures the gate again,
// draining stops and resumes at the next Vacate.
func (g *Gate) Vacate() {
	g.mu.Lock()
	g.procured = false
	if g.draining {
		g.mu.Unlock()
		return
	}
	g.draining = true

	for {
		if g.procured || len(g.queue) == 0 {
			g.draining = false
			g.mu.Unlock()
			return
		}
		fn := g.queue[0]
		g.queue[0] = nil
		g.queue = g.queue[1:]
		g.mu.Unlock()

		fn()

		g.mu.Lock()
	}
}
