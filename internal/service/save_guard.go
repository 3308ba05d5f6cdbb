package service

import (
	"context"
	"sync"
)

// ExportedSaveGuard lets _test packages exercise the guard.
type ExportedSaveGuard = saveGuard

// ─────────────────────────────────────────────────────────────
// saveGuard: one save per post at a time
// ─────────────────────────────────────────────────────────────

// saveGuard tracks which posts have a save running. The zero value is
// ready to use.
type saveGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

// TryLock marks postKey as saving. It returns false when a save of
// postKey is already running.
func (g *saveGuard) TryLock(postKey string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight == nil {
		g.inFlight = make(map[string]struct{})
	}
	if _, busy := g.inFlight[postKey]; busy {
		return false
	}
	g.inFlight[postKey] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock ends the save of postKey. Call it only after a successful TryLock.
func (g *saveGuard) Unlock(postKey string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, postKey)
	g.wg.Done()
}

// Saving reports whether a save of postKey is running.
func (g *saveGuard) Saving(postKey string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.inFlight[postKey]
	return busy
}

// WaitAll blocks until running saves finish or ctx ends.
func (g *saveGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
