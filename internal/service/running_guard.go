package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"markup/internal/export"
)

// ExportedRunningGuard is an exported alias so _test packages can test the guard.
type ExportedRunningGuard = exportGuard

// ExportJob identifies an export in flight. Only one job per document
// and format runs at a time.
type ExportJob struct {
	Document string        `json:"document"`
	Format   export.Format `json:"format"`
}

// RunningExport is a job with the time it started.
type RunningExport struct {
	ExportJob
	Started time.Time `json:"started"`
}

// exportGuard tracks running exports and lets shutdown wait for them.
type exportGuard struct {
	mu      sync.Mutex
	running map[ExportJob]time.Time
	wg      sync.WaitGroup
}

// TryLock marks job as running. It returns false if job is already running.
func (g *exportGuard) TryLock(job ExportJob) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[ExportJob]time.Time)
	}
	if _, ok := g.running[job]; ok {
		return false
	}
	g.running[job] = time.Now()
	g.wg.Add(1)
	return true
}

// Unlock marks job as finished. Call only after a successful TryLock.
func (g *exportGuard) Unlock(job ExportJob) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, job)
	g.wg.Done()
}

// Running lists the jobs in flight, oldest first.
func (g *exportGuard) Running() []RunningExport {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]RunningExport, 0, len(g.running))
	for job, started := range g.running {
		out = append(out, RunningExport{ExportJob: job, Started: started})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out
}

// WaitAll blocks until every running export completes or ctx is done.
func (g *exportGuard) WaitAll(ctx context.Context) {
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
