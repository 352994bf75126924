package service

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// HistoryJanitor prunes old export runs on a cron schedule.
type HistoryJanitor struct {
	exports *ExportService

	mu    sync.Mutex
	sched *cron.Cron
}

func NewHistoryJanitor(exports *ExportService) *HistoryJanitor {
	return &HistoryJanitor{exports: exports}
}

// Start prunes once, then again on every tick of expr. Runs older than
// maxAge are deleted. Calling Start again replaces the previous schedule.
func (j *HistoryJanitor) Start(expr string, maxAge time.Duration) error {
	j.Stop()
	j.prune(maxAge)
	if expr == "" {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(expr, func() { j.prune(maxAge) }); err != nil {
		return fmt.Errorf("history janitor: invalid schedule %q: %w", expr, err)
	}
	c.Start()

	j.mu.Lock()
	j.sched = c
	j.mu.Unlock()
	log.Printf("[EXPORT] pruning history %s, keeping %s", expr, maxAge)
	return nil
}

// Stop cancels the schedule and waits for a running prune to finish.
func (j *HistoryJanitor) Stop() {
	j.mu.Lock()
	c := j.sched
	j.sched = nil
	j.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

func (j *HistoryJanitor) prune(maxAge time.Duration) {
	n, err := j.exports.PruneHistory(maxAge)
	if err != nil {
		log.Printf("[EXPORT] prune history failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[EXPORT] pruned %d old run(s)", n)
	}
}
