package rotation

import (
	"context"
	"sync"

	"github.com/yicone/chatgpt-web-share/internal/db/models"
)

// Runner serializes tick execution and remembers the last summary for the
// operator API. The scheduler job and the manual /rotate trigger share one
// Runner so ticks never overlap.
type Runner struct {
	mu      sync.Mutex
	rotator *Rotator
	last    *TickSummary
}

// NewRunner wraps a rotator.
func NewRunner(rotator *Rotator) *Runner {
	return &Runner{rotator: rotator}
}

// Run executes one tick and records its summary.
func (r *Runner) Run(ctx context.Context) TickSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary := r.rotator.RunTick(ctx)
	r.last = &summary
	return summary
}

// Last returns the most recent tick summary, or nil before the first tick.
func (r *Runner) Last() *TickSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return nil
	}
	summary := *r.last
	return &summary
}

// Accounts returns a snapshot of the rotator's working account set. The
// copy is taken under the tick mutex so API reads and the sync job never
// observe a tick's writes mid-flight.
func (r *Runner) Accounts() []models.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	src := r.rotator.Accounts()
	accounts := make([]models.Account, len(src))
	copy(accounts, src)
	return accounts
}
