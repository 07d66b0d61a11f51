package coordinator

import (
	"context"
	"time"

	"github.com/Billy-Davies-2/championship-draft/internal/logger"
	"github.com/Billy-Davies-2/championship-draft/internal/metrics"
	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

// schedule arms the display timer for a match, replacing any pending one
func (c *Coordinator) schedule(matchID string, delay time.Duration) {
	c.timersMu.Lock()
	defer c.timersMu.Unlock()

	if c.closed {
		return
	}
	if _, pending := c.timers[matchID]; pending {
		return
	}

	entry := &displayTimer{}
	entry.timer = time.AfterFunc(delay, func() { c.fire(matchID, entry) })
	c.timers[matchID] = entry
	metrics.DisplayTimers.Set(float64(len(c.timers)))

	logger.Debug("Display timer armed", "match", matchID, "delay", delay)
}

// cancel drops a pending display timer, if any
func (c *Coordinator) cancel(matchID string) {
	c.timersMu.Lock()
	defer c.timersMu.Unlock()

	if entry, ok := c.timers[matchID]; ok {
		entry.timer.Stop()
		delete(c.timers, matchID)
		metrics.DisplayTimers.Set(float64(len(c.timers)))
	}
}

func (c *Coordinator) fire(matchID string, entry *displayTimer) {
	c.timersMu.Lock()
	if c.closed || c.timers[matchID] != entry {
		c.timersMu.Unlock()
		return
	}
	delete(c.timers, matchID)
	metrics.DisplayTimers.Set(float64(len(c.timers)))
	c.timersMu.Unlock()

	if _, err := c.Mutate(context.Background(), matchID, OpOpenDraft, c.engine.OpenDraft()); err != nil {
		logger.Error("Failed to open draft after map display", "match", matchID, "error", err)
	}
}

// PendingTimers reports how many display timers are armed
func (c *Coordinator) PendingTimers() int {
	c.timersMu.Lock()
	defer c.timersMu.Unlock()
	return len(c.timers)
}

// Resume re-arms display timers for matches left in map-selected, for the
// remainder of their delay. Returns the number of timers armed.
func (c *Coordinator) Resume(ctx context.Context) (int, error) {
	views, err := c.reader.Tournaments(ctx)
	if err != nil {
		return 0, err
	}

	delay := c.engine.Policy().MapDisplayDelay
	armed := 0
	for _, v := range views {
		for _, m := range v.Matches {
			if m.Phase != models.PhaseMapSelected {
				continue
			}
			remaining := delay
			if m.MapDecidedAt != nil {
				remaining = m.MapDecidedAt.Add(delay).Sub(c.now())
			}
			if remaining < 0 {
				remaining = 0
			}
			c.schedule(m.ID, remaining)
			armed++
		}
	}

	logger.Info("Display timers resumed", "count", armed)
	return armed, nil
}
