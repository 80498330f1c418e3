package game

import (
	"time"
)

// Sweeper force-ends sessions whose last activity exceeds the
// inactivity threshold, independent of per-type end conditions. It
// also drops ended sessions from history once they age out.
type Sweeper struct {
	engine    *Engine
	threshold time.Duration

	// dispatch routes per-chat work through the runtime's
	// serialization; sweeps must not interleave with inbound events.
	dispatch func(chatID string, fn func())
}

// NewSweeper creates a sweeper over the engine.
func NewSweeper(engine *Engine, threshold time.Duration, dispatch func(chatID string, fn func())) *Sweeper {
	if dispatch == nil {
		dispatch = func(_ string, fn func()) { fn() }
	}
	return &Sweeper{engine: engine, threshold: threshold, dispatch: dispatch}
}

// Sweep runs one pass and returns the number of sessions force-ended.
// Acting on a session that ended or disappeared in the meantime is a
// no-op.
func (w *Sweeper) Sweep() int {
	now := w.engine.now()

	type candidate struct {
		id     string
		chatID string
		ended  bool
	}
	w.engine.mu.Lock()
	var candidates []candidate
	for id, s := range w.engine.sessions {
		idle := now.Sub(s.LastActivity)
		if s.Status == StatusEnded {
			if now.Sub(s.EndedAt) > w.threshold {
				candidates = append(candidates, candidate{id: id, chatID: s.ChatID, ended: true})
			}
			continue
		}
		if idle > w.threshold {
			candidates = append(candidates, candidate{id: id, chatID: s.ChatID})
		}
	}
	w.engine.mu.Unlock()

	expired := 0
	for _, c := range candidates {
		c := c
		w.dispatch(c.chatID, func() {
			if c.ended {
				w.engine.dropEnded(c.id)
				return
			}
			// End tolerates sessions that ended since the scan.
			_ = w.engine.End(c.id, OutcomeTimeout, "")
		})
		if !c.ended {
			expired++
		}
	}
	return expired
}

// dropEnded removes an ended session from history.
func (e *Engine) dropEnded(gameID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sessions[gameID]; ok && s.Status == StatusEnded {
		delete(e.sessions, gameID)
	}
}
