package runtime

import (
	"log/slog"

	"github.com/wardenbot/warden/internal/game"
)

// Gateway sends outbound messages. Sends are fire-and-forget from the
// core's perspective.
type Gateway interface {
	Send(chatID, content string)
}

// NopGateway discards all outbound messages.
type NopGateway struct{}

func (NopGateway) Send(string, string) {}

// statsRecorder logs end-of-game notifications and forwards them to
// an optional downstream statistics collaborator.
type statsRecorder struct {
	log  *slog.Logger
	next game.Statistics
}

func (r *statsRecorder) GameEnded(summary game.Summary) {
	r.log.Info("game summary",
		"type", summary.Type,
		"winner", summary.Winner,
		"players", len(summary.Players),
	)
	if r.next != nil {
		r.next.GameEnded(summary)
	}
}
