package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wardenbot/warden/internal/game"
	"github.com/wardenbot/warden/internal/gate"
	"github.com/wardenbot/warden/internal/perm"
	"github.com/wardenbot/warden/internal/telemetry"
)

// HandleEvent routes one inbound event through the authorization gate
// and, when allowed, through the command or game pipeline. The whole
// evaluation runs on the chat's dispatch queue, so same-chat events
// are strictly serialized.
func (r *Runtime) HandleEvent(ctx context.Context, ev gate.Event) {
	r.dispatcher.Do(ev.ChatID, func() {
		start := time.Now()
		r.handle(ctx, ev)
		r.metrics.ObserveDispatch(time.Since(start).Seconds())
	})
}

func (r *Runtime) handle(ctx context.Context, ev gate.Event) {
	log := telemetry.EventLogger(r.log, ctx, ev.ChatID, ev.SenderID)

	decision := r.gate.Decide(ev)
	r.metrics.RecordDecision(string(decision.Reason))
	if !decision.Allowed {
		log.Debug("event denied")
		return
	}

	switch decision.Reason {
	case gate.ReasonActiveGameInput:
		// The grant covers game input only, even if the text would
		// also parse as a command.
		r.processMove(ev, log)

	case gate.ReasonExplicitGrant:
		r.handleCommand(ev, decision.Context, commandArgs(ev.RawText, r.cfg.CommandPrefix), log)

	case gate.ReasonOwner:
		if command, ok := r.gate.Command(ev.RawText); ok {
			r.handleCommand(ev, command, commandArgs(ev.RawText, r.cfg.CommandPrefix), log)
			return
		}
		if r.engine.IsMoveInput(ev.ChatID, ev.RawText) {
			r.processMove(ev, log)
			return
		}
		// Owner chatter that is neither a command nor game input.
		log.Debug("event allowed but not actionable")
	}
}

func commandArgs(text, prefix string) []string {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(text), prefix))
	if len(fields) <= 1 {
		return nil
	}
	return fields[1:]
}

// processMove feeds text to the chat's active game. Text failing the
// move grammar is silently ignored; rule violations get an explicit
// rejection reply.
func (r *Runtime) processMove(ev gate.Event, log *slog.Logger) {
	s, ok := r.engine.ActiveSession(ev.ChatID)
	if !ok {
		return
	}
	gameType := string(s.Type)

	result, err := r.engine.ProcessMove(s.ID, ev.SenderID, ev.RawText)
	if err != nil {
		var rejected *game.MoveRejectedError
		switch {
		case errors.Is(err, game.ErrInvalidMoveFormat):
			r.metrics.RecordMove(gameType, "invalid_format")
		case errors.As(err, &rejected):
			r.metrics.RecordMove(gameType, "rejected")
			r.gateway.Send(ev.ChatID, rejected.Reason)
		case errors.Is(err, game.ErrNotYourTurn):
			r.metrics.RecordMove(gameType, "rejected")
			r.gateway.Send(ev.ChatID, "not your turn")
		default:
			r.metrics.RecordMove(gameType, "error")
			log.Debug("move not processed", "error", err)
		}
		return
	}

	r.metrics.RecordMove(gameType, "accepted")
	if result.Ended {
		r.metrics.RecordGameEnded(gameType, string(result.EndOutcome))
		r.gateway.Send(ev.ChatID, endText(result))
		return
	}
	if reply := moveText(s, result); reply != "" {
		r.gateway.Send(ev.ChatID, reply)
	}
}

// moveText builds the short status reply after an accepted move.
func moveText(s *game.Session, result *game.MoveResult) string {
	switch s.Type {
	case game.TypeHangman:
		board := s.Board.(*game.HangmanBoard)
		return fmt.Sprintf("%s (%d wrong)", board.Masked(), board.Wrong)
	case game.TypeQuiz:
		board := s.Board.(*game.QuizBoard)
		if board.Index < len(s.Settings.Questions) {
			return s.Settings.Questions[board.Index].Text
		}
		return ""
	default:
		return result.Outcome
	}
}

func endText(result *game.MoveResult) string {
	switch result.EndOutcome {
	case game.OutcomeWin:
		return fmt.Sprintf("game over: %s wins", result.Winner)
	case game.OutcomeDraw:
		return "game over: draw"
	case game.OutcomeLoss:
		return "game over: out of guesses"
	default:
		return "game over"
	}
}

func (r *Runtime) handleCommand(ev gate.Event, command string, args []string, log *slog.Logger) {
	switch command {
	case "ping":
		r.gateway.Send(ev.ChatID, "pong")

	case "game":
		r.commandGame(ev, args)

	case "join":
		r.commandJoin(ev)

	case "start":
		r.commandStart(ev)

	case "stop":
		r.commandStop(ev)

	case "allow":
		r.commandGrant(ev, args, true)

	case "disallow":
		r.commandGrant(ev, args, false)

	case "audit":
		r.commandAudit(ev)

	case "setup":
		r.commandSetup(ev, args)

	default:
		log.Debug("unknown command", "command", command)
		r.gateway.Send(ev.ChatID, fmt.Sprintf("unknown command %q", command))
	}
}

func (r *Runtime) commandGame(ev gate.Event, args []string) {
	if len(args) == 0 {
		types := r.engine.Types()
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		r.gateway.Send(ev.ChatID, "usage: game <type>; types: "+strings.Join(names, ", "))
		return
	}
	s, err := r.engine.Create(game.Type(args[0]), ev.ChatID, ev.SenderID, game.Settings{})
	if err != nil {
		r.gateway.Send(ev.ChatID, err.Error())
		return
	}
	r.metrics.RecordGameCreated(string(s.Type))
	if s.Status == game.StatusActive {
		r.gateway.Send(ev.ChatID, fmt.Sprintf("%s started", s.Type))
		return
	}
	r.gateway.Send(ev.ChatID, fmt.Sprintf("%s created, waiting for %d more player(s)",
		s.Type, s.Settings.MinPlayers-len(s.Players)))
}

func (r *Runtime) commandJoin(ev gate.Event) {
	s, ok := r.engine.ActiveSession(ev.ChatID)
	if !ok {
		r.gateway.Send(ev.ChatID, "no game to join")
		return
	}
	joined, err := r.engine.Join(s.ID, ev.SenderID)
	if err != nil {
		r.gateway.Send(ev.ChatID, err.Error())
		return
	}
	if joined.Status == game.StatusActive {
		r.gateway.Send(ev.ChatID, fmt.Sprintf("%s started with %d players", joined.Type, len(joined.Players)))
		return
	}
	r.gateway.Send(ev.ChatID, fmt.Sprintf("joined; %d/%d players", len(joined.Players), joined.Settings.MinPlayers))
}

func (r *Runtime) commandStart(ev gate.Event) {
	s, ok := r.engine.ActiveSession(ev.ChatID)
	if !ok {
		r.gateway.Send(ev.ChatID, "no game to start")
		return
	}
	if err := r.engine.Start(s.ID); err != nil {
		r.gateway.Send(ev.ChatID, err.Error())
		return
	}
	r.gateway.Send(ev.ChatID, fmt.Sprintf("%s started", s.Type))
}

func (r *Runtime) commandStop(ev gate.Event) {
	s, ok := r.engine.ActiveSession(ev.ChatID)
	if !ok {
		r.gateway.Send(ev.ChatID, "no active game")
		return
	}
	if err := r.engine.End(s.ID, game.OutcomeStopped, ""); err != nil {
		r.gateway.Send(ev.ChatID, err.Error())
		return
	}
	r.metrics.RecordGameEnded(string(s.Type), string(game.OutcomeStopped))
	r.gateway.Send(ev.ChatID, fmt.Sprintf("%s stopped", s.Type))
}

// commandGrant handles allow/disallow with their bulk variants:
// allow <user> <command> [command...]
func (r *Runtime) commandGrant(ev gate.Event, args []string, allow bool) {
	verb := "disallow"
	if allow {
		verb = "allow"
	}
	if len(args) < 2 {
		r.gateway.Send(ev.ChatID, fmt.Sprintf("usage: %s <user> <command> [command...]", verb))
		return
	}
	user, commands := args[0], args[1:]

	var results []perm.Result
	if allow {
		results = r.perms.AllowAll(user, commands, ev.SenderID)
	} else {
		results = r.perms.DisallowAll(user, commands, ev.SenderID)
	}

	var lines []string
	for _, res := range results {
		if res.Err != nil {
			lines = append(lines, fmt.Sprintf("%s: %v", res.Command, res.Err))
		} else {
			lines = append(lines, fmt.Sprintf("%s: ok", res.Command))
		}
	}
	r.gateway.Send(ev.ChatID, strings.Join(lines, "\n"))
}

func (r *Runtime) commandAudit(ev gate.Event) {
	records := r.perms.AuditLog()
	if len(records) == 0 {
		r.gateway.Send(ev.ChatID, "audit log is empty")
		return
	}
	const tail = 10
	if len(records) > tail {
		records = records[len(records)-tail:]
	}
	var lines []string
	for _, rec := range records {
		lines = append(lines, fmt.Sprintf("%s %s %s %s by %s",
			rec.Timestamp.Format(time.RFC3339), rec.Action, rec.Command, rec.UserID, rec.Actor))
	}
	r.gateway.Send(ev.ChatID, strings.Join(lines, "\n"))
}

// setupSteps are the prompts of the multi-step setup workflow.
var setupSteps = []string{
	"what should the bot be called in this chat?",
	"what greeting should new players see?",
}

// commandSetup walks a multi-step command session: each ".setup
// <answer>" records the answer and advances; ".setup cancel" aborts.
func (r *Runtime) commandSetup(ev gate.Event, args []string) {
	if len(args) == 1 && args[0] == "cancel" {
		if err := r.store.EndCommandSession(ev.ChatID, "setup"); err != nil {
			r.gateway.Send(ev.ChatID, "no setup in progress")
			return
		}
		r.gateway.Send(ev.ChatID, "setup cancelled")
		return
	}

	cs := r.store.GetCommandSession(ev.ChatID, "setup")
	if cs == nil {
		if _, err := r.store.StartCommandSession(ev.ChatID, "setup", nil); err != nil {
			r.gateway.Send(ev.ChatID, err.Error())
			return
		}
		r.gateway.Send(ev.ChatID, setupSteps[0])
		return
	}

	if len(args) == 0 {
		r.gateway.Send(ev.ChatID, setupSteps[cs.Step])
		return
	}

	answer := strings.Join(args, " ")
	cs, err := r.store.NextStep(ev.ChatID, "setup", map[string]any{
		fmt.Sprintf("step_%d", cs.Step): answer,
	})
	if err != nil {
		r.gateway.Send(ev.ChatID, err.Error())
		return
	}
	if cs.Step < len(setupSteps) {
		r.gateway.Send(ev.ChatID, setupSteps[cs.Step])
		return
	}

	r.store.Set(ev.ChatID, "settings", cs.Data)
	_ = r.store.EndCommandSession(ev.ChatID, "setup")
	r.gateway.Send(ev.ChatID, "setup complete")
}
