// Package gate decides, per inbound event, whether the runtime
// processes it: owner bypass, active-game-input exception,
// explicit-grant exception, otherwise deny.
package gate

import (
	"strings"
	"time"
)

// Event is one inbound message as supplied by the messaging
// transport.
type Event struct {
	SenderID   string
	ChatID     string
	RawText    string
	IsSelfSent bool
	Timestamp  time.Time
}

// Reason explains an authorization decision.
type Reason string

const (
	ReasonOwner           Reason = "owner"
	ReasonActiveGameInput Reason = "active_game_input"
	ReasonExplicitGrant   Reason = "explicit_grant"
	ReasonDenied          Reason = "denied"
)

// Decision is the gate's verdict for one event.
type Decision struct {
	Allowed bool
	Reason  Reason
	// Context carries the matched command name for explicit grants.
	Context string
}

// ActiveGameIndex answers whether text parses under the move grammar
// of a chat's active game.
type ActiveGameIndex interface {
	IsMoveInput(chatID, text string) bool
}

// GrantChecker answers explicit per-user command grants.
type GrantChecker interface {
	IsGranted(user, command string) bool
}

// Gate is a pure decision function over current snapshots; it never
// mutates state.
type Gate struct {
	owner  string
	prefix string
	games  ActiveGameIndex
	grants GrantChecker
}

// New creates a gate for the configured owner identity and command
// prefix.
func New(owner, prefix string, games ActiveGameIndex, grants GrantChecker) *Gate {
	return &Gate{
		owner:  NormalizeID(owner),
		prefix: prefix,
		games:  games,
		grants: grants,
	}
}

// Decide evaluates the event. Rules apply in order, first match wins:
//
//  1. sender normalizes to the owner, or the event is self-sent
//  2. the chat's active game accepts the text as move input
//  3. the text is a command explicitly granted to the sender
//  4. deny
func (g *Gate) Decide(ev Event) Decision {
	if ev.IsSelfSent || NormalizeID(ev.SenderID) == g.owner {
		return Decision{Allowed: true, Reason: ReasonOwner}
	}

	if g.games.IsMoveInput(ev.ChatID, ev.RawText) {
		return Decision{Allowed: true, Reason: ReasonActiveGameInput}
	}

	if command, ok := g.Command(ev.RawText); ok {
		if g.grants.IsGranted(ev.SenderID, command) {
			return Decision{Allowed: true, Reason: ReasonExplicitGrant, Context: command}
		}
	}

	return Decision{Reason: ReasonDenied}
}

// Command extracts the command name from prefixed text. Malformed or
// non-command text yields ok == false.
func (g *Gate) Command(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, g.prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(text, g.prefix)
	if rest == "" || rest[0] == ' ' || rest[0] == '\t' {
		// The prefix must be immediately followed by the command name.
		return "", false
	}
	fields := strings.Fields(rest)
	return strings.ToLower(fields[0]), true
}

// NormalizeID canonicalizes a sender identifier by stripping a
// trailing ":<digits>" device suffix before the domain separator,
// e.g. "123456:12@host" becomes "123456@host".
func NormalizeID(id string) string {
	local, domain, found := strings.Cut(id, "@")
	if colon := strings.LastIndex(local, ":"); colon >= 0 {
		if isDigits(local[colon+1:]) {
			local = local[:colon]
		}
	}
	if !found {
		return local
	}
	return local + "@" + domain
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
