package gate

import (
	"testing"
)

type fakeGames struct {
	moveInput bool
}

func (f fakeGames) IsMoveInput(chatID, text string) bool { return f.moveInput }

type fakeGrants struct {
	granted map[string]string // user -> command
}

func (f fakeGrants) IsGranted(user, command string) bool {
	return f.granted[user] == command
}

func newTestGate(moveInput bool, grants map[string]string) *Gate {
	return New("owner@host", ".", fakeGames{moveInput: moveInput}, fakeGrants{granted: grants})
}

func TestDecideOwnerAlwaysAllowed(t *testing.T) {
	g := newTestGate(false, nil)

	// The owner is authorized for any chat and any text, including
	// invalid command or game text.
	texts := []string{"hello", ".unknowncmd", "99", "", "!!!"}
	for _, text := range texts {
		d := g.Decide(Event{SenderID: "owner@host", ChatID: "chat1", RawText: text})
		if !d.Allowed {
			t.Errorf("owner with text %q: not allowed", text)
		}
		if d.Reason != ReasonOwner {
			t.Errorf("owner with text %q: reason = %q, want %q", text, d.Reason, ReasonOwner)
		}
	}
}

func TestDecideSelfSentAllowed(t *testing.T) {
	g := newTestGate(false, nil)

	d := g.Decide(Event{SenderID: "someone@host", ChatID: "c", RawText: "x", IsSelfSent: true})
	if !d.Allowed || d.Reason != ReasonOwner {
		t.Errorf("self-sent: got %+v, want allowed with reason owner", d)
	}
}

func TestDecideOwnerDeviceSuffixNormalized(t *testing.T) {
	g := newTestGate(false, nil)

	// A trailing ":<digits>" device suffix before the domain
	// separator normalizes away.
	d := g.Decide(Event{SenderID: "owner:42@host", ChatID: "c", RawText: "hi"})
	if !d.Allowed || d.Reason != ReasonOwner {
		t.Errorf("device-suffixed owner: got %+v, want owner allow", d)
	}

	// A non-numeric suffix does not.
	d = g.Decide(Event{SenderID: "owner:abc@host", ChatID: "c", RawText: "hi"})
	if d.Allowed {
		t.Errorf("non-numeric suffix should not normalize to owner: got %+v", d)
	}
}

func TestDecideActiveGameInput(t *testing.T) {
	g := newTestGate(true, nil)

	d := g.Decide(Event{SenderID: "player@host", ChatID: "c", RawText: "5"})
	if !d.Allowed || d.Reason != ReasonActiveGameInput {
		t.Errorf("game input: got %+v, want active_game_input allow", d)
	}
}

func TestDecideExplicitGrant(t *testing.T) {
	g := newTestGate(false, map[string]string{"userx@host": "ping"})

	d := g.Decide(Event{SenderID: "userx@host", ChatID: "c", RawText: ".ping"})
	if !d.Allowed || d.Reason != ReasonExplicitGrant {
		t.Fatalf("granted command: got %+v, want explicit_grant allow", d)
	}
	if d.Context != "ping" {
		t.Errorf("decision context = %q, want %q", d.Context, "ping")
	}

	// The same user is denied for an ungranted command.
	d = g.Decide(Event{SenderID: "userx@host", ChatID: "c", RawText: ".other"})
	if d.Allowed {
		t.Errorf("ungranted command should be denied: got %+v", d)
	}
}

func TestDecideDeniesPlainText(t *testing.T) {
	g := newTestGate(false, nil)

	// A non-owner, non-granted user sending plain text in a chat with
	// no active game is always denied.
	d := g.Decide(Event{SenderID: "random@host", ChatID: "c", RawText: "hello there"})
	if d.Allowed {
		t.Fatalf("plain text from stranger: got %+v, want deny", d)
	}
	if d.Reason != ReasonDenied {
		t.Errorf("reason = %q, want %q", d.Reason, ReasonDenied)
	}
}

func TestDecideMalformedCommandNeverGrants(t *testing.T) {
	g := newTestGate(false, map[string]string{"userx@host": "ping"})

	// Prefix with no command name is not a command.
	for _, text := range []string{".", ".  ", "ping", " . ping extra"} {
		d := g.Decide(Event{SenderID: "userx@host", ChatID: "c", RawText: text})
		if d.Allowed {
			t.Errorf("text %q should not match the grant: got %+v", text, d)
		}
	}
}

func TestCommand(t *testing.T) {
	g := newTestGate(false, nil)

	tests := []struct {
		text    string
		command string
		ok      bool
	}{
		{".ping", "ping", true},
		{"  .ping  ", "ping", true},
		{".PING", "ping", true},
		{".allow user cmd", "allow", true},
		{".", "", false},
		{"ping", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		command, ok := g.Command(tt.text)
		if command != tt.command || ok != tt.ok {
			t.Errorf("Command(%q) = (%q, %v), want (%q, %v)", tt.text, command, ok, tt.command, tt.ok)
		}
	}
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"123456@host", "123456@host"},
		{"123456:7@host", "123456@host"},
		{"123456:789@host", "123456@host"},
		{"123456:abc@host", "123456:abc@host"},
		{"123456:@host", "123456:@host"},
		{"plainuser", "plainuser"},
		{"plain:9", "plain"},
	}
	for _, tt := range tests {
		if got := NormalizeID(tt.in); got != tt.out {
			t.Errorf("NormalizeID(%q) = %q, want %q", tt.in, got, tt.out)
		}
	}
}
