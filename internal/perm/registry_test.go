package perm

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/wardenbot/warden/internal/store"
)

func TestAllowThenIsGranted(t *testing.T) {
	r := NewRegistry(16)

	if err := r.Allow("userx", "ping", "owner"); err != nil {
		t.Fatalf("Allow returned unexpected error: %v", err)
	}
	if !r.IsGranted("userx", "ping") {
		t.Error("IsGranted = false after Allow")
	}
	if r.IsGranted("userx", "other") {
		t.Error("IsGranted = true for ungranted command")
	}
	if r.IsGranted("other", "ping") {
		t.Error("IsGranted = true for different user")
	}
}

func TestAllowDuplicateFails(t *testing.T) {
	r := NewRegistry(16)

	if err := r.Allow("userx", "ping", "owner"); err != nil {
		t.Fatalf("Allow returned unexpected error: %v", err)
	}
	err := r.Allow("userx", "ping", "owner")
	if !errors.Is(err, ErrAlreadyGranted) {
		t.Fatalf("duplicate Allow error = %v, want ErrAlreadyGranted", err)
	}

	// The failed attempt must not produce an audit record.
	if got := len(r.AuditLog()); got != 1 {
		t.Errorf("audit log has %d records, want 1", got)
	}
}

func TestDisallowRemovesGrant(t *testing.T) {
	r := NewRegistry(16)

	if err := r.Allow("userx", "ping", "owner"); err != nil {
		t.Fatalf("Allow returned unexpected error: %v", err)
	}
	if err := r.Disallow("userx", "ping", "owner"); err != nil {
		t.Fatalf("Disallow returned unexpected error: %v", err)
	}
	if r.IsGranted("userx", "ping") {
		t.Error("IsGranted = true after Disallow")
	}

	// The user's entry is dropped once its grant set empties, so a
	// second disallow fails without state change.
	err := r.Disallow("userx", "ping", "owner")
	if !errors.Is(err, ErrNotGranted) {
		t.Fatalf("second Disallow error = %v, want ErrNotGranted", err)
	}
	if got := len(r.AuditLog()); got != 2 {
		t.Errorf("audit log has %d records, want 2", got)
	}
}

func TestDisallowUngrantedFails(t *testing.T) {
	r := NewRegistry(16)

	err := r.Disallow("nobody", "ping", "owner")
	if !errors.Is(err, ErrNotGranted) {
		t.Fatalf("Disallow error = %v, want ErrNotGranted", err)
	}
	if got := len(r.AuditLog()); got != 0 {
		t.Errorf("audit log has %d records, want 0", got)
	}
}

func TestAuditRecordsMutations(t *testing.T) {
	r := NewRegistry(16)
	r.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	if err := r.Allow("userx", "ping", "ownery"); err != nil {
		t.Fatalf("Allow returned unexpected error: %v", err)
	}
	if err := r.Disallow("userx", "ping", "ownery"); err != nil {
		t.Fatalf("Disallow returned unexpected error: %v", err)
	}

	log := r.AuditLog()
	if len(log) != 2 {
		t.Fatalf("audit log has %d records, want 2", len(log))
	}
	if log[0].Action != ActionAllow || log[1].Action != ActionDisallow {
		t.Errorf("actions = %q, %q; want allow, disallow", log[0].Action, log[1].Action)
	}
	for _, rec := range log {
		if rec.UserID != "userx" || rec.Command != "ping" || rec.Actor != "ownery" {
			t.Errorf("record %+v has wrong fields", rec)
		}
		if rec.Timestamp.IsZero() {
			t.Error("record timestamp is zero")
		}
	}
}

func TestAuditRingEvictsOldest(t *testing.T) {
	r := NewRegistry(3)

	commands := []string{"a", "b", "c", "d", "e"}
	for _, command := range commands {
		if err := r.Allow("userx", command, "owner"); err != nil {
			t.Fatalf("Allow(%q) returned unexpected error: %v", command, err)
		}
	}

	log := r.AuditLog()
	if len(log) != 3 {
		t.Fatalf("audit log has %d records, want cap 3", len(log))
	}
	// Oldest first: the "a" and "b" records were evicted silently.
	want := []string{"c", "d", "e"}
	for i, rec := range log {
		if rec.Command != want[i] {
			t.Errorf("log[%d].Command = %q, want %q", i, rec.Command, want[i])
		}
	}
}

func TestBulkPartialSuccess(t *testing.T) {
	r := NewRegistry(16)

	if err := r.Allow("userx", "b", "owner"); err != nil {
		t.Fatalf("Allow returned unexpected error: %v", err)
	}

	results := r.AllowAll("userx", []string{"a", "b", "c"}, "owner")
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Err != nil {
		t.Errorf("a: unexpected error %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, ErrAlreadyGranted) {
		t.Errorf("b: error = %v, want ErrAlreadyGranted", results[1].Err)
	}
	if results[2].Err != nil {
		t.Errorf("c: unexpected error %v", results[2].Err)
	}

	// a and c landed despite b failing.
	for _, command := range []string{"a", "b", "c"} {
		if !r.IsGranted("userx", command) {
			t.Errorf("IsGranted(userx, %q) = false", command)
		}
	}

	results = r.DisallowAll("userx", []string{"a", "missing"}, "owner")
	if results[0].Err != nil {
		t.Errorf("a: unexpected error %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, ErrNotGranted) {
		t.Errorf("missing: error = %v, want ErrNotGranted", results[1].Err)
	}
}

func TestMirrorRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := store.NewFileBackend(filepath.Join(t.TempDir(), "perm.json"))

	r := NewRegistry(16)
	if err := r.Allow("userx", "ping", "owner"); err != nil {
		t.Fatalf("Allow returned unexpected error: %v", err)
	}
	if err := r.Allow("usery", "game", "owner"); err != nil {
		t.Fatalf("Allow returned unexpected error: %v", err)
	}
	if err := r.Mirror(ctx, backend); err != nil {
		t.Fatalf("Mirror returned unexpected error: %v", err)
	}

	restored := NewRegistry(16)
	if err := restored.LoadFrom(ctx, backend); err != nil {
		t.Fatalf("LoadFrom returned unexpected error: %v", err)
	}
	if !restored.IsGranted("userx", "ping") || !restored.IsGranted("usery", "game") {
		t.Error("grants missing after restore")
	}
	if got := len(restored.AuditLog()); got != 2 {
		t.Errorf("restored audit log has %d records, want 2", got)
	}
}

func TestLoadFromEmptyBackend(t *testing.T) {
	backend := store.NewFileBackend(filepath.Join(t.TempDir(), "perm.json"))
	r := NewRegistry(16)
	if err := r.LoadFrom(context.Background(), backend); err != nil {
		t.Fatalf("LoadFrom on empty backend returned error: %v", err)
	}
	if r.IsGranted("anyone", "anything") {
		t.Error("empty registry should grant nothing")
	}
}
