// Package perm implements per-user explicit command grants with an
// append-only, size-bounded audit log.
package perm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/wardenbot/warden/internal/store"
)

// Common errors for grant operations.
var (
	ErrAlreadyGranted = errors.New("permission already granted")
	ErrNotGranted     = errors.New("permission not granted")
)

// AuditAction is the kind of grant mutation.
type AuditAction string

const (
	ActionAllow    AuditAction = "allow"
	ActionDisallow AuditAction = "disallow"
)

// AuditRecord documents a single grant mutation.
type AuditRecord struct {
	Action    AuditAction `json:"action"`
	UserID    string      `json:"user_id"`
	Command   string      `json:"command"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
}

// Result reports the outcome of one item of a bulk operation.
type Result struct {
	Command string
	Err     error
}

// Registry tracks which commands each user is explicitly allowed to
// run. Grant sets mutate only through Allow/Disallow, each producing
// exactly one audit record.
type Registry struct {
	mu     sync.Mutex
	grants map[string]map[string]struct{}

	// audit is a ring buffer capped at auditCap; oldest records are
	// evicted silently.
	audit    []AuditRecord
	auditCap int

	now func() time.Time
}

// NewRegistry creates an empty registry with the given audit log cap.
func NewRegistry(auditCap int) *Registry {
	if auditCap <= 0 {
		auditCap = 256
	}
	return &Registry{
		grants:   make(map[string]map[string]struct{}),
		auditCap: auditCap,
		now:      time.Now,
	}
}

// Allow grants command to user. Fails with ErrAlreadyGranted if the
// grant is already present.
func (r *Registry) Allow(user, command, actor string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.grants[user]
	if ok {
		if _, exists := set[command]; exists {
			return ErrAlreadyGranted
		}
	} else {
		set = make(map[string]struct{})
		r.grants[user] = set
	}
	set[command] = struct{}{}
	r.appendAudit(ActionAllow, user, command, actor)
	return nil
}

// Disallow revokes command from user. Fails with ErrNotGranted if the
// grant is absent. A user whose grant set empties is dropped.
func (r *Registry) Disallow(user, command, actor string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.grants[user]
	if !ok {
		return ErrNotGranted
	}
	if _, exists := set[command]; !exists {
		return ErrNotGranted
	}
	delete(set, command)
	if len(set) == 0 {
		delete(r.grants, user)
	}
	r.appendAudit(ActionDisallow, user, command, actor)
	return nil
}

// IsGranted reports whether user holds an explicit grant for command.
func (r *Registry) IsGranted(user, command string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.grants[user]
	if !ok {
		return false
	}
	_, exists := set[command]
	return exists
}

// AllowAll grants each command to user, applying per-item semantics.
// Partial success is permitted; the result list mirrors the input.
func (r *Registry) AllowAll(user string, commands []string, actor string) []Result {
	results := make([]Result, 0, len(commands))
	for _, command := range commands {
		results = append(results, Result{Command: command, Err: r.Allow(user, command, actor)})
	}
	return results
}

// DisallowAll revokes each command from user with per-item semantics.
func (r *Registry) DisallowAll(user string, commands []string, actor string) []Result {
	results := make([]Result, 0, len(commands))
	for _, command := range commands {
		results = append(results, Result{Command: command, Err: r.Disallow(user, command, actor)})
	}
	return results
}

// AuditLog returns the retained audit records, oldest first.
func (r *Registry) AuditLog() []AuditRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]AuditRecord, len(r.audit))
	copy(out, r.audit)
	return out
}

func (r *Registry) appendAudit(action AuditAction, user, command, actor string) {
	rec := AuditRecord{
		Action:    action,
		UserID:    user,
		Command:   command,
		Actor:     actor,
		Timestamp: r.now(),
	}
	r.audit = append(r.audit, rec)
	if len(r.audit) > r.auditCap {
		r.audit = r.audit[len(r.audit)-r.auditCap:]
	}
}

// registrySnapshot is the serialized form of the registry.
type registrySnapshot struct {
	Grants map[string][]string `json:"grants"`
	Audit  []AuditRecord       `json:"audit"`
}

const snapshotKey = "registry"

// Mirror writes grants and audit log to durable storage under the
// permissions namespace.
func (r *Registry) Mirror(ctx context.Context, p store.Persistence) error {
	r.mu.Lock()
	snap := registrySnapshot{
		Grants: make(map[string][]string, len(r.grants)),
		Audit:  make([]AuditRecord, len(r.audit)),
	}
	for user, set := range r.grants {
		cmds := make([]string, 0, len(set))
		for command := range set {
			cmds = append(cmds, command)
		}
		snap.Grants[user] = cmds
	}
	copy(snap.Audit, r.audit)
	r.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return p.Save(ctx, store.NamespacePermissions, snapshotKey, data)
}

// LoadFrom replaces registry state with the durable snapshot. A
// missing snapshot leaves the registry empty.
func (r *Registry) LoadFrom(ctx context.Context, p store.Persistence) error {
	data, err := p.Load(ctx, store.NamespacePermissions, snapshotKey)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil
		}
		return err
	}
	var snap registrySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.grants = make(map[string]map[string]struct{}, len(snap.Grants))
	for user, cmds := range snap.Grants {
		set := make(map[string]struct{}, len(cmds))
		for _, command := range cmds {
			set[command] = struct{}{}
		}
		if len(set) > 0 {
			r.grants[user] = set
		}
	}
	r.audit = snap.Audit
	if len(r.audit) > r.auditCap {
		r.audit = r.audit[len(r.audit)-r.auditCap:]
	}
	return nil
}
