package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakePool implements PostgresPool over an in-memory map.
type fakePool struct {
	rows    map[string]string // "ns/key" -> value
	schema  bool
	closed  bool
	execErr error
}

func newFakePool() *fakePool {
	return &fakePool{rows: make(map[string]string)}
}

func (f *fakePool) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	if strings.Contains(sql, "CREATE TABLE") {
		f.schema = true
		return pgconn.CommandTag{}, nil
	}
	if strings.Contains(sql, "INSERT INTO warden_kv") {
		ns := args[0].(string)
		key := args[1].(string)
		value := args[2].(json.RawMessage)
		f.rows[ns+"/"+key] = string(value)
		return pgconn.CommandTag{}, nil
	}
	return pgconn.CommandTag{}, errors.New("unexpected statement: " + sql)
}

func (f *fakePool) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	ns := args[0].(string)
	key := args[1].(string)
	value, ok := f.rows[ns+"/"+key]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{value: value}
}

func (f *fakePool) Close() { f.closed = true }

type fakeRow struct {
	value string
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*json.RawMessage) = json.RawMessage(r.value)
	return nil
}

func TestPostgresBackend(t *testing.T) {
	ctx := context.Background()
	pool := newFakePool()

	b, err := NewPostgresBackend(ctx, pool)
	if err != nil {
		t.Fatalf("NewPostgresBackend returned unexpected error: %v", err)
	}
	if !pool.schema {
		t.Error("schema was not ensured at construction")
	}

	if err := b.Save(ctx, NamespaceGames, "sessions", json.RawMessage(`[{"id":"g1"}]`)); err != nil {
		t.Fatalf("Save returned unexpected error: %v", err)
	}
	got, err := b.Load(ctx, NamespaceGames, "sessions")
	if err != nil {
		t.Fatalf("Load returned unexpected error: %v", err)
	}
	if string(got) != `[{"id":"g1"}]` {
		t.Errorf("Load = %s", got)
	}

	if _, err := b.Load(ctx, NamespaceGames, "missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("missing key error = %v, want ErrKeyNotFound", err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close returned unexpected error: %v", err)
	}
	if !pool.closed {
		t.Error("Close did not reach the pool")
	}
}

func TestNewPostgresBackendSchemaFailure(t *testing.T) {
	pool := newFakePool()
	pool.execErr = errors.New("connection refused")

	if _, err := NewPostgresBackend(context.Background(), pool); err == nil {
		t.Fatal("expected schema failure to surface")
	}
}
