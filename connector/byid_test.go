package connector

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/entity"
	"github.com/goliatone/go-query-cache/pkg/testsupport"
)

var usersTable = Table{Name: "users", IDColumn: "id", Columns: []string{"id", "name", "email"}}

func TestNewByID_NullArguments(t *testing.T) {
	exec := &testsupport.RecordingExecutor{}
	conn := newTestConnector(t, exec, testsupport.NewStubCache())

	tests := []struct {
		name  string
		conn  *Connector[TestUser]
		exec  Execer
		table Table
	}{
		{"nil connector", nil, exec, usersTable},
		{"nil execer", conn, nil, usersTable},
		{"no table", conn, exec, Table{IDColumn: "id"}},
		{"no id column", conn, exec, Table{Name: "users"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewByID(tt.conn, tt.exec, tt.table); !errors.Is(err, ErrNullArgument) {
				t.Errorf("expected ErrNullArgument, got %v", err)
			}
		})
	}
}

func TestByID_DistinctFingerprintPerID(t *testing.T) {
	exec := &testsupport.RecordingExecutor{Rows: testsupport.LoadRows(t, testsupport.FixturePath("user_single.json"))}
	conn := newTestConnector(t, exec, testsupport.NewStubCache())
	byID, err := NewByID(conn, exec, usersTable)
	if err != nil {
		t.Fatalf("NewByID() failed: %v", err)
	}

	a, b := entity.NewIdentifier(), entity.NewIdentifier()
	if byID.Fingerprint(a) == byID.Fingerprint(b) {
		t.Error("different ids must not share a fingerprint")
	}
	if byID.Fingerprint(a) != byID.Fingerprint(a) {
		t.Error("the same id must produce the same fingerprint")
	}

	outcome, err := byID.GetByID(context.Background(), a)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if outcome.Fingerprint() != byID.Fingerprint(a) {
		t.Error("GetByID must use Fingerprint(id)")
	}

	calls := exec.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if !strings.HasPrefix(calls[0].Text, "SELECT id, name, email FROM users WHERE id = ?") {
		t.Errorf("unexpected query text %q", calls[0].Text)
	}
	if !strings.Contains(calls[0].Text, a.String()) {
		t.Errorf("expected id %s in query text %q", a, calls[0].Text)
	}
	if len(calls[0].Params) != 1 || calls[0].Params[0] != a {
		t.Errorf("expected id bound as the only parameter, got %v", calls[0].Params)
	}
}

func TestByID_CacheHit(t *testing.T) {
	id := entity.NewIdentifier()
	exec := &testsupport.RecordingExecutor{}
	c := testsupport.NewStubCache()
	conn := newTestConnector(t, exec, c)
	byID, err := NewByID(conn, exec, Table{Name: "users", IDColumn: "id"})
	if err != nil {
		t.Fatalf("NewByID() failed: %v", err)
	}

	c.Mark(byID.Fingerprint(id).Text())

	outcome, err := byID.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if !outcome.IsCacheHit() {
		t.Errorf("expected cache hit, got %s", outcome.Kind())
	}
	if exec.CallCount() != 0 {
		t.Errorf("expected no execution, got %d", exec.CallCount())
	}
	if !strings.HasPrefix(byID.Fingerprint(id).Text(), "SELECT * FROM users") {
		t.Errorf("empty column list must select every column, got %q", byID.Fingerprint(id).Text())
	}
}

func TestByID_DeleteByID(t *testing.T) {
	id := entity.NewIdentifier()
	exec := &testsupport.RecordingExecutor{Affected: 1}
	conn := newTestConnector(t, exec, testsupport.NewStubCache())
	byID, err := NewByID(conn, exec, usersTable)
	if err != nil {
		t.Fatalf("NewByID() failed: %v", err)
	}

	fp, err := byID.DeleteByID(context.Background(), id)
	if err != nil {
		t.Fatalf("DeleteByID() failed: %v", err)
	}
	if fp != byID.Fingerprint(id) {
		t.Error("DeleteByID must return the fingerprint to invalidate")
	}

	calls := exec.Calls()
	if len(calls) != 1 || calls[0].Text != "DELETE FROM users WHERE id = ?" || calls[0].Params[0] != id {
		t.Errorf("unexpected calls %+v", calls)
	}

	boom := errors.New("foreign key violation")
	exec.Err = boom
	if _, err := byID.DeleteByID(context.Background(), id); err != boom {
		t.Errorf("expected driver error unchanged, got %v", err)
	}
}

func TestByID_TextPrefix(t *testing.T) {
	ctx := context.Background()
	store, err := cache.NewStore(cache.DefaultConfig())
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	exec := &testsupport.RecordingExecutor{}
	byID, err := NewByID(newTestConnector(t, exec, store), exec, usersTable)
	if err != nil {
		t.Fatalf("NewByID() failed: %v", err)
	}

	if want := "SELECT id, name, email FROM users WHERE id = ? /* id:"; byID.TextPrefix() != want {
		t.Errorf("expected prefix %q, got %q", want, byID.TextPrefix())
	}

	first, second := entity.NewIdentifier(), entity.NewIdentifier()
	other := cache.NewFingerprint(usersQuery)
	for _, fp := range []cache.Fingerprint{byID.Fingerprint(first), byID.Fingerprint(second), other} {
		if err := store.Put(ctx, fp, nil); err != nil {
			t.Fatalf("Put() failed: %v", err)
		}
	}

	removed, err := store.InvalidatePrefix(ctx, byID.TextPrefix())
	if err != nil {
		t.Fatalf("InvalidatePrefix() failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected both per-id entries removed, got %d", removed)
	}
	if cached, _ := store.IsCached(ctx, other); !cached {
		t.Error("unrelated entries must survive")
	}
}

func TestByID_ZeroIdentifier(t *testing.T) {
	exec := &testsupport.RecordingExecutor{}
	conn := newTestConnector(t, exec, testsupport.NewStubCache())
	byID, err := NewByID(conn, exec, usersTable)
	if err != nil {
		t.Fatalf("NewByID() failed: %v", err)
	}

	if _, err := byID.GetByID(context.Background(), entity.Identifier{}); !errors.Is(err, ErrNullArgument) {
		t.Errorf("GetByID: expected ErrNullArgument, got %v", err)
	}
	if _, err := byID.DeleteByID(context.Background(), entity.Identifier{}); !errors.Is(err, ErrNullArgument) {
		t.Errorf("DeleteByID: expected ErrNullArgument, got %v", err)
	}
	if exec.CallCount() != 0 {
		t.Error("a zero id must fail before any I/O")
	}
}
