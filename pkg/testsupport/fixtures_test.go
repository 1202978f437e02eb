package testsupport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/row"
)

func TestLoadFixture(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	testContent := []byte("test fixture content")

	if err := os.WriteFile(testFile, testContent, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	result := LoadFixture(t, testFile)
	if string(result) != string(testContent) {
		t.Errorf("expected %q, got %q", testContent, result)
	}
}

func TestLoadRows(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "rows.json")
	content := `{"columns": ["id", "name"], "rows": [[1, "ada"], [2, null]]}`

	if err := os.WriteFile(testFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	rows := LoadRows(t, testFile)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	id, err := row.Get[int64](rows[0], "id")
	if err != nil || id != 1 {
		t.Errorf("expected id=1, got %v (err %v)", id, err)
	}

	name, err := row.Get[*string](rows[1], "name")
	if err != nil || name != nil {
		t.Errorf("expected nil name, got %v (err %v)", name, err)
	}
}

func TestCompareWithGolden(t *testing.T) {
	tmpDir := t.TempDir()
	goldenFile := filepath.Join(tmpDir, "golden", "out.golden")

	// First call creates the file.
	CompareWithGolden(t, goldenFile, []byte("content"))
	if _, err := os.Stat(goldenFile); err != nil {
		t.Fatalf("golden file should have been created: %v", err)
	}

	// Second call compares against it.
	CompareWithGolden(t, goldenFile, []byte("content"))
}

func TestCompareWithGoldenJSON(t *testing.T) {
	tmpDir := t.TempDir()
	goldenFile := filepath.Join(tmpDir, "out.json")

	if err := os.WriteFile(goldenFile, []byte("{\n  \"a\": 1\n}"), 0644); err != nil {
		t.Fatalf("failed to create golden file: %v", err)
	}

	CompareWithGoldenJSON(t, goldenFile, map[string]int{"a": 1})
}

func TestPaths(t *testing.T) {
	if got := FixturePath("users.json"); got != filepath.Join("testdata", "users.json") {
		t.Errorf("unexpected fixture path %q", got)
	}
	if got := GoldenPath("out.json"); got != filepath.Join("testdata", "golden", "out.json") {
		t.Errorf("unexpected golden path %q", got)
	}
}

func TestRecordingExecutor(t *testing.T) {
	exec := &RecordingExecutor{Rows: []row.Row{row.New([]string{"a"}, []any{1})}}

	rows, err := exec.Query(context.Background(), "SELECT a", 1, "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(rows))
	}

	calls := exec.Calls()
	if len(calls) != 1 || calls[0].Text != "SELECT a" || len(calls[0].Params) != 2 {
		t.Errorf("unexpected calls %+v", calls)
	}

	boom := errors.New("boom")
	exec.Err = boom
	if _, err := exec.Query(context.Background(), "SELECT a"); !errors.Is(err, boom) {
		t.Errorf("expected configured error, got %v", err)
	}
	if exec.CallCount() != 2 {
		t.Errorf("expected 2 calls, got %d", exec.CallCount())
	}
}

func TestRecordingExecutor_GateHonoursContext(t *testing.T) {
	exec := &RecordingExecutor{Gate: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := exec.Query(ctx, "SELECT 1"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStubCache(t *testing.T) {
	c := NewStubCache("SELECT 1")
	ctx := context.Background()

	if ok, _ := c.IsCached(ctx, cache.NewFingerprint("SELECT 1")); !ok {
		t.Error("expected SELECT 1 to be cached")
	}
	if ok, _ := c.IsCached(ctx, cache.NewFingerprint("SELECT 2")); ok {
		t.Error("expected SELECT 2 to be missing")
	}

	c.Mark("SELECT 2")
	if ok, _ := c.IsCached(ctx, cache.NewFingerprint("SELECT 2")); !ok {
		t.Error("expected SELECT 2 to be cached after Mark")
	}
	if c.Lookups() != 3 {
		t.Errorf("expected 3 lookups, got %d", c.Lookups())
	}
}

func TestScriptedTx(t *testing.T) {
	tx := &ScriptedTx{CommitErr: errors.New("constraint")}

	if err := tx.Commit(); err == nil {
		t.Error("expected scripted commit error")
	}
	if err := tx.Rollback(); err != nil {
		t.Errorf("unexpected rollback error: %v", err)
	}
	if tx.Commits() != 1 || tx.Rollbacks() != 1 {
		t.Errorf("expected 1 commit and 1 rollback, got %d and %d", tx.Commits(), tx.Rollbacks())
	}
}

func TestRecordingExecutor_Exec(t *testing.T) {
	exec := &RecordingExecutor{Affected: 3}

	n, err := exec.Exec(context.Background(), "DELETE FROM t WHERE a = ?", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 affected rows, got %d", n)
	}
	if calls := exec.Calls(); len(calls) != 1 || calls[0].Text != "DELETE FROM t WHERE a = ?" {
		t.Errorf("unexpected calls %+v", calls)
	}
}
