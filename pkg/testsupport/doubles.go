package testsupport

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/row"
)

// Call records one executor invocation.
type Call struct {
	Text   string
	Params []any
}

// RecordingExecutor returns canned rows and records every call.
// It is safe for concurrent use.
type RecordingExecutor struct {
	mu    sync.Mutex
	calls []Call

	Rows     []row.Row
	Affected int64
	Err      error

	// Gate, when set, blocks every call until it is closed.
	Gate chan struct{}
}

// Query implements connector.Executor.
func (e *RecordingExecutor) Query(ctx context.Context, text string, params ...any) ([]row.Row, error) {
	if err := e.record(ctx, text, params); err != nil {
		return nil, err
	}
	return append([]row.Row(nil), e.Rows...), nil
}

// Exec implements connector.Execer. It shares Query's call log, gate and
// error, and reports Affected rows.
func (e *RecordingExecutor) Exec(ctx context.Context, text string, params ...any) (int64, error) {
	if err := e.record(ctx, text, params); err != nil {
		return 0, err
	}
	return e.Affected, nil
}

func (e *RecordingExecutor) record(ctx context.Context, text string, params []any) error {
	e.mu.Lock()
	e.calls = append(e.calls, Call{Text: text, Params: append([]any(nil), params...)})
	gate := e.Gate
	e.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return e.Err
}

// Calls returns a copy of the recorded calls.
func (e *RecordingExecutor) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// CallCount returns the number of recorded calls.
func (e *RecordingExecutor) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// StubCache is a cache.Cache answering from a fixed fingerprint set.
type StubCache struct {
	mu     sync.RWMutex
	cached map[cache.Fingerprint]bool
	lookup atomic.Int64

	Err error
}

// NewStubCache returns a StubCache reporting the given query texts as cached.
func NewStubCache(texts ...string) *StubCache {
	c := &StubCache{cached: make(map[cache.Fingerprint]bool)}
	for _, text := range texts {
		c.cached[cache.NewFingerprint(text)] = true
	}
	return c
}

// IsCached implements cache.Cache.
func (c *StubCache) IsCached(ctx context.Context, fp cache.Fingerprint) (bool, error) {
	c.lookup.Add(1)
	if c.Err != nil {
		return false, c.Err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cached[fp], nil
}

// Mark reports text as cached from now on.
func (c *StubCache) Mark(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached[cache.NewFingerprint(text)] = true
}

// Lookups returns the number of IsCached calls.
func (c *StubCache) Lookups() int64 {
	return c.lookup.Load()
}

// ScriptedTx is a transaction double returning scripted errors and counting
// Commit and Rollback calls.
type ScriptedTx struct {
	CommitErr   error
	RollbackErr error

	commits   atomic.Int32
	rollbacks atomic.Int32
}

// Commit implements transaction.Tx.
func (tx *ScriptedTx) Commit() error {
	tx.commits.Add(1)
	return tx.CommitErr
}

// Rollback implements transaction.Tx.
func (tx *ScriptedTx) Rollback() error {
	tx.rollbacks.Add(1)
	return tx.RollbackErr
}

// Commits returns the number of Commit calls.
func (tx *ScriptedTx) Commits() int { return int(tx.commits.Load()) }

// Rollbacks returns the number of Rollback calls.
func (tx *ScriptedTx) Rollbacks() int { return int(tx.rollbacks.Load()) }
