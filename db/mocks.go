package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/sksmith/video-shoppe/testutil"
)

// MockConn records every statement it is handed. Unless a test sets the funcs, queries return no rows and
// statements affect none.
type MockConn struct {
	QueryFunc    func(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...interface{}) pgx.Row
	ExecFunc     func(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	BeginFunc    func(ctx context.Context) (pgx.Tx, error)
	*testutil.CallWatcher
}

func NewMockConn() MockConn {
	return MockConn{
		QueryFunc: func(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
			return nil, pgx.ErrNoRows
		},
		QueryRowFunc: func(ctx context.Context, sql string, args ...interface{}) pgx.Row {
			return MockRow{Err: pgx.ErrNoRows}
		},
		ExecFunc: func(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
			return CommandTag("UPDATE", 0), nil
		},
		BeginFunc:   func(ctx context.Context) (pgx.Tx, error) { return nil, nil },
		CallWatcher: testutil.NewCallWatcher(),
	}
}

func (c *MockConn) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	c.AddCall(ctx, sql, args)
	return c.QueryFunc(ctx, sql, args...)
}

func (c *MockConn) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	c.AddCall(ctx, sql, args)
	return c.QueryRowFunc(ctx, sql, args...)
}

func (c *MockConn) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	c.AddCall(ctx, sql, args)
	return c.ExecFunc(ctx, sql, args...)
}

func (c *MockConn) Begin(ctx context.Context) (pgx.Tx, error) {
	c.AddCall(ctx)
	return c.BeginFunc(ctx)
}

// MockTransaction shares one CallWatcher between its statements and its Commit and Rollback calls.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	MockConn
}

func NewMockTransaction() *MockTransaction {
	return &MockTransaction{
		MockConn:     NewMockConn(),
		CommitFunc:   func(ctx context.Context) error { return nil },
		RollbackFunc: func(ctx context.Context) error { return nil },
	}
}

func (t *MockTransaction) Commit(ctx context.Context) error {
	t.AddCall(ctx)
	return t.CommitFunc(ctx)
}

func (t *MockTransaction) Rollback(ctx context.Context) error {
	t.AddCall(ctx)
	return t.RollbackFunc(ctx)
}

// MockRow returns Err from Scan, or hands the destinations to ScanFunc.
type MockRow struct {
	Err      error
	ScanFunc func(dest ...interface{})
}

func (r MockRow) Scan(dest ...interface{}) error {
	if r.Err != nil {
		return r.Err
	}
	if r.ScanFunc != nil {
		r.ScanFunc(dest...)
	}
	return nil
}

// CommandTag is the tag postgres reports when an op statement affects the given number of rows.
func CommandTag(op string, rows int64) pgconn.CommandTag {
	if op == "INSERT" {
		return pgconn.CommandTag(fmt.Sprintf("INSERT 0 %d", rows))
	}
	return pgconn.CommandTag(fmt.Sprintf("%s %d", op, rows))
}
