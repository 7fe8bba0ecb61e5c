// Package memrepo keeps the store's records in process memory. Transactions are serialized and undone from a log on
// rollback, so a failed checkout leaves nothing behind.
package memrepo

import (
	"context"
	"sync"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"github.com/sksmith/video-shoppe/core"
	"github.com/sksmith/video-shoppe/core/employee"
	"github.com/sksmith/video-shoppe/core/rental"
)

var errUnsupported = errors.New("memrepo: raw sql is not supported")

// Store holds every record. Reads and writes outside a transaction wait for any open transaction to finish.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	items     map[uint64]rental.Item
	customers map[uint64]rental.Customer
	rentals   map[uint64]rental.Rental
	employees map[string]employee.Employee

	itemSeq     uint64
	customerSeq uint64
	rentalSeq   uint64
}

func NewStore() *Store {
	return &Store{
		items:     make(map[uint64]rental.Item),
		customers: make(map[uint64]rental.Customer),
		rentals:   make(map[uint64]rental.Rental),
		employees: make(map[string]employee.Employee),
	}
}

func (s *Store) BeginTransaction(ctx context.Context) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	s.txMu.Lock()
	return &memTx{store: s}, nil
}

type undoFunc func(undo func())

func (s *Store) txFrom(tx core.Transaction) (*memTx, error) {
	if tx == nil {
		return nil, nil
	}
	mt, ok := tx.(*memTx)
	if !ok || mt.store != s {
		return nil, errors.New("memrepo: transaction belongs to another store")
	}
	if mt.done {
		return nil, errors.WithStack(pgx.ErrTxClosed)
	}
	return mt, nil
}

func (s *Store) write(options []core.UpdateOptions, fn func(record undoFunc) error) error {
	var tx core.Transaction
	if len(options) > 0 {
		tx = options[0].Tx
	}
	mt, err := s.txFrom(tx)
	if err != nil {
		return err
	}

	if mt == nil {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if mt == nil {
		return fn(func(func()) {})
	}
	return fn(mt.record)
}

func (s *Store) read(options []core.QueryOptions, fn func() error) error {
	var tx core.Transaction
	if len(options) > 0 {
		tx = options[0].Tx
	}
	mt, err := s.txFrom(tx)
	if err != nil {
		return err
	}

	if mt == nil {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn()
}

type memTx struct {
	store *Store
	undo  []func()
	done  bool
}

func (t *memTx) record(undo func()) {
	t.undo = append(t.undo, undo)
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return errors.WithStack(pgx.ErrTxClosed)
	}
	if err := ctx.Err(); err != nil {
		_ = t.Rollback(context.Background())
		return errors.WithStack(err)
	}
	t.undo = nil
	t.done = true
	t.store.txMu.Unlock()
	return nil
}

func (t *memTx) Rollback(_ context.Context) error {
	if t.done {
		return errors.WithStack(pgx.ErrTxClosed)
	}
	t.store.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.store.mu.Unlock()
	t.undo = nil
	t.done = true
	t.store.txMu.Unlock()
	return nil
}

func (t *memTx) Query(_ context.Context, _ string, _ ...interface{}) (pgx.Rows, error) {
	return nil, errUnsupported
}

func (t *memTx) QueryRow(_ context.Context, _ string, _ ...interface{}) pgx.Row {
	return errRow{}
}

func (t *memTx) Exec(_ context.Context, _ string, _ ...interface{}) (pgconn.CommandTag, error) {
	return nil, errUnsupported
}

func (t *memTx) Begin(_ context.Context) (pgx.Tx, error) {
	return nil, errUnsupported
}

type errRow struct{}

func (errRow) Scan(_ ...interface{}) error {
	return errUnsupported
}
