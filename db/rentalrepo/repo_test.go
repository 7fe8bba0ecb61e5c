package rentalrepo_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/sksmith/video-shoppe/core"
	"github.com/sksmith/video-shoppe/core/rental"
	"github.com/sksmith/video-shoppe/db"
	"github.com/sksmith/video-shoppe/db/rentalrepo"
	"github.com/sksmith/video-shoppe/testutil"
)

func TestMain(m *testing.M) {
	testutil.ConfigLogging()
	os.Exit(m.Run())
}

var errBoom = errors.New("connection reset")

func itemRow(id uint64, quantity int64) db.MockRow {
	return db.MockRow{ScanFunc: func(dest ...interface{}) {
		*dest[0].(*uint64) = id
		*dest[6].(*int64) = quantity
		*dest[7].(*bool) = quantity > 0
	}}
}

func TestDecrementStock(t *testing.T) {
	tests := []struct {
		name string
		row  db.MockRow

		wantErr      error
		wantQuantity int64
	}{
		{
			name:         "copy is taken",
			row:          itemRow(7, 1),
			wantQuantity: 1,
		},
		{
			name:    "no copy left",
			row:     db.MockRow{Err: pgx.ErrNoRows},
			wantErr: rental.ErrNoStock,
		},
		{
			name:    "database failure",
			row:     db.MockRow{Err: errBoom},
			wantErr: errBoom,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			conn := db.NewMockConn()
			tx := db.NewMockTransaction()
			tx.QueryRowFunc = func(ctx context.Context, sql string, args ...interface{}) pgx.Row {
				return test.row
			}

			repo := rentalrepo.NewPostgresRepo(&conn)
			item, err := repo.DecrementStock(context.Background(), 7, core.UpdateOptions{Tx: tx})

			if !errors.Is(err, test.wantErr) {
				t.Errorf("unexpected error got=[%v] want=[%v]", err, test.wantErr)
			}
			if test.wantErr == nil && (item.ID != 7 || item.Quantity != test.wantQuantity || !item.Available) {
				t.Errorf("unexpected item got=%+v", item)
			}

			conn.VerifyCount("QueryRow", 0, t)
			tx.VerifyCount("QueryRow", 1, t)

			sql := tx.GetCall("QueryRow")[0][1].(string)
			if !strings.Contains(sql, "quantity > 0") {
				t.Errorf("decrement must be guarded by the stock on hand, sql=%s", sql)
			}
		})
	}
}

func TestCloseRental(t *testing.T) {
	tests := []struct {
		name    string
		row     db.MockRow
		wantErr error
	}{
		{
			name: "rental is closed",
			row: db.MockRow{ScanFunc: func(dest ...interface{}) {
				*dest[0].(*uint64) = 12
				*dest[6].(*string) = string(rental.Returned)
			}},
		},
		{
			name:    "rental is no longer out",
			row:     db.MockRow{Err: pgx.ErrNoRows},
			wantErr: rental.ErrNotOut,
		},
		{
			name:    "database failure",
			row:     db.MockRow{Err: errBoom},
			wantErr: errBoom,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			conn := db.NewMockConn()
			conn.QueryRowFunc = func(ctx context.Context, sql string, args ...interface{}) pgx.Row {
				return test.row
			}

			repo := rentalrepo.NewPostgresRepo(&conn)
			r, err := repo.CloseRental(context.Background(), 12, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), "clerk")

			if !errors.Is(err, test.wantErr) {
				t.Errorf("unexpected error got=[%v] want=[%v]", err, test.wantErr)
			}
			if test.wantErr == nil && (r.ID != 12 || r.Status != rental.Returned) {
				t.Errorf("unexpected rental got=%+v", r)
			}

			args := conn.GetCall("QueryRow")[0][2].([]interface{})
			if args[len(args)-1] != string(rental.Out) {
				t.Errorf("close must only apply to rentals still out, args=%v", args)
			}
		})
	}
}

func TestLookupsNotFound(t *testing.T) {
	conn := db.NewMockConn()
	repo := rentalrepo.NewPostgresRepo(&conn)
	ctx := context.Background()

	if _, err := repo.GetItem(ctx, 1); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetItem got=[%v] want=[%v]", err, core.ErrNotFound)
	}
	if _, err := repo.GetCustomer(ctx, 1); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetCustomer got=[%v] want=[%v]", err, core.ErrNotFound)
	}
	if _, err := repo.GetRental(ctx, 1, core.QueryOptions{ForUpdate: true}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetRental got=[%v] want=[%v]", err, core.ErrNotFound)
	}
	if _, err := repo.IncrementStock(ctx, 1); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("IncrementStock got=[%v] want=[%v]", err, core.ErrNotFound)
	}

	sql := conn.GetCall("QueryRow")[2][1].(string)
	if !strings.HasSuffix(strings.TrimSpace(sql), "FOR UPDATE") {
		t.Errorf("locked read must end with FOR UPDATE, sql=%s", sql)
	}
}

func TestLedgerUpdates(t *testing.T) {
	due := rental.DueDate{RentalID: 12, Date: time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC)}

	tests := []struct {
		name    string
		tag     pgconn.CommandTag
		execErr error
		call    func(repo rental.Repository) error
		wantErr error
	}{
		{
			name: "due date added",
			tag:  db.CommandTag("INSERT", 1),
			call: func(repo rental.Repository) error {
				return repo.AddDueDate(context.Background(), 42, due)
			},
		},
		{
			name: "due date added for unknown customer",
			tag:  db.CommandTag("INSERT", 0),
			call: func(repo rental.Repository) error {
				return repo.AddDueDate(context.Background(), 42, due)
			},
			wantErr: core.ErrNotFound,
		},
		{
			name: "due date removed",
			tag:  db.CommandTag("UPDATE", 1),
			call: func(repo rental.Repository) error {
				return repo.RemoveDueDate(context.Background(), 42, 12)
			},
		},
		{
			name: "due date removed for unknown customer",
			tag:  db.CommandTag("UPDATE", 0),
			call: func(repo rental.Repository) error {
				return repo.RemoveDueDate(context.Background(), 42, 12)
			},
			wantErr: core.ErrNotFound,
		},
		{
			name:    "database failure",
			execErr: errBoom,
			call: func(repo rental.Repository) error {
				return repo.RemoveDueDate(context.Background(), 42, 12)
			},
			wantErr: errBoom,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			conn := db.NewMockConn()
			conn.ExecFunc = func(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
				return test.tag, test.execErr
			}

			err := test.call(rentalrepo.NewPostgresRepo(&conn))
			if !errors.Is(err, test.wantErr) {
				t.Errorf("unexpected error got=[%v] want=[%v]", err, test.wantErr)
			}
			conn.VerifyCount("Exec", 1, t)
		})
	}
}
