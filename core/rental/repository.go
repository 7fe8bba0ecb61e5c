package rental

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sksmith/video-shoppe/core"
)

var (
	// ErrNoStock is returned by DecrementStock when the item has no copy left to take.
	ErrNoStock = errors.New("rental: no copies in stock")
	// ErrNotOut is returned by CloseRental when the rental is no longer out.
	ErrNotOut = errors.New("rental: rental is not out")
)

func rollback(ctx context.Context, tx core.Transaction, err error) {
	if tx == nil {
		return
	}
	e := tx.Rollback(ctx)
	if e != nil {
		log.Warn().Err(e).AnErr("cause", err).Msg("failed to rollback")
	}
}

type Transactional interface {
	BeginTransaction(ctx context.Context) (core.Transaction, error)
}

type Repository interface {
	ItemRepository
	CustomerRepository
	RentalRepository
}

type ItemRepository interface {
	Transactional
	GetItem(ctx context.Context, id uint64, options ...core.QueryOptions) (Item, error)
	SearchItems(ctx context.Context, search ItemSearch, limit, offset int, options ...core.QueryOptions) ([]Item, error)

	SaveItem(ctx context.Context, item *Item, options ...core.UpdateOptions) error
	// DecrementStock takes one copy off the shelf only if one is there, as a single atomic step.
	DecrementStock(ctx context.Context, id uint64, options ...core.UpdateOptions) (Item, error)
	IncrementStock(ctx context.Context, id uint64, options ...core.UpdateOptions) (Item, error)
}

type CustomerRepository interface {
	Transactional
	GetCustomer(ctx context.Context, id uint64, options ...core.QueryOptions) (Customer, error)
	FindCustomerByName(ctx context.Context, name string, options ...core.QueryOptions) (Customer, error)

	SaveCustomer(ctx context.Context, customer *Customer, options ...core.UpdateOptions) error
	// AddDueDate increments the outstanding count and appends the due date in one statement.
	AddDueDate(ctx context.Context, customerID uint64, due DueDate, options ...core.UpdateOptions) error
	// RemoveDueDate decrements the outstanding count, floored at zero, and drops the rental's due date in one
	// statement.
	RemoveDueDate(ctx context.Context, customerID, rentalID uint64, options ...core.UpdateOptions) error
	ReplaceDueDates(ctx context.Context, customerID uint64, dues []DueDate, options ...core.UpdateOptions) error
}

type RentalRepository interface {
	Transactional
	NextRentalID(ctx context.Context, options ...core.UpdateOptions) (uint64, error)
	GetRental(ctx context.Context, id uint64, options ...core.QueryOptions) (Rental, error)
	ListRentals(ctx context.Context, opts ListRentalsOptions, today time.Time, limit, offset int, options ...core.QueryOptions) ([]Rental, error)
	GetOpenRentals(ctx context.Context, customerID uint64, options ...core.QueryOptions) ([]Rental, error)

	SaveRental(ctx context.Context, rental *Rental, options ...core.UpdateOptions) error
	// CloseRental marks the rental returned only if it is still out.
	CloseRental(ctx context.Context, id uint64, returned time.Time, by string, options ...core.UpdateOptions) (Rental, error)
}

type Queue interface {
	PublishEvent(ctx context.Context, event Event) error
	PublishItem(ctx context.Context, item Item) error
}
