package rentalrepo

import (
	"context"
	"time"

	"github.com/sksmith/video-shoppe/core"
	"github.com/sksmith/video-shoppe/core/rental"
	"github.com/sksmith/video-shoppe/db"
	"github.com/sksmith/video-shoppe/testutil"
)

type MockRepo struct {
	GetItemFunc        func(ctx context.Context, id uint64, options ...core.QueryOptions) (rental.Item, error)
	SearchItemsFunc    func(ctx context.Context, search rental.ItemSearch, limit, offset int, options ...core.QueryOptions) ([]rental.Item, error)
	SaveItemFunc       func(ctx context.Context, item *rental.Item, options ...core.UpdateOptions) error
	DecrementStockFunc func(ctx context.Context, id uint64, options ...core.UpdateOptions) (rental.Item, error)
	IncrementStockFunc func(ctx context.Context, id uint64, options ...core.UpdateOptions) (rental.Item, error)

	GetCustomerFunc        func(ctx context.Context, id uint64, options ...core.QueryOptions) (rental.Customer, error)
	FindCustomerByNameFunc func(ctx context.Context, name string, options ...core.QueryOptions) (rental.Customer, error)
	SaveCustomerFunc       func(ctx context.Context, customer *rental.Customer, options ...core.UpdateOptions) error
	AddDueDateFunc         func(ctx context.Context, customerID uint64, due rental.DueDate, options ...core.UpdateOptions) error
	RemoveDueDateFunc      func(ctx context.Context, customerID, rentalID uint64, options ...core.UpdateOptions) error
	ReplaceDueDatesFunc    func(ctx context.Context, customerID uint64, dues []rental.DueDate, options ...core.UpdateOptions) error

	NextRentalIDFunc   func(ctx context.Context, options ...core.UpdateOptions) (uint64, error)
	GetRentalFunc      func(ctx context.Context, id uint64, options ...core.QueryOptions) (rental.Rental, error)
	ListRentalsFunc    func(ctx context.Context, opts rental.ListRentalsOptions, today time.Time, limit, offset int, options ...core.QueryOptions) ([]rental.Rental, error)
	GetOpenRentalsFunc func(ctx context.Context, customerID uint64, options ...core.QueryOptions) ([]rental.Rental, error)
	SaveRentalFunc     func(ctx context.Context, r *rental.Rental, options ...core.UpdateOptions) error
	CloseRentalFunc    func(ctx context.Context, id uint64, returned time.Time, by string, options ...core.UpdateOptions) (rental.Rental, error)

	BeginTransactionFunc func(ctx context.Context) (core.Transaction, error)
	*testutil.CallWatcher
}

func NewMockRepo() MockRepo {
	return MockRepo{
		GetItemFunc: func(ctx context.Context, id uint64, options ...core.QueryOptions) (rental.Item, error) {
			return rental.Item{}, nil
		},
		SearchItemsFunc: func(ctx context.Context, search rental.ItemSearch, limit, offset int, options ...core.QueryOptions) ([]rental.Item, error) {
			return nil, nil
		},
		SaveItemFunc: func(ctx context.Context, item *rental.Item, options ...core.UpdateOptions) error { return nil },
		DecrementStockFunc: func(ctx context.Context, id uint64, options ...core.UpdateOptions) (rental.Item, error) {
			return rental.Item{ID: id}, nil
		},
		IncrementStockFunc: func(ctx context.Context, id uint64, options ...core.UpdateOptions) (rental.Item, error) {
			return rental.Item{ID: id, Quantity: 1, Available: true}, nil
		},
		GetCustomerFunc: func(ctx context.Context, id uint64, options ...core.QueryOptions) (rental.Customer, error) {
			return rental.Customer{}, nil
		},
		FindCustomerByNameFunc: func(ctx context.Context, name string, options ...core.QueryOptions) (rental.Customer, error) {
			return rental.Customer{}, nil
		},
		SaveCustomerFunc: func(ctx context.Context, customer *rental.Customer, options ...core.UpdateOptions) error { return nil },
		AddDueDateFunc: func(ctx context.Context, customerID uint64, due rental.DueDate, options ...core.UpdateOptions) error {
			return nil
		},
		RemoveDueDateFunc: func(ctx context.Context, customerID, rentalID uint64, options ...core.UpdateOptions) error {
			return nil
		},
		ReplaceDueDatesFunc: func(ctx context.Context, customerID uint64, dues []rental.DueDate, options ...core.UpdateOptions) error {
			return nil
		},
		NextRentalIDFunc: func(ctx context.Context, options ...core.UpdateOptions) (uint64, error) { return 1, nil },
		GetRentalFunc: func(ctx context.Context, id uint64, options ...core.QueryOptions) (rental.Rental, error) {
			return rental.Rental{}, nil
		},
		ListRentalsFunc: func(ctx context.Context, opts rental.ListRentalsOptions, today time.Time, limit, offset int, options ...core.QueryOptions) ([]rental.Rental, error) {
			return nil, nil
		},
		GetOpenRentalsFunc: func(ctx context.Context, customerID uint64, options ...core.QueryOptions) ([]rental.Rental, error) {
			return nil, nil
		},
		SaveRentalFunc: func(ctx context.Context, r *rental.Rental, options ...core.UpdateOptions) error { return nil },
		CloseRentalFunc: func(ctx context.Context, id uint64, returned time.Time, by string, options ...core.UpdateOptions) (rental.Rental, error) {
			d := returned
			return rental.Rental{ID: id, Status: rental.Returned, ReturnDate: &d, ReturnedBy: by}, nil
		},
		BeginTransactionFunc: func(ctx context.Context) (core.Transaction, error) { return db.NewMockTransaction(), nil },
		CallWatcher:          testutil.NewCallWatcher(),
	}
}

func (r MockRepo) GetItem(ctx context.Context, id uint64, options ...core.QueryOptions) (rental.Item, error) {
	r.AddCall(ctx, id, options)
	return r.GetItemFunc(ctx, id, options...)
}

func (r MockRepo) SearchItems(ctx context.Context, search rental.ItemSearch, limit, offset int, options ...core.QueryOptions) ([]rental.Item, error) {
	r.AddCall(ctx, search, limit, offset, options)
	return r.SearchItemsFunc(ctx, search, limit, offset, options...)
}

func (r MockRepo) SaveItem(ctx context.Context, item *rental.Item, options ...core.UpdateOptions) error {
	r.AddCall(ctx, item, options)
	return r.SaveItemFunc(ctx, item, options...)
}

func (r MockRepo) DecrementStock(ctx context.Context, id uint64, options ...core.UpdateOptions) (rental.Item, error) {
	r.AddCall(ctx, id, options)
	return r.DecrementStockFunc(ctx, id, options...)
}

func (r MockRepo) IncrementStock(ctx context.Context, id uint64, options ...core.UpdateOptions) (rental.Item, error) {
	r.AddCall(ctx, id, options)
	return r.IncrementStockFunc(ctx, id, options...)
}

func (r MockRepo) GetCustomer(ctx context.Context, id uint64, options ...core.QueryOptions) (rental.Customer, error) {
	r.AddCall(ctx, id, options)
	return r.GetCustomerFunc(ctx, id, options...)
}

func (r MockRepo) FindCustomerByName(ctx context.Context, name string, options ...core.QueryOptions) (rental.Customer, error) {
	r.AddCall(ctx, name, options)
	return r.FindCustomerByNameFunc(ctx, name, options...)
}

func (r MockRepo) SaveCustomer(ctx context.Context, customer *rental.Customer, options ...core.UpdateOptions) error {
	r.AddCall(ctx, customer, options)
	return r.SaveCustomerFunc(ctx, customer, options...)
}

func (r MockRepo) AddDueDate(ctx context.Context, customerID uint64, due rental.DueDate, options ...core.UpdateOptions) error {
	r.AddCall(ctx, customerID, due, options)
	return r.AddDueDateFunc(ctx, customerID, due, options...)
}

func (r MockRepo) RemoveDueDate(ctx context.Context, customerID, rentalID uint64, options ...core.UpdateOptions) error {
	r.AddCall(ctx, customerID, rentalID, options)
	return r.RemoveDueDateFunc(ctx, customerID, rentalID, options...)
}

func (r MockRepo) ReplaceDueDates(ctx context.Context, customerID uint64, dues []rental.DueDate, options ...core.UpdateOptions) error {
	r.AddCall(ctx, customerID, dues, options)
	return r.ReplaceDueDatesFunc(ctx, customerID, dues, options...)
}

func (r MockRepo) NextRentalID(ctx context.Context, options ...core.UpdateOptions) (uint64, error) {
	r.AddCall(ctx, options)
	return r.NextRentalIDFunc(ctx, options...)
}

func (r MockRepo) GetRental(ctx context.Context, id uint64, options ...core.QueryOptions) (rental.Rental, error) {
	r.AddCall(ctx, id, options)
	return r.GetRentalFunc(ctx, id, options...)
}

func (r MockRepo) ListRentals(ctx context.Context, opts rental.ListRentalsOptions, today time.Time, limit, offset int, options ...core.QueryOptions) ([]rental.Rental, error) {
	r.AddCall(ctx, opts, today, limit, offset, options)
	return r.ListRentalsFunc(ctx, opts, today, limit, offset, options...)
}

func (r MockRepo) GetOpenRentals(ctx context.Context, customerID uint64, options ...core.QueryOptions) ([]rental.Rental, error) {
	r.AddCall(ctx, customerID, options)
	return r.GetOpenRentalsFunc(ctx, customerID, options...)
}

func (r MockRepo) SaveRental(ctx context.Context, rl *rental.Rental, options ...core.UpdateOptions) error {
	r.AddCall(ctx, rl, options)
	return r.SaveRentalFunc(ctx, rl, options...)
}

func (r MockRepo) CloseRental(ctx context.Context, id uint64, returned time.Time, by string, options ...core.UpdateOptions) (rental.Rental, error) {
	r.AddCall(ctx, id, returned, by, options)
	return r.CloseRentalFunc(ctx, id, returned, by, options...)
}

func (r MockRepo) BeginTransaction(ctx context.Context) (core.Transaction, error) {
	r.AddCall(ctx)
	return r.BeginTransactionFunc(ctx)
}
