package rental

import (
	"context"

	"github.com/sksmith/video-shoppe/core"
	"github.com/sksmith/video-shoppe/testutil"
)

type MockRentalService struct {
	CheckoutFunc           func(ctx context.Context, caller core.Caller, req CheckoutRequest) (CheckoutResult, error)
	ReturnFunc             func(ctx context.Context, caller core.Caller, rentalID uint64) (Rental, error)
	GetRentalFunc          func(ctx context.Context, caller core.Caller, id uint64) (RentalView, error)
	ListRentalsFunc        func(ctx context.Context, caller core.Caller, opts ListRentalsOptions, limit, offset int) ([]RentalView, error)
	CreateCustomerFunc     func(ctx context.Context, caller core.Caller, req CreateCustomerRequest) (Customer, error)
	GetCustomerFunc        func(ctx context.Context, caller core.Caller, id uint64) (Customer, error)
	SearchCustomerFunc     func(ctx context.Context, caller core.Caller, name string) (Customer, error)
	ReconcileFunc          func(ctx context.Context, caller core.Caller, customerID uint64) (Customer, error)
	CreateItemFunc         func(ctx context.Context, caller core.Caller, item Item) (Item, error)
	UpsertItemFunc         func(ctx context.Context, item Item) error
	GetItemFunc            func(ctx context.Context, caller core.Caller, id uint64) (Item, error)
	SearchItemsFunc        func(ctx context.Context, caller core.Caller, search ItemSearch, limit, offset int) ([]Item, error)
	SubscribeRentalsFunc   func(ch chan<- Event) (id SubscriptionID)
	UnsubscribeRentalsFunc func(id SubscriptionID)
	*testutil.CallWatcher
}

func NewMockRentalService() *MockRentalService {
	return &MockRentalService{
		CheckoutFunc: func(ctx context.Context, caller core.Caller, req CheckoutRequest) (CheckoutResult, error) {
			return CheckoutResult{Kind: req.Kind}, nil
		},
		ReturnFunc: func(ctx context.Context, caller core.Caller, rentalID uint64) (Rental, error) {
			return Rental{ID: rentalID, Status: Returned}, nil
		},
		GetRentalFunc: func(ctx context.Context, caller core.Caller, id uint64) (RentalView, error) {
			return RentalView{Rental: Rental{ID: id}}, nil
		},
		ListRentalsFunc: func(ctx context.Context, caller core.Caller, opts ListRentalsOptions, limit, offset int) ([]RentalView, error) {
			return []RentalView{}, nil
		},
		CreateCustomerFunc: func(ctx context.Context, caller core.Caller, req CreateCustomerRequest) (Customer, error) {
			return Customer{FirstName: req.FirstName, LastName: req.LastName, DueDates: []DueDate{}}, nil
		},
		GetCustomerFunc: func(ctx context.Context, caller core.Caller, id uint64) (Customer, error) {
			return Customer{ID: id, DueDates: []DueDate{}}, nil
		},
		SearchCustomerFunc: func(ctx context.Context, caller core.Caller, name string) (Customer, error) {
			return Customer{DueDates: []DueDate{}}, nil
		},
		ReconcileFunc: func(ctx context.Context, caller core.Caller, customerID uint64) (Customer, error) {
			return Customer{ID: customerID, DueDates: []DueDate{}}, nil
		},
		CreateItemFunc: func(ctx context.Context, caller core.Caller, item Item) (Item, error) { return item, nil },
		UpsertItemFunc: func(ctx context.Context, item Item) error { return nil },
		GetItemFunc: func(ctx context.Context, caller core.Caller, id uint64) (Item, error) {
			return Item{ID: id}, nil
		},
		SearchItemsFunc: func(ctx context.Context, caller core.Caller, search ItemSearch, limit, offset int) ([]Item, error) {
			return []Item{}, nil
		},
		SubscribeRentalsFunc:   func(ch chan<- Event) (id SubscriptionID) { return "" },
		UnsubscribeRentalsFunc: func(id SubscriptionID) {},
		CallWatcher:            testutil.NewCallWatcher(),
	}
}

func (m *MockRentalService) Checkout(ctx context.Context, caller core.Caller, req CheckoutRequest) (CheckoutResult, error) {
	m.AddCall(ctx, caller, req)
	return m.CheckoutFunc(ctx, caller, req)
}

func (m *MockRentalService) Return(ctx context.Context, caller core.Caller, rentalID uint64) (Rental, error) {
	m.AddCall(ctx, caller, rentalID)
	return m.ReturnFunc(ctx, caller, rentalID)
}

func (m *MockRentalService) GetRental(ctx context.Context, caller core.Caller, id uint64) (RentalView, error) {
	m.AddCall(ctx, caller, id)
	return m.GetRentalFunc(ctx, caller, id)
}

func (m *MockRentalService) ListRentals(ctx context.Context, caller core.Caller, opts ListRentalsOptions, limit, offset int) ([]RentalView, error) {
	m.AddCall(ctx, caller, opts, limit, offset)
	return m.ListRentalsFunc(ctx, caller, opts, limit, offset)
}

func (m *MockRentalService) CreateCustomer(ctx context.Context, caller core.Caller, req CreateCustomerRequest) (Customer, error) {
	m.AddCall(ctx, caller, req)
	return m.CreateCustomerFunc(ctx, caller, req)
}

func (m *MockRentalService) GetCustomer(ctx context.Context, caller core.Caller, id uint64) (Customer, error) {
	m.AddCall(ctx, caller, id)
	return m.GetCustomerFunc(ctx, caller, id)
}

func (m *MockRentalService) SearchCustomer(ctx context.Context, caller core.Caller, name string) (Customer, error) {
	m.AddCall(ctx, caller, name)
	return m.SearchCustomerFunc(ctx, caller, name)
}

func (m *MockRentalService) Reconcile(ctx context.Context, caller core.Caller, customerID uint64) (Customer, error) {
	m.AddCall(ctx, caller, customerID)
	return m.ReconcileFunc(ctx, caller, customerID)
}

func (m *MockRentalService) CreateItem(ctx context.Context, caller core.Caller, item Item) (Item, error) {
	m.AddCall(ctx, caller, item)
	return m.CreateItemFunc(ctx, caller, item)
}

func (m *MockRentalService) UpsertItem(ctx context.Context, item Item) error {
	m.AddCall(ctx, item)
	return m.UpsertItemFunc(ctx, item)
}

func (m *MockRentalService) GetItem(ctx context.Context, caller core.Caller, id uint64) (Item, error) {
	m.AddCall(ctx, caller, id)
	return m.GetItemFunc(ctx, caller, id)
}

func (m *MockRentalService) SearchItems(ctx context.Context, caller core.Caller, search ItemSearch, limit, offset int) ([]Item, error) {
	m.AddCall(ctx, caller, search, limit, offset)
	return m.SearchItemsFunc(ctx, caller, search, limit, offset)
}

func (m *MockRentalService) SubscribeRentals(ch chan<- Event) (id SubscriptionID) {
	m.AddCall(ch)
	return m.SubscribeRentalsFunc(ch)
}

func (m *MockRentalService) UnsubscribeRentals(id SubscriptionID) {
	m.AddCall(id)
	m.UnsubscribeRentalsFunc(id)
}
