package employeerepo

import (
	"context"

	"github.com/sksmith/video-shoppe/core"
	"github.com/sksmith/video-shoppe/core/employee"
	"github.com/sksmith/video-shoppe/testutil"
)

type MockRepo struct {
	CreateFunc func(ctx context.Context, e *employee.Employee, tx ...core.UpdateOptions) error
	GetFunc    func(ctx context.Context, username string, tx ...core.QueryOptions) (employee.Employee, error)
	DeleteFunc func(ctx context.Context, username string, tx ...core.UpdateOptions) error
	*testutil.CallWatcher
}

func NewMockRepo() MockRepo {
	return MockRepo{
		CreateFunc: func(ctx context.Context, e *employee.Employee, tx ...core.UpdateOptions) error { return nil },
		GetFunc: func(ctx context.Context, username string, tx ...core.QueryOptions) (employee.Employee, error) {
			return employee.Employee{}, core.ErrNotFound
		},
		DeleteFunc:  func(ctx context.Context, username string, tx ...core.UpdateOptions) error { return nil },
		CallWatcher: testutil.NewCallWatcher(),
	}
}

func (r MockRepo) Create(ctx context.Context, e *employee.Employee, tx ...core.UpdateOptions) error {
	r.AddCall(ctx, e, tx)
	return r.CreateFunc(ctx, e, tx...)
}

func (r MockRepo) Get(ctx context.Context, username string, tx ...core.QueryOptions) (employee.Employee, error) {
	r.AddCall(ctx, username, tx)
	return r.GetFunc(ctx, username, tx...)
}

func (r MockRepo) Delete(ctx context.Context, username string, tx ...core.UpdateOptions) error {
	r.AddCall(ctx, username, tx)
	return r.DeleteFunc(ctx, username, tx...)
}
