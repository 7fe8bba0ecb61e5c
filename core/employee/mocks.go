package employee

import (
	"context"

	"github.com/sksmith/video-shoppe/core"
)

type MockEmployeeService struct {
	CreateFunc      func(ctx context.Context, caller core.Caller, req CreateEmployeeRequest) (Employee, error)
	GetFunc         func(ctx context.Context, username string) (Employee, error)
	DeleteFunc      func(ctx context.Context, caller core.Caller, username string) error
	LoginFunc       func(ctx context.Context, username, password string) (Employee, error)
	EnsureAdminFunc func(ctx context.Context, username, password string) error
}

func NewMockEmployeeService() MockEmployeeService {
	return MockEmployeeService{
		CreateFunc: func(ctx context.Context, caller core.Caller, req CreateEmployeeRequest) (Employee, error) {
			return Employee{Username: req.Username, IsAdmin: req.IsAdmin}, nil
		},
		GetFunc:         func(ctx context.Context, username string) (Employee, error) { return Employee{}, nil },
		DeleteFunc:      func(ctx context.Context, caller core.Caller, username string) error { return nil },
		LoginFunc:       func(ctx context.Context, username, password string) (Employee, error) { return Employee{}, nil },
		EnsureAdminFunc: func(ctx context.Context, username, password string) error { return nil },
	}
}

func (m *MockEmployeeService) Create(ctx context.Context, caller core.Caller, req CreateEmployeeRequest) (Employee, error) {
	return m.CreateFunc(ctx, caller, req)
}

func (m *MockEmployeeService) Get(ctx context.Context, username string) (Employee, error) {
	return m.GetFunc(ctx, username)
}

func (m *MockEmployeeService) Delete(ctx context.Context, caller core.Caller, username string) error {
	return m.DeleteFunc(ctx, caller, username)
}

func (m *MockEmployeeService) Login(ctx context.Context, username, password string) (Employee, error) {
	return m.LoginFunc(ctx, username, password)
}

func (m *MockEmployeeService) EnsureAdmin(ctx context.Context, username, password string) error {
	return m.EnsureAdminFunc(ctx, username, password)
}
