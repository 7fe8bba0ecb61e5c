package memrepo

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sksmith/video-shoppe/core"
	"github.com/sksmith/video-shoppe/core/employee"
)

type employeeRepo struct {
	*Store
}

func NewEmployeeRepo(s *Store) employee.Repository {
	return &employeeRepo{Store: s}
}

func (r *employeeRepo) Create(_ context.Context, e *employee.Employee, options ...core.UpdateOptions) error {
	return r.write(options, func(record undoFunc) error {
		username := e.Username
		if _, ok := r.employees[username]; ok {
			return errors.Errorf("memrepo: employee %s already exists", username)
		}
		r.employees[username] = *e
		record(func() { delete(r.employees, username) })
		return nil
	})
}

func (r *employeeRepo) Get(_ context.Context, username string, options ...core.QueryOptions) (e employee.Employee, err error) {
	err = r.read(options, func() error {
		var ok bool
		if e, ok = r.employees[username]; !ok {
			return errors.WithStack(core.ErrNotFound)
		}
		return nil
	})
	return e, err
}

func (r *employeeRepo) Delete(_ context.Context, username string, options ...core.UpdateOptions) error {
	return r.write(options, func(record undoFunc) error {
		prev, ok := r.employees[username]
		if !ok {
			return errors.WithStack(core.ErrNotFound)
		}
		delete(r.employees, username)
		record(func() { r.employees[username] = prev })
		return nil
	})
}
