package employeerepo

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sksmith/video-shoppe/core"
	"github.com/sksmith/video-shoppe/core/employee"
	"github.com/sksmith/video-shoppe/db"

	lru "github.com/hashicorp/golang-lru"
)

const cacheSize = 256

type dbRepo struct {
	conn core.Conn
	c    *lru.Cache
}

func NewPostgresRepo(conn core.Conn) employee.Repository {
	l, err := lru.New(cacheSize)
	if err != nil {
		log.Warn().Err(err).Msg("unable to configure cache")
	}
	return &dbRepo{
		conn: conn,
		c:    l,
	}
}

func (r *dbRepo) Create(ctx context.Context, e *employee.Employee, txs ...core.UpdateOptions) error {
	m := db.StartMetric("CreateEmployee")
	tx := db.GetUpdateOptions(r.conn, txs...)

	_, err := tx.Exec(ctx, `
		INSERT INTO employees (username, password, is_admin, created_at)
		               VALUES ($1, $2, $3, $4);`,
		e.Username, e.HashedPassword, e.IsAdmin, e.Created)
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}
	r.cache(*e)
	m.Complete(nil)
	return nil
}

func (r *dbRepo) Get(ctx context.Context, username string, txs ...core.QueryOptions) (employee.Employee, error) {
	m := db.StartMetric("GetEmployee")
	tx, forUpdate := db.GetQueryOptions(r.conn, txs...)

	e, ok := r.getcache(username)
	if ok {
		m.Complete(nil)
		return e, nil
	}

	query := `SELECT username, password, is_admin, created_at FROM employees WHERE username = $1 ` + forUpdate

	log.Debug().Str("query", query).Str("username", username).Msg("getting employee")

	err := tx.QueryRow(ctx, query, username).
		Scan(&e.Username, &e.HashedPassword, &e.IsAdmin, &e.Created)
	if err != nil {
		m.Complete(err)
		if err == pgx.ErrNoRows {
			return employee.Employee{}, errors.WithStack(core.ErrNotFound)
		}
		return employee.Employee{}, errors.WithStack(err)
	}

	r.cache(e)
	m.Complete(nil)
	return e, nil
}

func (r *dbRepo) Delete(ctx context.Context, username string, txs ...core.UpdateOptions) error {
	m := db.StartMetric("DeleteEmployee")
	tx := db.GetUpdateOptions(r.conn, txs...)

	ct, err := tx.Exec(ctx, `DELETE FROM employees WHERE username = $1`, username)
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}

	r.uncache(username)
	m.Complete(nil)
	if ct.RowsAffected() == 0 {
		return errors.WithStack(core.ErrNotFound)
	}
	return nil
}

func (r *dbRepo) cache(e employee.Employee) {
	if r.c == nil {
		return
	}
	r.c.Add(e.Username, e)
}

func (r *dbRepo) uncache(username string) {
	if r.c == nil {
		return
	}
	r.c.Remove(username)
}

func (r *dbRepo) getcache(username string) (employee.Employee, bool) {
	if r.c == nil {
		return employee.Employee{}, false
	}

	v, ok := r.c.Get(username)
	if !ok {
		return employee.Employee{}, false
	}
	e, ok := v.(employee.Employee)
	return e, ok
}
