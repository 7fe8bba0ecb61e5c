package rentalrepo

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sksmith/video-shoppe/core"
	"github.com/sksmith/video-shoppe/core/rental"
	"github.com/sksmith/video-shoppe/db"
)

const dialectPostgres = "postgres"

const (
	itemColumns     = `id, title, genre, director, actors, release_year, quantity, available, price_cents, requested_count`
	customerColumns = `id, first_name, last_name, birthdate, home_address, phone_number, credit_card_number,
	                   credit_card_expiry, credit_card_cvc, outstanding_rentals, created_at`
	rentalColumns = `id, customer_id, item_id, rental_date, due_date, return_date, status, title, customer_name,
	                 checked_out_by, returned_by`
)

var (
	itemCols = []interface{}{"id", "title", "genre", "director", "actors", "release_year", "quantity", "available",
		"price_cents", "requested_count"}
	rentalCols = []interface{}{"id", "customer_id", "item_id", "rental_date", "due_date", "return_date", "status",
		"title", "customer_name", "checked_out_by", "returned_by"}
)

type dbRepo struct {
	conn core.Conn
}

func NewPostgresRepo(conn core.Conn) rental.Repository {
	return &dbRepo{
		conn: conn,
	}
}

func (d *dbRepo) BeginTransaction(ctx context.Context) (core.Transaction, error) {
	return db.BeginTransaction(ctx, d.conn)
}

func (d *dbRepo) GetItem(ctx context.Context, id uint64, options ...core.QueryOptions) (rental.Item, error) {
	m := db.StartMetric("GetItem")
	tx, forUpdate := db.GetQueryOptions(d.conn, options...)

	item, err := scanItem(tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1 `+forUpdate, id))
	if err != nil {
		m.Complete(err)
		if err == pgx.ErrNoRows {
			return item, errors.WithStack(core.ErrNotFound)
		}
		return item, errors.WithStack(err)
	}

	m.Complete(nil)
	return item, nil
}

func (d *dbRepo) SearchItems(ctx context.Context, search rental.ItemSearch, limit, offset int, options ...core.QueryOptions) ([]rental.Item, error) {
	m := db.StartMetric("SearchItems")
	tx, forUpdate := db.GetQueryOptions(d.conn, options...)

	ds := goqu.Dialect(dialectPostgres).
		From("items").
		Select(itemCols...).
		Order(goqu.I("title").Asc(), goqu.I("id").Asc())

	if search.Search != "" {
		field := search.SearchBy
		if field == "" {
			field = rental.ItemTitle
		}
		ds = ds.Where(goqu.C(string(field)).ILike(db.ContainsPattern(search.Search)))
	}
	ds = page(ds, limit, offset)
	if forUpdate != "" {
		ds = ds.ForUpdate(exp.Wait)
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		m.Complete(err)
		return nil, errors.WithStack(err)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		m.Complete(err)
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	items := make([]rental.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			m.Complete(err)
			return nil, errors.WithStack(err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		m.Complete(err)
		return nil, errors.WithStack(err)
	}

	m.Complete(nil)
	return items, nil
}

func (d *dbRepo) SaveItem(ctx context.Context, item *rental.Item, options ...core.UpdateOptions) error {
	m := db.StartMetric("SaveItem")
	tx := db.GetUpdateOptions(d.conn, options...)

	if item.ID != 0 {
		ct, err := tx.Exec(ctx, `
			UPDATE items
			   SET title = $2, genre = $3, director = $4, actors = $5, release_year = $6,
			       quantity = $7, available = $8, price_cents = $9, requested_count = $10
			 WHERE id = $1;`,
			item.ID, item.Title, item.Genre, item.Director, item.Actors, item.ReleaseYear,
			item.Quantity, item.Available, item.PriceCents, item.RequestedCount)
		if err != nil {
			m.Complete(err)
			return errors.WithStack(err)
		}
		if ct.RowsAffected() > 0 {
			m.Complete(nil)
			return nil
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO items (id, title, genre, director, actors, release_year, quantity, available, price_cents, requested_count)
			            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`,
			item.ID, item.Title, item.Genre, item.Director, item.Actors, item.ReleaseYear,
			item.Quantity, item.Available, item.PriceCents, item.RequestedCount)
		if err != nil {
			m.Complete(err)
			return errors.WithStack(err)
		}
		_, err = tx.Exec(ctx, `SELECT setval('items_id_seq', GREATEST((SELECT MAX(id) FROM items), 1));`)
		m.Complete(err)
		return errors.WithStack(err)
	}

	err := tx.QueryRow(ctx, `
		INSERT INTO items (title, genre, director, actors, release_year, quantity, available, price_cents, requested_count)
		            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id;`,
		item.Title, item.Genre, item.Director, item.Actors, item.ReleaseYear,
		item.Quantity, item.Available, item.PriceCents, item.RequestedCount).Scan(&item.ID)
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}

	m.Complete(nil)
	return nil
}

func (d *dbRepo) DecrementStock(ctx context.Context, id uint64, options ...core.UpdateOptions) (rental.Item, error) {
	m := db.StartMetric("DecrementStock")
	tx := db.GetUpdateOptions(d.conn, options...)

	item, err := scanItem(tx.QueryRow(ctx, `
		UPDATE items
		   SET quantity = quantity - 1, available = quantity - 1 > 0
		 WHERE id = $1 AND quantity > 0
		RETURNING `+itemColumns+`;`, id))
	if err != nil {
		m.Complete(err)
		if err == pgx.ErrNoRows {
			return item, errors.WithStack(rental.ErrNoStock)
		}
		return item, errors.WithStack(err)
	}

	m.Complete(nil)
	return item, nil
}

func (d *dbRepo) IncrementStock(ctx context.Context, id uint64, options ...core.UpdateOptions) (rental.Item, error) {
	m := db.StartMetric("IncrementStock")
	tx := db.GetUpdateOptions(d.conn, options...)

	item, err := scanItem(tx.QueryRow(ctx, `
		UPDATE items
		   SET quantity = quantity + 1, available = TRUE
		 WHERE id = $1
		RETURNING `+itemColumns+`;`, id))
	if err != nil {
		m.Complete(err)
		if err == pgx.ErrNoRows {
			return item, errors.WithStack(core.ErrNotFound)
		}
		return item, errors.WithStack(err)
	}

	m.Complete(nil)
	return item, nil
}

func (d *dbRepo) GetCustomer(ctx context.Context, id uint64, options ...core.QueryOptions) (rental.Customer, error) {
	m := db.StartMetric("GetCustomer")
	tx, forUpdate := db.GetQueryOptions(d.conn, options...)

	c, err := scanCustomer(tx.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1 `+forUpdate, id))
	if err != nil {
		m.Complete(err)
		if err == pgx.ErrNoRows {
			return c, errors.WithStack(core.ErrNotFound)
		}
		return c, errors.WithStack(err)
	}

	if c.DueDates, err = d.getDueDates(ctx, tx, c.ID); err != nil {
		m.Complete(err)
		return rental.Customer{}, err
	}

	m.Complete(nil)
	return c, nil
}

func (d *dbRepo) FindCustomerByName(ctx context.Context, name string, options ...core.QueryOptions) (rental.Customer, error) {
	m := db.StartMetric("FindCustomerByName")
	tx, forUpdate := db.GetQueryOptions(d.conn, options...)

	query := `SELECT ` + customerColumns + ` FROM customers
	           WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR (first_name || ' ' || last_name) ILIKE $1
	           ORDER BY id LIMIT 1 ` + forUpdate

	log.Debug().Str("query", query).Str("name", name).Msg("searching customer")

	c, err := scanCustomer(tx.QueryRow(ctx, query, db.ContainsPattern(name)))
	if err != nil {
		m.Complete(err)
		if err == pgx.ErrNoRows {
			return c, errors.WithStack(core.ErrNotFound)
		}
		return c, errors.WithStack(err)
	}

	if c.DueDates, err = d.getDueDates(ctx, tx, c.ID); err != nil {
		m.Complete(err)
		return rental.Customer{}, err
	}

	m.Complete(nil)
	return c, nil
}

func (d *dbRepo) SaveCustomer(ctx context.Context, c *rental.Customer, options ...core.UpdateOptions) error {
	m := db.StartMetric("SaveCustomer")
	tx := db.GetUpdateOptions(d.conn, options...)

	if c.ID != 0 {
		ct, err := tx.Exec(ctx, `
			UPDATE customers
			   SET first_name = $2, last_name = $3, birthdate = $4, home_address = $5, phone_number = $6,
			       credit_card_number = $7, credit_card_expiry = $8, credit_card_cvc = $9
			 WHERE id = $1;`,
			c.ID, c.FirstName, c.LastName, c.Birthdate, c.HomeAddress, c.PhoneNumber,
			c.CreditCardNumber, c.CreditCardExpiry, c.CreditCardCVC)
		if err != nil {
			m.Complete(err)
			return errors.WithStack(err)
		}
		if ct.RowsAffected() == 0 {
			m.Complete(nil)
			return errors.WithStack(core.ErrNotFound)
		}
		m.Complete(nil)
		return nil
	}

	err := tx.QueryRow(ctx, `
		INSERT INTO customers (first_name, last_name, birthdate, home_address, phone_number,
		                       credit_card_number, credit_card_expiry, credit_card_cvc, outstanding_rentals, created_at)
		                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9) RETURNING id;`,
		c.FirstName, c.LastName, c.Birthdate, c.HomeAddress, c.PhoneNumber,
		c.CreditCardNumber, c.CreditCardExpiry, c.CreditCardCVC, c.Created).Scan(&c.ID)
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}
	c.OutstandingRentals = 0

	m.Complete(nil)
	return nil
}

func (d *dbRepo) AddDueDate(ctx context.Context, customerID uint64, due rental.DueDate, options ...core.UpdateOptions) error {
	m := db.StartMetric("AddDueDate")
	tx := db.GetUpdateOptions(d.conn, options...)

	ct, err := tx.Exec(ctx, `
		WITH owner AS (
			UPDATE customers SET outstanding_rentals = outstanding_rentals + 1 WHERE id = $1 RETURNING id
		)
		INSERT INTO customer_due_dates (rental_id, customer_id, due_date)
		SELECT $2, owner.id, $3 FROM owner;`,
		customerID, due.RentalID, due.Date)
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}
	if ct.RowsAffected() == 0 {
		m.Complete(nil)
		return errors.WithStack(core.ErrNotFound)
	}

	m.Complete(nil)
	return nil
}

func (d *dbRepo) RemoveDueDate(ctx context.Context, customerID, rentalID uint64, options ...core.UpdateOptions) error {
	m := db.StartMetric("RemoveDueDate")
	tx := db.GetUpdateOptions(d.conn, options...)

	ct, err := tx.Exec(ctx, `
		WITH removed AS (
			DELETE FROM customer_due_dates WHERE customer_id = $1 AND rental_id = $2
		)
		UPDATE customers SET outstanding_rentals = GREATEST(outstanding_rentals - 1, 0) WHERE id = $1;`,
		customerID, rentalID)
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}
	if ct.RowsAffected() == 0 {
		m.Complete(nil)
		return errors.WithStack(core.ErrNotFound)
	}

	m.Complete(nil)
	return nil
}

func (d *dbRepo) ReplaceDueDates(ctx context.Context, customerID uint64, dues []rental.DueDate, options ...core.UpdateOptions) error {
	m := db.StartMetric("ReplaceDueDates")
	tx := db.GetUpdateOptions(d.conn, options...)

	if _, err := tx.Exec(ctx, `DELETE FROM customer_due_dates WHERE customer_id = $1;`, customerID); err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}

	for _, due := range dues {
		_, err := tx.Exec(ctx, `INSERT INTO customer_due_dates (rental_id, customer_id, due_date) VALUES ($1, $2, $3);`,
			due.RentalID, customerID, due.Date)
		if err != nil {
			m.Complete(err)
			return errors.WithStack(err)
		}
	}

	ct, err := tx.Exec(ctx, `UPDATE customers SET outstanding_rentals = $2 WHERE id = $1;`, customerID, len(dues))
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}
	if ct.RowsAffected() == 0 {
		m.Complete(nil)
		return errors.WithStack(core.ErrNotFound)
	}

	m.Complete(nil)
	return nil
}

func (d *dbRepo) NextRentalID(ctx context.Context, options ...core.UpdateOptions) (uint64, error) {
	m := db.StartMetric("NextRentalID")
	tx := db.GetUpdateOptions(d.conn, options...)

	var id int64
	if err := tx.QueryRow(ctx, `SELECT nextval('rentals_id_seq');`).Scan(&id); err != nil {
		m.Complete(err)
		return 0, errors.WithStack(err)
	}

	m.Complete(nil)
	return uint64(id), nil
}

func (d *dbRepo) GetRental(ctx context.Context, id uint64, options ...core.QueryOptions) (rental.Rental, error) {
	m := db.StartMetric("GetRental")
	tx, forUpdate := db.GetQueryOptions(d.conn, options...)

	r, err := scanRental(tx.QueryRow(ctx, `SELECT `+rentalColumns+` FROM rentals WHERE id = $1 `+forUpdate, id))
	if err != nil {
		m.Complete(err)
		if err == pgx.ErrNoRows {
			return r, errors.WithStack(core.ErrNotFound)
		}
		return r, errors.WithStack(err)
	}

	m.Complete(nil)
	return r, nil
}

func (d *dbRepo) ListRentals(ctx context.Context, opts rental.ListRentalsOptions, today time.Time, limit, offset int, options ...core.QueryOptions) ([]rental.Rental, error) {
	m := db.StartMetric("ListRentals")
	tx, _ := db.GetQueryOptions(d.conn, options...)

	ds := goqu.Dialect(dialectPostgres).
		From("rentals").
		Select(rentalCols...).
		Order(goqu.I("rental_date").Desc(), goqu.I("id").Desc())

	ds = ds.Where(statusPredicate(opts.Status, today)...)
	if opts.Search != "" {
		ds = ds.Where(searchPredicate(opts.SearchBy, db.ContainsPattern(opts.Search)))
	}
	ds = page(ds, limit, offset)

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		m.Complete(err)
		return nil, errors.WithStack(err)
	}

	rentals, err := d.queryRentals(ctx, tx, query, args...)
	m.Complete(err)
	return rentals, err
}

func (d *dbRepo) GetOpenRentals(ctx context.Context, customerID uint64, options ...core.QueryOptions) ([]rental.Rental, error) {
	m := db.StartMetric("GetOpenRentals")
	tx, forUpdate := db.GetQueryOptions(d.conn, options...)

	rentals, err := d.queryRentals(ctx, tx,
		`SELECT `+rentalColumns+` FROM rentals WHERE customer_id = $1 AND status = $2 ORDER BY id `+forUpdate,
		customerID, string(rental.Out))
	m.Complete(err)
	return rentals, err
}

func (d *dbRepo) SaveRental(ctx context.Context, r *rental.Rental, options ...core.UpdateOptions) error {
	m := db.StartMetric("SaveRental")
	tx := db.GetUpdateOptions(d.conn, options...)

	insert := `INSERT INTO rentals (id, customer_id, item_id, rental_date, due_date, return_date, status, title,
	                                customer_name, checked_out_by, returned_by)
	                        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`
	_, err := tx.Exec(ctx, insert, r.ID, r.CustomerID, r.ItemID, r.RentalDate, r.DueDate, r.ReturnDate,
		string(r.Status), r.Title, r.CustomerName, r.CheckedOutBy, r.ReturnedBy)
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}

	m.Complete(nil)
	return nil
}

func (d *dbRepo) CloseRental(ctx context.Context, id uint64, returned time.Time, by string, options ...core.UpdateOptions) (rental.Rental, error) {
	m := db.StartMetric("CloseRental")
	tx := db.GetUpdateOptions(d.conn, options...)

	r, err := scanRental(tx.QueryRow(ctx, `
		UPDATE rentals
		   SET status = $2, return_date = $3, returned_by = $4
		 WHERE id = $1 AND status = $5
		RETURNING `+rentalColumns+`;`,
		id, string(rental.Returned), returned, by, string(rental.Out)))
	if err != nil {
		m.Complete(err)
		if err == pgx.ErrNoRows {
			return r, errors.WithStack(rental.ErrNotOut)
		}
		return r, errors.WithStack(err)
	}

	m.Complete(nil)
	return r, nil
}

func (d *dbRepo) getDueDates(ctx context.Context, tx core.Conn, customerID uint64) ([]rental.DueDate, error) {
	rows, err := tx.Query(ctx, `SELECT rental_id, due_date FROM customer_due_dates WHERE customer_id = $1 ORDER BY seq`, customerID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	dues := make([]rental.DueDate, 0)
	for rows.Next() {
		due := rental.DueDate{}
		if err = rows.Scan(&due.RentalID, &due.Date); err != nil {
			return nil, errors.WithStack(err)
		}
		dues = append(dues, due)
	}
	return dues, errors.WithStack(rows.Err())
}

func (d *dbRepo) queryRentals(ctx context.Context, tx core.Conn, query string, args ...interface{}) ([]rental.Rental, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	rentals := make([]rental.Rental, 0)
	for rows.Next() {
		r, err := scanRental(rows)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		rentals = append(rentals, r)
	}
	return rentals, errors.WithStack(rows.Err())
}

func statusPredicate(f rental.StatusFilter, today time.Time) []exp.Expression {
	switch f {
	case rental.FilterOut:
		return []exp.Expression{goqu.C("status").Eq(string(rental.Out)), goqu.C("due_date").Gte(today)}
	case rental.FilterOverdue:
		return []exp.Expression{goqu.C("status").Eq(string(rental.Out)), goqu.C("due_date").Lt(today)}
	case rental.FilterReturned:
		return []exp.Expression{goqu.C("status").Eq(string(rental.Returned))}
	}
	return nil
}

func searchPredicate(f rental.SearchField, pattern string) exp.Expression {
	switch f {
	case rental.SearchCustomerName:
		return goqu.C("customer_name").ILike(pattern)
	case rental.SearchTitle:
		return goqu.C("title").ILike(pattern)
	}
	return goqu.Or(goqu.C("customer_name").ILike(pattern), goqu.C("title").ILike(pattern))
}

func page(ds *goqu.SelectDataset, limit, offset int) *goqu.SelectDataset {
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	if offset > 0 {
		ds = ds.Offset(uint(offset))
	}
	return ds
}

func scanItem(row pgx.Row) (rental.Item, error) {
	item := rental.Item{}
	err := row.Scan(&item.ID, &item.Title, &item.Genre, &item.Director, &item.Actors, &item.ReleaseYear,
		&item.Quantity, &item.Available, &item.PriceCents, &item.RequestedCount)
	return item, err
}

func scanCustomer(row pgx.Row) (rental.Customer, error) {
	c := rental.Customer{}
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Birthdate, &c.HomeAddress, &c.PhoneNumber,
		&c.CreditCardNumber, &c.CreditCardExpiry, &c.CreditCardCVC, &c.OutstandingRentals, &c.Created)
	return c, err
}

func scanRental(row pgx.Row) (rental.Rental, error) {
	r := rental.Rental{}
	var status string
	err := row.Scan(&r.ID, &r.CustomerID, &r.ItemID, &r.RentalDate, &r.DueDate, &r.ReturnDate, &status,
		&r.Title, &r.CustomerName, &r.CheckedOutBy, &r.ReturnedBy)
	r.Status = rental.Status(status)
	return r, err
}
