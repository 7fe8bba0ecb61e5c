package memrepo

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sksmith/video-shoppe/core"
	"github.com/sksmith/video-shoppe/core/rental"
)

type rentalRepo struct {
	*Store
}

func NewRentalRepo(s *Store) rental.Repository {
	return &rentalRepo{Store: s}
}

func (r *rentalRepo) GetItem(_ context.Context, id uint64, options ...core.QueryOptions) (item rental.Item, err error) {
	err = r.read(options, func() error {
		var ok bool
		if item, ok = r.items[id]; !ok {
			return errors.WithStack(core.ErrNotFound)
		}
		return nil
	})
	return item, err
}

func (r *rentalRepo) SearchItems(_ context.Context, search rental.ItemSearch, limit, offset int, options ...core.QueryOptions) ([]rental.Item, error) {
	term := strings.ToLower(search.Search)
	items := make([]rental.Item, 0)
	err := r.read(options, func() error {
		for _, item := range r.items {
			if term == "" || strings.Contains(strings.ToLower(itemField(item, search.SearchBy)), term) {
				items = append(items, item)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Title != items[j].Title {
			return items[i].Title < items[j].Title
		}
		return items[i].ID < items[j].ID
	})
	return page(items, limit, offset), nil
}

func (r *rentalRepo) SaveItem(_ context.Context, item *rental.Item, options ...core.UpdateOptions) error {
	return r.write(options, func(record undoFunc) error {
		if item.ID == 0 {
			r.itemSeq++
			item.ID = r.itemSeq
		} else if item.ID > r.itemSeq {
			r.itemSeq = item.ID
		}
		r.putItem(*item, record)
		return nil
	})
}

func (r *rentalRepo) DecrementStock(_ context.Context, id uint64, options ...core.UpdateOptions) (item rental.Item, err error) {
	err = r.write(options, func(record undoFunc) error {
		var ok bool
		if item, ok = r.items[id]; !ok {
			return errors.WithStack(core.ErrNotFound)
		}
		if item.Quantity <= 0 {
			return errors.WithStack(rental.ErrNoStock)
		}
		item.Quantity--
		item.Available = item.Quantity > 0
		r.putItem(item, record)
		return nil
	})
	return item, err
}

func (r *rentalRepo) IncrementStock(_ context.Context, id uint64, options ...core.UpdateOptions) (item rental.Item, err error) {
	err = r.write(options, func(record undoFunc) error {
		var ok bool
		if item, ok = r.items[id]; !ok {
			return errors.WithStack(core.ErrNotFound)
		}
		item.Quantity++
		item.Available = true
		r.putItem(item, record)
		return nil
	})
	return item, err
}

func (r *rentalRepo) GetCustomer(_ context.Context, id uint64, options ...core.QueryOptions) (c rental.Customer, err error) {
	err = r.read(options, func() error {
		var ok bool
		if c, ok = r.customers[id]; !ok {
			return errors.WithStack(core.ErrNotFound)
		}
		c = copyCustomer(c)
		return nil
	})
	return c, err
}

func (r *rentalRepo) FindCustomerByName(_ context.Context, name string, options ...core.QueryOptions) (c rental.Customer, err error) {
	term := strings.ToLower(name)
	err = r.read(options, func() error {
		var found bool
		for _, cust := range r.customers {
			if !matchesName(cust, term) {
				continue
			}
			if !found || cust.ID < c.ID {
				c = cust
				found = true
			}
		}
		if !found {
			return errors.WithStack(core.ErrNotFound)
		}
		c = copyCustomer(c)
		return nil
	})
	return c, err
}

func (r *rentalRepo) SaveCustomer(_ context.Context, c *rental.Customer, options ...core.UpdateOptions) error {
	return r.write(options, func(record undoFunc) error {
		if c.ID == 0 {
			r.customerSeq++
			c.ID = r.customerSeq
			c.OutstandingRentals = 0
			c.DueDates = []rental.DueDate{}
			r.putCustomer(*c, record)
			return nil
		}

		existing, ok := r.customers[c.ID]
		if !ok {
			return errors.WithStack(core.ErrNotFound)
		}
		updated := *c
		updated.OutstandingRentals = existing.OutstandingRentals
		updated.DueDates = existing.DueDates
		updated.Created = existing.Created
		r.putCustomer(updated, record)
		return nil
	})
}

func (r *rentalRepo) AddDueDate(_ context.Context, customerID uint64, due rental.DueDate, options ...core.UpdateOptions) error {
	return r.write(options, func(record undoFunc) error {
		c, ok := r.customers[customerID]
		if !ok {
			return errors.WithStack(core.ErrNotFound)
		}
		c = copyCustomer(c)
		c.OutstandingRentals++
		c.DueDates = append(c.DueDates, due)
		r.putCustomer(c, record)
		return nil
	})
}

func (r *rentalRepo) RemoveDueDate(_ context.Context, customerID, rentalID uint64, options ...core.UpdateOptions) error {
	return r.write(options, func(record undoFunc) error {
		c, ok := r.customers[customerID]
		if !ok {
			return errors.WithStack(core.ErrNotFound)
		}
		c = copyCustomer(c)
		if c.OutstandingRentals > 0 {
			c.OutstandingRentals--
		}
		dues := c.DueDates[:0]
		for _, d := range c.DueDates {
			if d.RentalID != rentalID {
				dues = append(dues, d)
			}
		}
		c.DueDates = dues
		r.putCustomer(c, record)
		return nil
	})
}

func (r *rentalRepo) ReplaceDueDates(_ context.Context, customerID uint64, dues []rental.DueDate, options ...core.UpdateOptions) error {
	return r.write(options, func(record undoFunc) error {
		c, ok := r.customers[customerID]
		if !ok {
			return errors.WithStack(core.ErrNotFound)
		}
		c = copyCustomer(c)
		c.DueDates = append([]rental.DueDate{}, dues...)
		c.OutstandingRentals = int64(len(dues))
		r.putCustomer(c, record)
		return nil
	})
}

// NextRentalID hands out ids that are never reused, even when the transaction that took one rolls back.
func (r *rentalRepo) NextRentalID(_ context.Context, options ...core.UpdateOptions) (id uint64, err error) {
	err = r.write(options, func(undoFunc) error {
		r.rentalSeq++
		id = r.rentalSeq
		return nil
	})
	return id, err
}

func (r *rentalRepo) GetRental(_ context.Context, id uint64, options ...core.QueryOptions) (rl rental.Rental, err error) {
	err = r.read(options, func() error {
		var ok bool
		if rl, ok = r.rentals[id]; !ok {
			return errors.WithStack(core.ErrNotFound)
		}
		return nil
	})
	return rl, err
}

func (r *rentalRepo) ListRentals(_ context.Context, opts rental.ListRentalsOptions, today time.Time, limit, offset int, options ...core.QueryOptions) ([]rental.Rental, error) {
	all := make([]rental.Rental, 0)
	err := r.read(options, func() error {
		for _, rl := range r.rentals {
			all = append(all, rl)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	views := rental.FilterRentals(all, opts, today)
	rentals := make([]rental.Rental, 0, len(views))
	for _, v := range views {
		rentals = append(rentals, v.Rental)
	}
	return page(rentals, limit, offset), nil
}

func (r *rentalRepo) GetOpenRentals(_ context.Context, customerID uint64, options ...core.QueryOptions) ([]rental.Rental, error) {
	open := make([]rental.Rental, 0)
	err := r.read(options, func() error {
		for _, rl := range r.rentals {
			if rl.CustomerID == customerID && rl.Status == rental.Out {
				open = append(open, rl)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(open, func(i, j int) bool { return open[i].ID < open[j].ID })
	return open, nil
}

func (r *rentalRepo) SaveRental(_ context.Context, rl *rental.Rental, options ...core.UpdateOptions) error {
	return r.write(options, func(record undoFunc) error {
		if rl.ID == 0 {
			r.rentalSeq++
			rl.ID = r.rentalSeq
		}
		if _, ok := r.rentals[rl.ID]; ok {
			return errors.Errorf("memrepo: rental %d already exists", rl.ID)
		}
		r.putRental(*rl, record)
		return nil
	})
}

func (r *rentalRepo) CloseRental(_ context.Context, id uint64, returned time.Time, by string, options ...core.UpdateOptions) (rl rental.Rental, err error) {
	err = r.write(options, func(record undoFunc) error {
		var ok bool
		if rl, ok = r.rentals[id]; !ok {
			return errors.WithStack(core.ErrNotFound)
		}
		if rl.Status != rental.Out {
			return errors.WithStack(rental.ErrNotOut)
		}
		d := returned
		rl.Status = rental.Returned
		rl.ReturnDate = &d
		rl.ReturnedBy = by
		r.putRental(rl, record)
		return nil
	})
	return rl, err
}

func (r *rentalRepo) putItem(item rental.Item, record undoFunc) {
	prev, existed := r.items[item.ID]
	r.items[item.ID] = item
	record(func() {
		if existed {
			r.items[item.ID] = prev
		} else {
			delete(r.items, item.ID)
		}
	})
}

func (r *rentalRepo) putCustomer(c rental.Customer, record undoFunc) {
	prev, existed := r.customers[c.ID]
	r.customers[c.ID] = c
	record(func() {
		if existed {
			r.customers[c.ID] = prev
		} else {
			delete(r.customers, c.ID)
		}
	})
}

func (r *rentalRepo) putRental(rl rental.Rental, record undoFunc) {
	prev, existed := r.rentals[rl.ID]
	r.rentals[rl.ID] = rl
	record(func() {
		if existed {
			r.rentals[rl.ID] = prev
		} else {
			delete(r.rentals, rl.ID)
		}
	})
}

func copyCustomer(c rental.Customer) rental.Customer {
	c.DueDates = append(make([]rental.DueDate, 0, len(c.DueDates)), c.DueDates...)
	return c
}

func matchesName(c rental.Customer, term string) bool {
	return strings.Contains(strings.ToLower(c.FirstName), term) ||
		strings.Contains(strings.ToLower(c.LastName), term) ||
		strings.Contains(strings.ToLower(c.FullName()), term)
}

func itemField(item rental.Item, f rental.ItemField) string {
	switch f {
	case rental.ItemGenre:
		return item.Genre
	case rental.ItemDirector:
		return item.Director
	case rental.ItemActors:
		return item.Actors
	}
	return item.Title
}

func page[T any](all []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(all) {
			return all[:0]
		}
		all = all[offset:]
	}
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}
