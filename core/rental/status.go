package rental

import (
	"sort"
	"strings"
	"time"
)

// EffectiveStatus classifies a rental against today. Both dates are compared at day granularity, so a rental due
// today is still out.
func EffectiveStatus(status Status, due, today time.Time) Status {
	if status == Returned {
		return Returned
	}
	if DayOf(due).Before(DayOf(today)) {
		return Overdue
	}
	return Out
}

func View(r Rental, today time.Time) RentalView {
	return RentalView{Rental: r, EffectiveStatus: EffectiveStatus(r.Status, r.DueDate, today)}
}

// FilterRentals keeps the rentals matching the status filter and the case insensitive search, newest first.
func FilterRentals(rentals []Rental, opts ListRentalsOptions, today time.Time) []RentalView {
	search := strings.ToLower(strings.TrimSpace(opts.Search))

	views := make([]RentalView, 0, len(rentals))
	for _, r := range rentals {
		v := View(r, today)
		if !matchesStatus(v.EffectiveStatus, opts.Status) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(searchValue(r, opts.SearchBy)), search) {
			continue
		}
		views = append(views, v)
	}

	sort.SliceStable(views, func(i, j int) bool {
		if !views[i].RentalDate.Equal(views[j].RentalDate) {
			return views[i].RentalDate.After(views[j].RentalDate)
		}
		return views[i].ID > views[j].ID
	})
	return views
}

func matchesStatus(s Status, f StatusFilter) bool {
	switch f {
	case "", All:
		return true
	case FilterOut:
		return s == Out
	case FilterOverdue:
		return s == Overdue
	case FilterReturned:
		return s == Returned
	}
	return false
}

func searchValue(r Rental, f SearchField) string {
	switch f {
	case SearchCustomerName:
		return r.CustomerName
	case SearchTitle:
		return r.Title
	}
	return r.CustomerName + " " + r.Title
}
