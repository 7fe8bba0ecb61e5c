package rental_test

import (
	"testing"
	"time"

	"github.com/sksmith/video-shoppe/core/rental"
	"github.com/stretchr/testify/assert"
)

func TestEffectiveStatus(t *testing.T) {
	tests := []struct {
		name   string
		status rental.Status
		due    time.Time
		today  time.Time
		want   rental.Status
	}{
		{name: "returned stays returned", status: rental.Returned, due: day(2024, 1, 1), today: day(2024, 3, 10), want: rental.Returned},
		{name: "due yesterday", status: rental.Out, due: day(2024, 3, 9), today: day(2024, 3, 10), want: rental.Overdue},
		{name: "due today", status: rental.Out, due: day(2024, 3, 10), today: day(2024, 3, 10), want: rental.Out},
		{name: "due tomorrow", status: rental.Out, due: day(2024, 3, 11), today: day(2024, 3, 10), want: rental.Out},
		{
			name:   "time of day is ignored",
			status: rental.Out,
			due:    time.Date(2024, 3, 10, 0, 0, 1, 0, time.UTC),
			today:  time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC),
			want:   rental.Out,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, rental.EffectiveStatus(test.status, test.due, test.today))
		})
	}
}

func TestFilterRentals(t *testing.T) {
	rentals := []rental.Rental{
		{ID: 1, RentalDate: day(2024, 3, 1), DueDate: day(2024, 3, 5), Status: rental.Out, Title: "Heat", CustomerName: "Dana Scully"},
		{ID: 2, RentalDate: day(2024, 3, 2), DueDate: day(2024, 3, 20), Status: rental.Out, Title: "Alien", CustomerName: "Fox Mulder"},
		{ID: 3, RentalDate: day(2024, 3, 2), DueDate: day(2024, 3, 4), Status: rental.Returned, Title: "Heathers", CustomerName: "Walter Skinner"},
	}

	tests := []struct {
		name    string
		opts    rental.ListRentalsOptions
		wantIDs []uint64
	}{
		{name: "all newest first", opts: rental.ListRentalsOptions{Status: rental.All}, wantIDs: []uint64{3, 2, 1}},
		{name: "empty filter is all", opts: rental.ListRentalsOptions{}, wantIDs: []uint64{3, 2, 1}},
		{name: "out excludes overdue", opts: rental.ListRentalsOptions{Status: rental.FilterOut}, wantIDs: []uint64{2}},
		{name: "overdue", opts: rental.ListRentalsOptions{Status: rental.FilterOverdue}, wantIDs: []uint64{1}},
		{name: "returned", opts: rental.ListRentalsOptions{Status: rental.FilterReturned}, wantIDs: []uint64{3}},
		{name: "title search", opts: rental.ListRentalsOptions{SearchBy: rental.SearchTitle, Search: "HEAT"}, wantIDs: []uint64{3, 1}},
		{name: "customer search", opts: rental.ListRentalsOptions{SearchBy: rental.SearchCustomerName, Search: "mulder"}, wantIDs: []uint64{2}},
		{name: "search without a field matches either", opts: rental.ListRentalsOptions{Search: "sk"}, wantIDs: []uint64{3}},
		{name: "search and status combine", opts: rental.ListRentalsOptions{Status: rental.FilterOverdue, SearchBy: rental.SearchTitle, Search: "heat"}, wantIDs: []uint64{1}},
		{name: "blank search matches everything", opts: rental.ListRentalsOptions{Search: "   "}, wantIDs: []uint64{3, 2, 1}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			views := rental.FilterRentals(rentals, test.opts, day(2024, 3, 10))
			ids := make([]uint64, 0, len(views))
			for _, v := range views {
				ids = append(ids, v.ID)
			}
			assert.Equal(t, test.wantIDs, ids)
		})
	}
}

func TestParse(t *testing.T) {
	k, err := rental.ParseKind("RENT")
	assert.NoError(t, err)
	assert.Equal(t, rental.Rent, k)
	_, err = rental.ParseKind("borrow")
	assert.Error(t, err)

	f, err := rental.ParseStatusFilter("")
	assert.NoError(t, err)
	assert.Equal(t, rental.All, f)
	f, err = rental.ParseStatusFilter("Overdue")
	assert.NoError(t, err)
	assert.Equal(t, rental.FilterOverdue, f)
	_, err = rental.ParseStatusFilter("late")
	assert.Error(t, err)

	sf, err := rental.ParseSearchField("customerName")
	assert.NoError(t, err)
	assert.Equal(t, rental.SearchCustomerName, sf)
	_, err = rental.ParseSearchField("genre")
	assert.Error(t, err)

	itf, err := rental.ParseItemField("")
	assert.NoError(t, err)
	assert.Equal(t, rental.ItemTitle, itf)

	d, err := rental.ParseDate("2024-02-29")
	assert.NoError(t, err)
	assert.Equal(t, day(2024, 2, 29), d)
	_, err = rental.ParseDate("02/29/2024")
	assert.Error(t, err)
}

func TestDayOf(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	assert.Equal(t, day(2024, 3, 11), rental.DayOf(time.Date(2024, 3, 11, 1, 30, 0, 0, tokyo)))
	assert.Equal(t, day(2024, 3, 10), rental.DayOf(time.Date(2024, 3, 11, 1, 30, 0, 0, tokyo).UTC()))
}
