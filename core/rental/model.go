// Package rental is the transaction lifecycle of a video rental store: checking copies out to customers, either as
// a rental or a sale, and taking rentals back. A checkout touches three records that must agree with each other: the
// item's stock, the customer's ledger of open rentals and the rental record itself.
package rental

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Kind is what a checkout does with the copy.
type Kind string

const (
	Rent Kind = "rent"
	Sell Kind = "sell"
)

func ParseKind(v string) (Kind, error) {
	switch Kind(strings.ToLower(v)) {
	case Rent:
		return Rent, nil
	case Sell:
		return Sell, nil
	default:
		return "", errors.Errorf("invalid checkout kind %q", v)
	}
}

// Status is the stored state of a rental. Overdue is never stored, see EffectiveStatus.
type Status string

const (
	Out      Status = "out"
	Returned Status = "returned"
	Overdue  Status = "overdue"
)

type StatusFilter string

const (
	All            StatusFilter = "all"
	FilterOut      StatusFilter = "out"
	FilterOverdue  StatusFilter = "overdue"
	FilterReturned StatusFilter = "returned"
)

func ParseStatusFilter(v string) (StatusFilter, error) {
	switch StatusFilter(strings.ToLower(v)) {
	case "", All:
		return All, nil
	case FilterOut:
		return FilterOut, nil
	case FilterOverdue:
		return FilterOverdue, nil
	case FilterReturned:
		return FilterReturned, nil
	default:
		return "", errors.Errorf("invalid status filter %q", v)
	}
}

// SearchField names the rental column a free text search applies to.
type SearchField string

const (
	SearchNone         SearchField = ""
	SearchCustomerName SearchField = "customer_name"
	SearchTitle        SearchField = "title"
)

func ParseSearchField(v string) (SearchField, error) {
	switch SearchField(v) {
	case SearchNone:
		return SearchNone, nil
	case SearchCustomerName, "customer", "customerName":
		return SearchCustomerName, nil
	case SearchTitle:
		return SearchTitle, nil
	default:
		return "", errors.Errorf("invalid search field %q", v)
	}
}

// ItemField names the item column a catalog search applies to.
type ItemField string

const (
	ItemTitle    ItemField = "title"
	ItemGenre    ItemField = "genre"
	ItemDirector ItemField = "director"
	ItemActors   ItemField = "actors"
)

func ParseItemField(v string) (ItemField, error) {
	switch ItemField(v) {
	case "", ItemTitle:
		return ItemTitle, nil
	case ItemGenre:
		return ItemGenre, nil
	case ItemDirector:
		return ItemDirector, nil
	case ItemActors:
		return ItemActors, nil
	default:
		return "", errors.Errorf("invalid item search field %q", v)
	}
}

// Item is an entity. A catalog title and the number of copies on the shelf.
type Item struct {
	ID             uint64 `json:"id"`
	Title          string `json:"title"`
	Genre          string `json:"genre"`
	Director       string `json:"director"`
	Actors         string `json:"actors"`
	ReleaseYear    int    `json:"releaseYear"`
	Quantity       int64  `json:"quantity"`
	Available      bool   `json:"available"`
	PriceCents     int64  `json:"priceCents"`
	RequestedCount int64  `json:"requestedCount"`
}

// DueDate is a value object. The due date of one open rental, kept on the customer's ledger.
type DueDate struct {
	RentalID uint64    `json:"rentalId"`
	Date     time.Time `json:"date"`
}

// Customer is an entity. OutstandingRentals and DueDates always describe the customer's open rentals.
type Customer struct {
	ID                 uint64     `json:"id"`
	FirstName          string     `json:"firstName"`
	LastName           string     `json:"lastName"`
	Birthdate          *time.Time `json:"birthdate,omitempty"`
	HomeAddress        string     `json:"homeAddress"`
	PhoneNumber        string     `json:"phoneNumber"`
	CreditCardNumber   string     `json:"creditCardNumber"`
	CreditCardExpiry   string     `json:"creditCardExpiry"`
	CreditCardCVC      string     `json:"creditCardCvc"`
	OutstandingRentals int64      `json:"outstandingRentals"`
	DueDates           []DueDate  `json:"dueDates"`
	Created            time.Time  `json:"created"`
}

func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Rental is an entity. One rented copy, from checkout until it is returned.
type Rental struct {
	ID           uint64     `json:"id"`
	CustomerID   uint64     `json:"customerId"`
	ItemID       uint64     `json:"itemId"`
	RentalDate   time.Time  `json:"rentalDate"`
	DueDate      time.Time  `json:"dueDate"`
	ReturnDate   *time.Time `json:"returnDate"`
	Status       Status     `json:"status"`
	Title        string     `json:"title"`
	CustomerName string     `json:"customerName"`
	CheckedOutBy string     `json:"checkedOutBy"`
	ReturnedBy   string     `json:"returnedBy,omitempty"`
}

// RentalView is a rental as shown to a reader, with its status classified against today.
type RentalView struct {
	Rental
	EffectiveStatus Status `json:"effectiveStatus"`
}

type CheckoutRequest struct {
	CustomerID uint64
	ItemID     uint64
	Kind       Kind
	DueDate    *time.Time
}

type CheckoutResult struct {
	Kind   Kind    `json:"kind"`
	Rental *Rental `json:"rental,omitempty"`
	Item   Item    `json:"item"`
}

type CreateCustomerRequest struct {
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	Birthdate        *time.Time `json:"birthdate,omitempty"`
	HomeAddress      string     `json:"homeAddress"`
	PhoneNumber      string     `json:"phoneNumber"`
	CreditCardNumber string     `json:"creditCardNumber"`
	CreditCardExpiry string     `json:"creditCardExpiry"`
	CreditCardCVC    string     `json:"creditCardCvc"`
}

type ListRentalsOptions struct {
	Status   StatusFilter
	SearchBy SearchField
	Search   string
}

type ItemSearch struct {
	SearchBy ItemField
	Search   string
}

type EventType string

const (
	CheckedOut   EventType = "rental.checkedOut"
	ReturnedBack EventType = "rental.returned"
	Sold         EventType = "item.sold"
)

// Event is published after a checkout, sale or return has committed.
type Event struct {
	Type       EventType `json:"type"`
	Rental     *Rental   `json:"rental,omitempty"`
	Item       *Item     `json:"item,omitempty"`
	CustomerID uint64    `json:"customerId"`
	Caller     string    `json:"caller"`
	OccurredAt time.Time `json:"occurredAt"`
}

type SubscriptionID string

// DayOf is the civil date of t in t's location, as midnight UTC.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const DateLayout = "2006-01-02"

func ParseDate(v string) (time.Time, error) {
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid date %q, expected YYYY-MM-DD", v)
	}
	return t, nil
}
