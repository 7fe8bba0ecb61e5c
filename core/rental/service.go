package rental

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sksmith/video-shoppe/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/sksmith/video-shoppe/core/rental"

type Service interface {
	Checkout(ctx context.Context, caller core.Caller, req CheckoutRequest) (CheckoutResult, error)
	Return(ctx context.Context, caller core.Caller, rentalID uint64) (Rental, error)
	GetRental(ctx context.Context, caller core.Caller, id uint64) (RentalView, error)
	ListRentals(ctx context.Context, caller core.Caller, opts ListRentalsOptions, limit, offset int) ([]RentalView, error)

	CreateCustomer(ctx context.Context, caller core.Caller, req CreateCustomerRequest) (Customer, error)
	GetCustomer(ctx context.Context, caller core.Caller, id uint64) (Customer, error)
	SearchCustomer(ctx context.Context, caller core.Caller, name string) (Customer, error)
	Reconcile(ctx context.Context, caller core.Caller, customerID uint64) (Customer, error)

	CreateItem(ctx context.Context, caller core.Caller, item Item) (Item, error)
	UpsertItem(ctx context.Context, item Item) error
	GetItem(ctx context.Context, caller core.Caller, id uint64) (Item, error)
	SearchItems(ctx context.Context, caller core.Caller, search ItemSearch, limit, offset int) ([]Item, error)

	SubscribeRentals(ch chan<- Event) (id SubscriptionID)
	UnsubscribeRentals(id SubscriptionID)
}

type Option func(s *service)

// WithClock replaces time.Now as the source of the current instant.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithLocation sets the zone whose calendar decides what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(s *service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func RestockOnReturn(restock bool) Option {
	return func(s *service) {
		s.restockOnReturn = restock
	}
}

func MaxRentAge(years int) Option {
	return func(s *service) {
		s.maxRentAgeYears = years
	}
}

func NewService(repo Repository, q Queue, options ...Option) Service {
	s := &service{
		repo:            repo,
		queue:           q,
		now:             time.Now,
		loc:             time.UTC,
		maxRentAgeYears: 1,
		tracer:          otel.Tracer(tracerName),
		rentalSubs:      make(map[SubscriptionID]chan<- Event),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

type service struct {
	repo            Repository
	queue           Queue
	now             func() time.Time
	loc             *time.Location
	restockOnReturn bool
	maxRentAgeYears int
	tracer          trace.Tracer

	subsMu     sync.RWMutex
	rentalSubs map[SubscriptionID]chan<- Event
}

func (s *service) today() time.Time {
	return DayOf(s.now().In(s.loc))
}

func (s *service) Checkout(ctx context.Context, caller core.Caller, req CheckoutRequest) (res CheckoutResult, err error) {
	const funcName = "Checkout"

	ctx, span := s.tracer.Start(ctx, "rental.checkout", trace.WithAttributes(
		attribute.Int64("customer.id", int64(req.CustomerID)),
		attribute.Int64("item.id", int64(req.ItemID)),
		attribute.String("checkout.kind", string(req.Kind)),
	))
	defer func() { endSpan(span, err) }()

	log.Info().
		Str("func", funcName).
		Str("caller", caller.Username).
		Uint64("customerId", req.CustomerID).
		Uint64("itemId", req.ItemID).
		Str("kind", string(req.Kind)).
		Msg("checking out item")

	if err = requireCaller(caller); err != nil {
		return res, err
	}
	if req.Kind != Rent && req.Kind != Sell {
		return res, core.Validation("InvalidKind", fmt.Sprintf("kind must be %s or %s", Rent, Sell))
	}

	customer, err := s.repo.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		return res, lookupErr(err, "CustomerNotFound", fmt.Sprintf("customer %d not found", req.CustomerID))
	}

	item, err := s.repo.GetItem(ctx, req.ItemID)
	if err != nil {
		return res, lookupErr(err, "ItemNotFound", fmt.Sprintf("item %d not found", req.ItemID))
	}

	if !item.Available || item.Quantity <= 0 {
		return res, core.Conflict("OutOfStock", fmt.Sprintf("%s is out of stock", item.Title))
	}

	today := s.today()
	var dueDate time.Time
	if req.Kind == Rent {
		if today.Year()-item.ReleaseYear > s.maxRentAgeYears {
			return res, core.Validation("RentalTooOld", fmt.Sprintf("%s was released in %d and may only be sold", item.Title, item.ReleaseYear))
		}
		if req.DueDate == nil {
			return res, core.Validation("DueDateRequired", "a due date is required to rent")
		}
		dueDate = DayOf(*req.DueDate)
		if !dueDate.After(today) {
			return res, core.Validation("DueDateNotInFuture", "the due date must be after today")
		}
	}

	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return res, errors.WithStack(err)
	}

	defer func() {
		if err != nil {
			rollback(ctx, tx, err)
		}
	}()

	var rentalID uint64
	if req.Kind == Rent {
		rentalID, err = s.repo.NextRentalID(ctx, core.UpdateOptions{Tx: tx})
		if err != nil {
			return res, errors.WithMessage(err, "failed to reserve rental id")
		}
	}

	steps := make([]string, 0, 3)

	item, err = s.repo.DecrementStock(ctx, item.ID, core.UpdateOptions{Tx: tx})
	if err != nil {
		if errors.Is(err, ErrNoStock) {
			return res, core.Conflict("OutOfStock", fmt.Sprintf("item %d is out of stock", req.ItemID))
		}
		return res, errors.WithMessage(err, "failed to decrement stock")
	}
	steps = append(steps, "inventory")

	if req.Kind == Rent {
		log.Debug().
			Str("func", funcName).
			Uint64("customerId", customer.ID).
			Uint64("rentalId", rentalID).
			Time("dueDate", dueDate).
			Msg("adding due date to customer ledger")

		if err = s.repo.AddDueDate(ctx, customer.ID, DueDate{RentalID: rentalID, Date: dueDate}, core.UpdateOptions{Tx: tx}); err != nil {
			return res, errors.WithMessage(err, "failed to update customer ledger")
		}
		steps = append(steps, "ledger")

		r := Rental{
			ID:           rentalID,
			CustomerID:   customer.ID,
			ItemID:       item.ID,
			RentalDate:   today,
			DueDate:      dueDate,
			Status:       Out,
			Title:        item.Title,
			CustomerName: customer.FullName(),
			CheckedOutBy: caller.Username,
		}
		if err = s.repo.SaveRental(ctx, &r, core.UpdateOptions{Tx: tx}); err != nil {
			return res, errors.WithMessage(err, "failed to save rental")
		}
		steps = append(steps, "rental")
		res.Rental = &r
	}

	if err = ctx.Err(); err != nil {
		return res, errors.WithMessage(err, "checkout cancelled before commit")
	}

	if err = tx.Commit(ctx); err != nil {
		detail := map[string]interface{}{
			"operation":  "checkout",
			"customerId": customer.ID,
			"itemId":     item.ID,
			"kind":       string(req.Kind),
			"rentalId":   rentalID,
			"steps":      steps,
		}
		consistencyErrors.WithLabelValues("checkout").Inc()
		log.Error().Err(err).Str("func", funcName).Fields(detail).Msg("checkout commit outcome unknown, reconciliation required")
		return CheckoutResult{}, core.Consistency("CommitOutcomeUnknown", "the checkout may or may not have been recorded", detail, err)
	}

	checkouts.WithLabelValues(string(req.Kind)).Inc()
	res.Kind = req.Kind
	res.Item = item

	evt := Event{Rental: res.Rental, CustomerID: customer.ID, Caller: caller.Username, OccurredAt: s.now()}
	if req.Kind == Rent {
		evt.Type = CheckedOut
	} else {
		evt.Type = Sold
		sold := item
		evt.Item = &sold
	}
	s.publish(ctx, evt, &item)

	return res, nil
}

func (s *service) Return(ctx context.Context, caller core.Caller, rentalID uint64) (ret Rental, err error) {
	const funcName = "Return"

	ctx, span := s.tracer.Start(ctx, "rental.return", trace.WithAttributes(
		attribute.Int64("rental.id", int64(rentalID)),
	))
	defer func() { endSpan(span, err) }()

	log.Info().
		Str("func", funcName).
		Str("caller", caller.Username).
		Uint64("rentalId", rentalID).
		Msg("returning rental")

	if err = requireCaller(caller); err != nil {
		return ret, err
	}

	r, err := s.repo.GetRental(ctx, rentalID)
	if err != nil {
		return ret, lookupErr(err, "RentalNotFound", fmt.Sprintf("rental %d not found", rentalID))
	}
	if r.Status == Returned {
		return ret, core.Conflict("AlreadyReturned", fmt.Sprintf("rental %d was already returned", rentalID))
	}

	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return ret, errors.WithStack(err)
	}

	defer func() {
		if err != nil {
			rollback(ctx, tx, err)
		}
	}()

	steps := make([]string, 0, 3)

	ret, err = s.repo.CloseRental(ctx, r.ID, s.today(), caller.Username, core.UpdateOptions{Tx: tx})
	if err != nil {
		if errors.Is(err, ErrNotOut) {
			return Rental{}, core.Conflict("AlreadyReturned", fmt.Sprintf("rental %d was already returned", rentalID))
		}
		return Rental{}, errors.WithMessage(err, "failed to close rental")
	}
	steps = append(steps, "rental")

	if err = s.repo.RemoveDueDate(ctx, r.CustomerID, r.ID, core.UpdateOptions{Tx: tx}); err != nil {
		return Rental{}, errors.WithMessage(err, "failed to update customer ledger")
	}
	steps = append(steps, "ledger")

	var restocked *Item
	if s.restockOnReturn {
		var item Item
		item, err = s.repo.IncrementStock(ctx, r.ItemID, core.UpdateOptions{Tx: tx})
		if err != nil {
			return Rental{}, errors.WithMessage(err, "failed to restock item")
		}
		restocked = &item
		steps = append(steps, "inventory")
	}

	if err = ctx.Err(); err != nil {
		return Rental{}, errors.WithMessage(err, "return cancelled before commit")
	}

	if err = tx.Commit(ctx); err != nil {
		detail := map[string]interface{}{
			"operation":  "return",
			"customerId": r.CustomerID,
			"itemId":     r.ItemID,
			"rentalId":   r.ID,
			"steps":      steps,
		}
		consistencyErrors.WithLabelValues("return").Inc()
		log.Error().Err(err).Str("func", funcName).Fields(detail).Msg("return commit outcome unknown, reconciliation required")
		return Rental{}, core.Consistency("CommitOutcomeUnknown", "the return may or may not have been recorded", detail, err)
	}

	returns.Inc()
	closed := ret
	s.publish(ctx, Event{
		Type:       ReturnedBack,
		Rental:     &closed,
		CustomerID: r.CustomerID,
		Caller:     caller.Username,
		OccurredAt: s.now(),
	}, restocked)

	return ret, nil
}

func (s *service) GetRental(ctx context.Context, caller core.Caller, id uint64) (RentalView, error) {
	if err := requireCaller(caller); err != nil {
		return RentalView{}, err
	}

	r, err := s.repo.GetRental(ctx, id)
	if err != nil {
		return RentalView{}, lookupErr(err, "RentalNotFound", fmt.Sprintf("rental %d not found", id))
	}
	return View(r, s.today()), nil
}

func (s *service) ListRentals(ctx context.Context, caller core.Caller, opts ListRentalsOptions, limit, offset int) ([]RentalView, error) {
	const funcName = "ListRentals"

	log.Info().
		Str("func", funcName).
		Str("status", string(opts.Status)).
		Str("searchBy", string(opts.SearchBy)).
		Str("search", opts.Search).
		Msg("listing rentals")

	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	today := s.today()
	rentals, err := s.repo.ListRentals(ctx, opts, today, limit, offset)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return FilterRentals(rentals, opts, today), nil
}

func (s *service) CreateCustomer(ctx context.Context, caller core.Caller, req CreateCustomerRequest) (Customer, error) {
	const funcName = "CreateCustomer"

	if err := requireCaller(caller); err != nil {
		return Customer{}, err
	}

	first, last := strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName)
	if first == "" || last == "" {
		return Customer{}, core.Validation("NameRequired", "first and last name are required")
	}

	var birthdate *time.Time
	if req.Birthdate != nil {
		b := DayOf(*req.Birthdate)
		if b.After(s.today()) {
			return Customer{}, core.Validation("InvalidBirthdate", "birthdate cannot be in the future")
		}
		birthdate = &b
	}

	c := Customer{
		FirstName:        first,
		LastName:         last,
		Birthdate:        birthdate,
		HomeAddress:      req.HomeAddress,
		PhoneNumber:      req.PhoneNumber,
		CreditCardNumber: req.CreditCardNumber,
		CreditCardExpiry: req.CreditCardExpiry,
		CreditCardCVC:    req.CreditCardCVC,
		DueDates:         []DueDate{},
		Created:          s.now(),
	}

	log.Info().
		Str("func", funcName).
		Str("caller", caller.Username).
		Str("name", c.FullName()).
		Msg("creating customer")

	if err := s.repo.SaveCustomer(ctx, &c); err != nil {
		return Customer{}, errors.WithMessage(err, "failed to save customer")
	}
	return c, nil
}

func (s *service) GetCustomer(ctx context.Context, caller core.Caller, id uint64) (Customer, error) {
	if err := requireCaller(caller); err != nil {
		return Customer{}, err
	}

	c, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return Customer{}, lookupErr(err, "CustomerNotFound", fmt.Sprintf("customer %d not found", id))
	}
	return c, nil
}

func (s *service) SearchCustomer(ctx context.Context, caller core.Caller, name string) (Customer, error) {
	const funcName = "SearchCustomer"

	if err := requireCaller(caller); err != nil {
		return Customer{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return Customer{}, core.Validation("SearchTermRequired", "a name to search for is required")
	}

	log.Info().Str("func", funcName).Str("name", name).Msg("searching customer")

	c, err := s.repo.FindCustomerByName(ctx, name)
	if err != nil {
		return Customer{}, lookupErr(err, "CustomerNotFound", fmt.Sprintf("no customer matches %q", name))
	}
	return c, nil
}

// Reconcile rebuilds a customer's ledger from the customer's open rentals.
func (s *service) Reconcile(ctx context.Context, caller core.Caller, customerID uint64) (c Customer, err error) {
	const funcName = "Reconcile"

	ctx, span := s.tracer.Start(ctx, "rental.reconcile", trace.WithAttributes(
		attribute.Int64("customer.id", int64(customerID)),
	))
	defer func() { endSpan(span, err) }()

	if err = requireAdmin(caller); err != nil {
		return c, err
	}

	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return c, errors.WithStack(err)
	}

	defer func() {
		if err != nil {
			rollback(ctx, tx, err)
		}
	}()

	before, err := s.repo.GetCustomer(ctx, customerID, core.QueryOptions{Tx: tx, ForUpdate: true})
	if err != nil {
		return c, lookupErr(err, "CustomerNotFound", fmt.Sprintf("customer %d not found", customerID))
	}

	open, err := s.repo.GetOpenRentals(ctx, customerID, core.QueryOptions{Tx: tx})
	if err != nil {
		return c, errors.WithMessage(err, "failed to get open rentals")
	}
	sort.Slice(open, func(i, j int) bool { return open[i].ID < open[j].ID })

	dues := make([]DueDate, 0, len(open))
	for _, r := range open {
		dues = append(dues, DueDate{RentalID: r.ID, Date: r.DueDate})
	}

	if err = s.repo.ReplaceDueDates(ctx, customerID, dues, core.UpdateOptions{Tx: tx}); err != nil {
		return c, errors.WithMessage(err, "failed to replace due dates")
	}

	c, err = s.repo.GetCustomer(ctx, customerID, core.QueryOptions{Tx: tx})
	if err != nil {
		return c, errors.WithStack(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return Customer{}, errors.WithMessage(err, "failed to commit reconciliation")
	}

	evt := log.Info()
	if before.OutstandingRentals != c.OutstandingRentals || len(before.DueDates) != len(c.DueDates) {
		evt = log.Warn()
	}
	evt.Str("func", funcName).
		Str("caller", caller.Username).
		Uint64("customerId", customerID).
		Int64("outstandingBefore", before.OutstandingRentals).
		Int("dueDatesBefore", len(before.DueDates)).
		Int64("outstandingAfter", c.OutstandingRentals).
		Msg("reconciled customer ledger")

	return c, nil
}

func (s *service) CreateItem(ctx context.Context, caller core.Caller, item Item) (Item, error) {
	const funcName = "CreateItem"

	if err := requireAdmin(caller); err != nil {
		return Item{}, err
	}
	if err := validateItem(item); err != nil {
		return Item{}, err
	}

	item.ID = 0
	item.Available = item.Quantity > 0

	log.Info().
		Str("func", funcName).
		Str("caller", caller.Username).
		Str("title", item.Title).
		Int64("quantity", item.Quantity).
		Msg("creating item")

	if err := s.repo.SaveItem(ctx, &item); err != nil {
		return Item{}, errors.WithMessage(err, "failed to save item")
	}

	s.publish(ctx, Event{}, &item)
	return item, nil
}

// UpsertItem stores an item pushed by the catalog system. The catalog's quantity only seeds a new title; the stock
// of a known title is owned by checkouts and returns, so it is kept as stored.
func (s *service) UpsertItem(ctx context.Context, item Item) (err error) {
	const funcName = "UpsertItem"

	if err := validateItem(item); err != nil {
		return err
	}

	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	defer func() {
		if err != nil {
			rollback(ctx, tx, err)
		}
	}()

	existing, err := s.repo.GetItem(ctx, item.ID, core.QueryOptions{Tx: tx, ForUpdate: true})
	switch {
	case err == nil:
		item.Quantity = existing.Quantity
		item.RequestedCount = existing.RequestedCount
	case errors.Is(err, core.ErrNotFound):
		err = nil
	default:
		return errors.WithMessage(err, "failed to lock catalog item")
	}
	item.Available = item.Quantity > 0

	log.Info().
		Str("func", funcName).
		Uint64("id", item.ID).
		Str("title", item.Title).
		Bool("known", existing.ID != 0).
		Int64("quantity", item.Quantity).
		Msg("upserting catalog item")

	if err = s.repo.SaveItem(ctx, &item, core.UpdateOptions{Tx: tx}); err != nil {
		return errors.WithMessage(err, "failed to save catalog item")
	}

	if err = tx.Commit(ctx); err != nil {
		return errors.WithMessage(err, "failed to commit catalog item")
	}
	return nil
}

func (s *service) GetItem(ctx context.Context, caller core.Caller, id uint64) (Item, error) {
	if err := requireCaller(caller); err != nil {
		return Item{}, err
	}

	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return Item{}, lookupErr(err, "ItemNotFound", fmt.Sprintf("item %d not found", id))
	}
	return item, nil
}

func (s *service) SearchItems(ctx context.Context, caller core.Caller, search ItemSearch, limit, offset int) ([]Item, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	items, err := s.repo.SearchItems(ctx, search, limit, offset)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return items, nil
}

func (s *service) SubscribeRentals(ch chan<- Event) (id SubscriptionID) {
	id = SubscriptionID(uuid.NewString())
	s.subsMu.Lock()
	s.rentalSubs[id] = ch
	s.subsMu.Unlock()
	log.Debug().Interface("clientId", id).Msg("subscribing to rentals")
	return id
}

func (s *service) UnsubscribeRentals(id SubscriptionID) {
	log.Debug().Interface("clientId", id).Msg("unsubscribing from rentals")
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if ch, ok := s.rentalSubs[id]; ok {
		close(ch)
		delete(s.rentalSubs, id)
	}
}

// publish sends the event and the item's new stock level to the broker. The transaction has already committed, so
// failures are only logged.
func (s *service) publish(ctx context.Context, evt Event, item *Item) {
	if evt.Type != "" {
		if err := s.queue.PublishEvent(ctx, evt); err != nil {
			publishFailures.WithLabelValues(string(evt.Type)).Inc()
			log.Error().Err(err).Str("type", string(evt.Type)).Msg("failed to publish rental event")
		}
		go s.notifyRentalSubscribers(evt)
	}
	if item != nil {
		if err := s.queue.PublishItem(ctx, *item); err != nil {
			publishFailures.WithLabelValues("item").Inc()
			log.Error().Err(err).Uint64("itemId", item.ID).Msg("failed to publish item")
		}
	}
}

func (s *service) notifyRentalSubscribers(evt Event) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for id, ch := range s.rentalSubs {
		select {
		case ch <- evt:
			log.Debug().Interface("clientId", id).Str("type", string(evt.Type)).Msg("notified subscriber of rental update")
		default:
			log.Warn().Interface("clientId", id).Str("type", string(evt.Type)).Msg("subscriber is not keeping up, dropping rental update")
		}
	}
}

func requireCaller(caller core.Caller) error {
	if !caller.Authenticated() {
		return core.Unauthorized("Unauthenticated", "an authenticated caller is required")
	}
	return nil
}

func requireAdmin(caller core.Caller) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if !caller.IsAdmin {
		return core.Unauthorized("Forbidden", "only administrators may do this")
	}
	return nil
}

func validateItem(item Item) error {
	if strings.TrimSpace(item.Title) == "" {
		return core.Validation("TitleRequired", "title is required")
	}
	if item.Quantity < 0 {
		return core.Validation("NegativeQuantity", "quantity cannot be negative")
	}
	if item.ReleaseYear <= 0 {
		return core.Validation("ReleaseYearRequired", "release year is required")
	}
	return nil
}

func lookupErr(err error, code, msg string) error {
	if errors.Is(err, core.ErrNotFound) {
		return core.NotFound(code, msg)
	}
	return errors.WithStack(err)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
