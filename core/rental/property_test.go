package rental_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sksmith/video-shoppe/core"
	"github.com/sksmith/video-shoppe/core/rental"
	"github.com/sksmith/video-shoppe/db/memrepo"
	"github.com/sksmith/video-shoppe/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type store struct {
	repo      rental.Repository
	service   rental.Service
	customers []uint64
	items     map[uint64]int64
	open      map[uint64]uint64
	taken     map[uint64]int64
}

func newStore(t require.TestingT, restock bool) *store {
	ctx := context.Background()
	repo := memrepo.NewRentalRepo(memrepo.NewStore())
	s := &store{
		repo:    repo,
		service: rental.NewService(repo, queue.NewMockQueue(), rental.WithClock(fixedClock), rental.RestockOnReturn(restock)),
		items:   map[uint64]int64{},
		open:    map[uint64]uint64{},
		taken:   map[uint64]int64{},
	}

	for _, name := range []string{"Scully", "Mulder", "Skinner"} {
		c, err := s.service.CreateCustomer(ctx, clerk, rental.CreateCustomerRequest{FirstName: "Agent", LastName: name})
		require.NoError(t, err)
		s.customers = append(s.customers, c.ID)
	}
	for i, qty := range []int64{0, 1, 3} {
		item, err := s.service.CreateItem(ctx, admin, rental.Item{Title: "Tape", ReleaseYear: 2024 - i%2, Quantity: qty})
		require.NoError(t, err)
		s.items[item.ID] = qty
	}
	return s
}

// check asserts the stock and ledger agree with every checkout and return made so far.
func (s *store) check(t *rapid.T) {
	ctx := context.Background()

	for id, initial := range s.items {
		item, err := s.repo.GetItem(ctx, id)
		require.NoError(t, err)
		if item.Quantity < 0 {
			t.Fatalf("item %d has negative quantity %d", id, item.Quantity)
		}
		if item.Available != (item.Quantity > 0) {
			t.Fatalf("item %d available=%v with quantity %d", id, item.Available, item.Quantity)
		}
		if item.Quantity != initial-s.taken[id] {
			t.Fatalf("item %d quantity got=%d want=%d", id, item.Quantity, initial-s.taken[id])
		}
	}

	for _, cid := range s.customers {
		c, err := s.repo.GetCustomer(ctx, cid)
		require.NoError(t, err)
		open, err := s.repo.GetOpenRentals(ctx, cid)
		require.NoError(t, err)

		if c.OutstandingRentals != int64(len(c.DueDates)) || len(c.DueDates) != len(open) {
			t.Fatalf("customer %d outstanding=%d dueDates=%d open=%d", cid, c.OutstandingRentals, len(c.DueDates), len(open))
		}
		dues := map[uint64]time.Time{}
		for _, d := range c.DueDates {
			dues[d.RentalID] = d.Date
		}
		for _, r := range open {
			if d, ok := dues[r.ID]; !ok || !d.Equal(r.DueDate) {
				t.Fatalf("customer %d ledger is missing rental %d due %v", cid, r.ID, r.DueDate)
			}
		}
	}
}

func TestLedgerMatchesRentals(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		restock := rapid.Bool().Draw(t, "restock")
		s := newStore(t, restock)
		ctx := context.Background()

		itemIDs := make([]uint64, 0, len(s.items))
		for id := range s.items {
			itemIDs = append(itemIDs, id)
		}

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0, 1:
				kind := rental.Rent
				if rapid.Bool().Draw(t, "sell") {
					kind = rental.Sell
				}
				req := rental.CheckoutRequest{
					CustomerID: rapid.SampledFrom(s.customers).Draw(t, "customer"),
					ItemID:     rapid.SampledFrom(itemIDs).Draw(t, "item"),
					Kind:       kind,
					DueDate:    datePtr(today.AddDate(0, 0, rapid.IntRange(1, 14).Draw(t, "days"))),
				}
				res, err := s.service.Checkout(ctx, clerk, req)
				if err != nil {
					if k := core.KindOf(err); k != core.KindConflict && k != core.KindValidation {
						t.Fatalf("unexpected checkout error %v", err)
					}
					continue
				}
				s.taken[req.ItemID]++
				if res.Rental != nil {
					s.open[res.Rental.ID] = req.ItemID
				}
			case 2:
				if len(s.open) == 0 {
					continue
				}
				ids := make([]uint64, 0, len(s.open))
				for id := range s.open {
					ids = append(ids, id)
				}
				id := rapid.SampledFrom(ids).Draw(t, "rental")
				if _, err := s.service.Return(ctx, clerk, id); err != nil {
					t.Fatalf("unexpected return error %v", err)
				}
				if restock {
					s.taken[s.open[id]]--
				}
				delete(s.open, id)

				_, err := s.service.Return(ctx, clerk, id)
				if core.CodeOf(err) != "AlreadyReturned" {
					t.Fatalf("second return of %d got=%v", id, err)
				}
			}
			s.check(t)
		}
	})
}

func TestConcurrentCheckoutOfLastCopy(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, false)

	var lastCopy uint64
	for id, qty := range s.items {
		if qty == 1 {
			lastCopy = id
		}
	}

	const clerks = 12
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		succeeded  int
		outOfStock int
	)
	for i := 0; i < clerks; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.service.Checkout(ctx, clerk, rental.CheckoutRequest{
				CustomerID: s.customers[i%len(s.customers)],
				ItemID:     lastCopy,
				Kind:       rental.Rent,
				DueDate:    datePtr(today.AddDate(0, 0, 3)),
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if core.CodeOf(err) == "OutOfStock" {
				outOfStock++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, clerks-1, outOfStock)

	item, err := s.repo.GetItem(ctx, lastCopy)
	require.NoError(t, err)
	assert.Equal(t, int64(0), item.Quantity)
	assert.False(t, item.Available)

	var outstanding int64
	for _, cid := range s.customers {
		c, err := s.repo.GetCustomer(ctx, cid)
		require.NoError(t, err)
		outstanding += c.OutstandingRentals
	}
	assert.Equal(t, int64(1), outstanding)
}

func TestReconcileRepairsLedger(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, false)

	var itemID uint64
	for id, qty := range s.items {
		if qty == 3 {
			itemID = id
		}
	}
	cid := s.customers[0]

	for i := 1; i <= 2; i++ {
		_, err := s.service.Checkout(ctx, clerk, rental.CheckoutRequest{
			CustomerID: cid, ItemID: itemID, Kind: rental.Rent, DueDate: datePtr(today.AddDate(0, 0, i)),
		})
		require.NoError(t, err)
	}

	require.NoError(t, s.repo.ReplaceDueDates(ctx, cid, []rental.DueDate{}))

	c, err := s.service.Reconcile(ctx, admin, cid)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.OutstandingRentals)
	assert.Len(t, c.DueDates, 2)
}
