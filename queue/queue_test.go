package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/sksmith/video-shoppe/core/rental"
	"github.com/sksmith/video-shoppe/queue"
	"github.com/sksmith/video-shoppe/testutil"
)

func TestMain(m *testing.M) {
	testutil.ConfigLogging()
	os.Exit(m.Run())
}

type sent struct {
	exchange string
	body     []byte
}

func recorder(out *[]sent, err error) queue.PublishFunc {
	return func(ctx context.Context, exchange string, body []byte) error {
		*out = append(*out, sent{exchange: exchange, body: body})
		return err
	}
}

func TestPublishEvent(t *testing.T) {
	r := &rental.Rental{ID: 7, CustomerID: 3, ItemID: 9, Status: rental.Out, DueDate: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)}
	tests := []struct {
		name       string
		event      rental.Event
		publishErr error

		wantExchange string
		wantErr      bool
	}{
		{
			name:         "checkout goes to the rental exchange",
			event:        rental.Event{Type: rental.CheckedOut, Rental: r, CustomerID: 3, Caller: "clerk"},
			wantExchange: "rental.exchange",
		},
		{
			name:         "broker failure is returned",
			event:        rental.Event{Type: rental.ReturnedBack, Rental: r, CustomerID: 3, Caller: "clerk"},
			publishErr:   errors.New("connection refused"),
			wantExchange: "rental.exchange",
			wantErr:      true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var out []sent
			q := queue.NewWithPublisher(recorder(&out, test.publishErr), "rental.exchange", "inventory.exchange")

			err := q.PublishEvent(context.Background(), test.event)
			if test.wantErr && err == nil {
				t.Errorf("expected error, got none")
			} else if !test.wantErr && err != nil {
				t.Errorf("did not want error, got=%v", err)
			}

			if len(out) != 1 {
				t.Fatalf("unexpected publish count got=%d want=1", len(out))
			}
			if out[0].exchange != test.wantExchange {
				t.Errorf("unexpected exchange got=%s want=%s", out[0].exchange, test.wantExchange)
			}

			got := rental.Event{}
			if err := json.Unmarshal(out[0].body, &got); err != nil {
				t.Fatal(err)
			}
			if got.Type != test.event.Type || got.Rental == nil || got.Rental.ID != r.ID {
				t.Errorf("unexpected event got=%+v want=%+v", got, test.event)
			}
		})
	}
}

func TestPublishItem(t *testing.T) {
	var out []sent
	q := queue.NewWithPublisher(recorder(&out, nil), "rental.exchange", "inventory.exchange")

	item := rental.Item{ID: 9, Title: "Heat", Quantity: 0, Available: false}
	if err := q.PublishItem(context.Background(), item); err != nil {
		t.Fatalf("did not want error, got=%v", err)
	}
	if len(out) != 1 || out[0].exchange != "inventory.exchange" {
		t.Fatalf("unexpected publish got=%+v", out)
	}

	got := rental.Item{}
	if err := json.Unmarshal(out[0].body, &got); err != nil {
		t.Fatal(err)
	}
	if got != item {
		t.Errorf("unexpected item got=%+v want=%+v", got, item)
	}
}

type handlerFunc func(ctx context.Context, item rental.Item) error

func (f handlerFunc) UpsertItem(ctx context.Context, item rental.Item) error {
	return f(ctx, item)
}

func TestCatalogHandle(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		handlerErr error

		wantHandled int
		wantDlt     int
	}{
		{
			name:        "item is stored",
			body:        `{"id":4,"title":"Heat","releaseYear":1995,"quantity":2}`,
			wantHandled: 1,
		},
		{
			name:        "unreadable message goes to the dlt",
			body:        `{"id":`,
			wantHandled: 0,
			wantDlt:     1,
		},
		{
			name:        "rejected item goes to the dlt",
			body:        `{"id":4,"title":""}`,
			handlerErr:  errors.New("title is required"),
			wantHandled: 1,
			wantDlt:     1,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var out []sent
			c := queue.NewMockCatalogQueue(recorder(&out, nil), "catalog.dlt")

			handled := 0
			c.Handle(context.Background(), []byte(test.body), handlerFunc(func(ctx context.Context, item rental.Item) error {
				handled++
				return test.handlerErr
			}))

			if handled != test.wantHandled {
				t.Errorf("unexpected handled count got=%d want=%d", handled, test.wantHandled)
			}
			if len(out) != test.wantDlt {
				t.Fatalf("unexpected dlt count got=%d want=%d", len(out), test.wantDlt)
			}
			if test.wantDlt > 0 && (out[0].exchange != "catalog.dlt" || string(out[0].body) != test.body) {
				t.Errorf("unexpected dlt message got=%+v", out[0])
			}
		})
	}
}
