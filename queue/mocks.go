package queue

import (
	"context"

	"github.com/sksmith/video-shoppe/core/rental"
	"github.com/sksmith/video-shoppe/testutil"
)

type MockQueue struct {
	PublishEventFunc func(ctx context.Context, event rental.Event) error
	PublishItemFunc  func(ctx context.Context, item rental.Item) error
	*testutil.CallWatcher
}

func NewMockQueue() *MockQueue {
	return &MockQueue{
		PublishEventFunc: func(ctx context.Context, event rental.Event) error { return nil },
		PublishItemFunc:  func(ctx context.Context, item rental.Item) error { return nil },
		CallWatcher:      testutil.NewCallWatcher(),
	}
}

func (m *MockQueue) PublishEvent(ctx context.Context, event rental.Event) error {
	m.AddCall(ctx, event)
	return m.PublishEventFunc(ctx, event)
}

func (m *MockQueue) PublishItem(ctx context.Context, item rental.Item) error {
	m.AddCall(ctx, item)
	return m.PublishItemFunc(ctx, item)
}

// NewMockCatalogQueue is a CatalogQueue whose dead letter writes go to publish instead of a broker.
func NewMockCatalogQueue(publish PublishFunc, dltExchange string) *CatalogQueue {
	return &CatalogQueue{publish: publish, catalogDltExch: dltExchange}
}
