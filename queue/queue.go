package queue

import (
	"context"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sksmith/bunnyq"
	"github.com/sksmith/video-shoppe/core/rental"
	"github.com/streadway/amqp"
)

var json = jsoniter.ConfigFastest

// PublishFunc sends body to the named exchange.
type PublishFunc func(ctx context.Context, exchange string, body []byte) error

func bunnyPublisher(bq *bunnyq.BunnyQ) PublishFunc {
	return func(ctx context.Context, exchange string, body []byte) error {
		return bq.Publish(ctx, exchange, body)
	}
}

type rentalQueue struct {
	publish           PublishFunc
	rentalExchange    string
	inventoryExchange string
}

func New(bq *bunnyq.BunnyQ, rentalExchange, inventoryExchange string) rental.Queue {
	return NewWithPublisher(bunnyPublisher(bq), rentalExchange, inventoryExchange)
}

func NewWithPublisher(publish PublishFunc, rentalExchange, inventoryExchange string) rental.Queue {
	return &rentalQueue{publish: publish, rentalExchange: rentalExchange, inventoryExchange: inventoryExchange}
}

func (q *rentalQueue) PublishEvent(ctx context.Context, event rental.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.WithMessage(err, "failed to serialize rental event for queue")
	}
	if err = q.publish(ctx, q.rentalExchange, body); err != nil {
		return errors.WithMessage(err, "failed to send rental event to queue")
	}
	return nil
}

func (q *rentalQueue) PublishItem(ctx context.Context, item rental.Item) error {
	body, err := json.Marshal(item)
	if err != nil {
		return errors.WithMessage(err, "failed to serialize item for queue")
	}
	if err = q.publish(ctx, q.inventoryExchange, body); err != nil {
		return errors.WithMessage(err, "failed to send item update to queue")
	}
	return nil
}

// CatalogQueue consumes item records pushed by the catalog system. Messages that cannot be read or stored are
// forwarded to the dead letter exchange.
type CatalogQueue struct {
	queue          *bunnyq.BunnyQ
	publish        PublishFunc
	catalogQueue   string
	catalogDltExch string
}

func NewCatalogQueue(bq *bunnyq.BunnyQ, catalogQueue, catalogDltExchange string) *CatalogQueue {
	return &CatalogQueue{
		queue:          bq,
		publish:        bunnyPublisher(bq),
		catalogQueue:   catalogQueue,
		catalogDltExch: catalogDltExchange,
	}
}

type ItemHandler interface {
	UpsertItem(ctx context.Context, item rental.Item) error
}

func (c *CatalogQueue) ConsumeItems(ctx context.Context, handler ItemHandler) {
	c.queue.Stream(ctx, c.catalogQueue, func(delivery amqp.Delivery) {
		c.Handle(ctx, delivery.Body, handler)
	}, bunnyq.StreamOpAutoAck)
}

// Handle stores a single catalog message.
func (c *CatalogQueue) Handle(ctx context.Context, body []byte, handler ItemHandler) {
	item := rental.Item{}
	if err := json.Unmarshal(body, &item); err != nil {
		log.Error().Err(err).Msg("error unmarshalling catalog item, writing to dlt")
		c.sendToDlt(ctx, body)
		return
	}

	if err := handler.UpsertItem(ctx, item); err != nil {
		log.Error().Err(err).Uint64("itemId", item.ID).Msg("error handling catalog item, writing to dlt")
		c.sendToDlt(ctx, body)
	}
}

func (c *CatalogQueue) sendToDlt(ctx context.Context, data []byte) {
	err := c.publish(ctx, c.catalogDltExch, data)
	if err != nil {
		log.Error().Err(err).Msg("error writing to dlt")
	}
}
