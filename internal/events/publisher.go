// Package events publishes order lifecycle messages for downstream consumers
// (reporting, fulfillment). Publishing is best-effort: the save transaction
// has already committed by the time an event goes out.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type OrderSaved struct {
	SalesOrderID     int       `json:"salesOrderId"`
	SalesOrderNumber string    `json:"salesOrderNumber"`
	CustomerID       int       `json:"customerId"`
	TotalDue         float64   `json:"totalDue"`
	ItemCount        int       `json:"itemCount"`
	SavedAt          time.Time `json:"savedAt"`
}

type Publisher struct {
	writer *kafka.Writer
	log    zerolog.Logger
}

// NewPublisher builds a kafka-backed publisher from a comma-separated broker
// list. An empty list returns nil, which disables eventing everywhere a
// *Publisher is threaded through.
func NewPublisher(brokers, topic string, log zerolog.Logger) *Publisher {
	if strings.TrimSpace(brokers) == "" {
		return nil
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, log: log}
}

// OrderSaved emits one message keyed by order id. Failures are logged and
// swallowed; eventing must never fail a committed save.
func (p *Publisher) OrderSaved(ctx context.Context, evt OrderSaved) {
	if p == nil {
		return
	}
	body, err := json.Marshal(evt)
	if err != nil {
		p.log.Error().Err(err).Msg("encode order-saved event")
		return
	}
	msg := kafka.Message{
		Key:   []byte(strconv.Itoa(evt.SalesOrderID)),
		Value: body,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warn().Err(err).Int("sales_order_id", evt.SalesOrderID).Msg("publish order-saved event")
	}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
