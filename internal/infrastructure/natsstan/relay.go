// Package natsstan relays placed orders to NATS Streaming for downstream
// consumers (fulfilment screens, analytics).
package natsstan

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Zhima-Mochi/coffeeshop/internal/domain/shop"
	stan "github.com/nats-io/stan.go"
)

// publisher is the part of stan.Conn the relay needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

type Config struct {
	ClusterID string
	ClientID  string
	URL       string
	Subject   string
}

// Relay publishes every order as JSON on one subject. Publish is synchronous,
// so a nil error means the streaming server acknowledged the message.
type Relay struct {
	pub     publisher
	subject string
}

func NewRelay(pub publisher, subject string) *Relay {
	return &Relay{pub: pub, subject: subject}
}

// Connect dials the streaming cluster. The returned close func releases the
// connection.
func Connect(cfg Config) (*Relay, func() error, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("coffeeshop-%d", time.Now().UnixNano())
	}
	sc, err := stan.Connect(cfg.ClusterID, clientID, stan.NatsURL(cfg.URL))
	if err != nil {
		return nil, nil, fmt.Errorf("natsstan: connect: %w", err)
	}
	return NewRelay(sc, cfg.Subject), sc.Close, nil
}

// wireOrder is the published payload; amounts travel as decimal strings so
// consumers without 64-bit unsigned integers stay exact.
type wireOrder struct {
	OrderID    uint64    `json:"order_id"`
	Customer   string    `json:"customer"`
	ItemID     uint64    `json:"item_id"`
	Qty        uint64    `json:"qty"`
	Total      string    `json:"total"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (r *Relay) Append(ctx context.Context, e shop.OrderPlaced) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(wireOrder{
		OrderID:    e.OrderID,
		Customer:   e.Customer.String(),
		ItemID:     e.ItemID,
		Qty:        e.Qty,
		Total:      strconv.FormatUint(uint64(e.Total), 10),
		OccurredAt: e.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("natsstan: encode order %d: %w", e.OrderID, err)
	}
	if err := r.pub.Publish(r.subject, data); err != nil {
		return fmt.Errorf("natsstan: publish order %d: %w", e.OrderID, err)
	}
	return nil
}
