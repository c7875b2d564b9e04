package poller

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/looprex/checkout/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type CartClearer interface {
	ClearCartIfUnchangedSince(ctx context.Context, userID int64, since time.Time) (bool, error)
}

// Poller clears a user's cart once their order was fully submitted.
// Partially submitted orders keep the cart so the failed items can be
// retried, and a cart changed after the submission is left alone.
type Poller struct {
	reader  MessageReader
	carts   CartClearer
	log     *zap.Logger
	backoff time.Duration
}

func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
}

func NewPoller(reader MessageReader, carts CartClearer, log *zap.Logger) *Poller {
	return &Poller{reader: reader, carts: carts, log: log, backoff: time.Second}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.getMessageAndEmptyCart(ctx); err != nil && ctx.Err() == nil {
			p.log.Error("error reading message", zap.Error(err))
			select {
			case <-time.After(p.backoff):
			case <-ctx.Done():
			}
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Error("error closing reader", zap.Error(err))
	}
}

// getMessageAndEmptyCart handles one message. Only read errors are
// returned; malformed or irrelevant messages are logged and skipped.
func (p *Poller) getMessageAndEmptyCart(ctx context.Context) error {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		return err
	}

	if eventType := header(m, "event_type"); eventType != domain.EventOrderSubmitted {
		return nil
	}

	var event domain.OrderSubmittedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		p.log.Warn("error parsing message", zap.ByteString("key", m.Key), zap.Error(err))
		return nil
	}
	log := p.log.With(zap.String("checkout_id", event.CheckoutID), zap.Int64("user_id", event.UserID))

	if !event.AllSucceeded {
		log.Info("order partially submitted, keeping cart")
		return nil
	}
	if event.UserID <= 0 {
		log.Warn("missing or invalid user id")
		return nil
	}

	cleared, err := p.carts.ClearCartIfUnchangedSince(ctx, event.UserID, event.SubmittedAt)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Error("failed to clear cart", zap.Error(err))
		}
		return nil
	}
	if !cleared {
		log.Debug("cart already cleared or changed after submission")
		return nil
	}
	log.Info("cart cleared after order submission")
	return nil
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
