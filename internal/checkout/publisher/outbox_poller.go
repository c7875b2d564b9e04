package publisher

import (
	"context"
	"time"

	r "github.com/looprex/checkout/internal/checkout/repository"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const batchSize = 100

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type EventStore interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*r.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

type StuckSessionRecoverer interface {
	RecoverStuckSessions(ctx context.Context, updatedBefore time.Time) (int, error)
}

type Config struct {
	EventTick    time.Duration
	RecoveryTick time.Duration
	// StuckAfter is how long a session may stay non-terminal before it is
	// failed by recovery.
	StuckAfter time.Duration
	// WriteTimeout bounds a single publish.
	WriteTimeout time.Duration
}

// OutboxPoller relays committed outbox events to Kafka and periodically
// recovers checkout sessions that never finished.
type OutboxPoller struct {
	cfg       Config
	repo      EventStore
	writer    MessageWriter
	recoverer StuckSessionRecoverer
	log       *zap.Logger
	now       func() time.Time
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

func NewOutboxPoller(repo EventStore, writer MessageWriter, recoverer StuckSessionRecoverer, log *zap.Logger, cfg Config) *OutboxPoller {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &OutboxPoller{
		cfg:       cfg,
		repo:      repo,
		writer:    writer,
		recoverer: recoverer,
		log:       log,
		now:       time.Now,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.cfg.EventTick)
	recoveryTicker := time.NewTicker(p.cfg.RecoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.recoverStuckSessions(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() {
	if err := p.writer.Close(); err != nil {
		p.log.Error("error closing writer", zap.Error(err))
	}
}

// processUnpublishedEvents publishes pending events in id order. It stops at
// the first failure so that events of one checkout are never reordered; the
// failed event is retried on the next tick.
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	events, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.log.Error("failed to fetch outbox events", zap.Error(err))
		return 0
	}

	published := 0
	for _, event := range events {
		log := p.log.With(
			zap.Int64("event_id", event.ID),
			zap.String("event_type", event.EventType),
			zap.String("checkout_id", event.AggregateID),
		)

		if err := p.publish(ctx, event); err != nil {
			log.Error("failed to publish event", zap.Error(err))
			return published
		}

		// a failure here means the event is published again later;
		// consumers treat events idempotently
		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			log.Error("failed to mark event as processed", zap.Error(err))
			return published
		}
		published++
		log.Debug("event published")
	}
	return published
}

func (p *OutboxPoller) recoverStuckSessions(ctx context.Context) {
	n, err := p.recoverer.RecoverStuckSessions(ctx, p.now().Add(-p.cfg.StuckAfter))
	if err != nil {
		p.log.Error("failed to recover stuck sessions", zap.Error(err))
		return
	}
	if n > 0 {
		p.log.Info("stuck sessions recovered", zap.Int("count", n))
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *r.OutboxEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.WriteTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // checkout id keeps a checkout's events on one partition
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
