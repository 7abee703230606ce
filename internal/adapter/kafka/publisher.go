package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/aftershock-catalog/internal/config"
	"github.com/couchcryptid/aftershock-catalog/internal/domain"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces accepted aftershock records to a Kafka topic, one message
// per record. It implements pipeline.Loader.
type Publisher struct {
	writer messageWriter
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, clock: clockwork.NewRealClock(), logger: logger}
}

// Name identifies the loader in logs and metrics.
func (p *Publisher) Name() string { return "kafka" }

// Load publishes every record of the catalog in a single WriteMessages call.
// Records are keyed by event_id so corrections land on the same partition.
func (p *Publisher) Load(ctx context.Context, catalog domain.Catalog) error {
	if !catalog.Validated() {
		return domain.ErrUnvalidatedCatalog
	}
	if catalog.Len() == 0 {
		return nil
	}
	validatedAt := p.clock.Now()
	msgs := make([]kafkago.Message, catalog.Len())
	for i := range catalog.Records {
		msg, err := serializeToMessage(catalog.Records[i], catalog.Name, validatedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d records: %w", len(msgs), err)
	}
	p.logger.Debug("catalog published", "catalog", catalog.Name, "records", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an AftershockRecord into a Kafka message.
func serializeToMessage(rec domain.AftershockRecord, catalog string, validatedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize aftershock record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.EventID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "magnitude_type", Value: []byte(rec.MagnitudeType)},
			{Key: "catalog", Value: []byte(catalog)},
			{Key: "validated_at", Value: []byte(validatedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
