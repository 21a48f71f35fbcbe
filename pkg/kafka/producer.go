// Package kafka publishes import and search events
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/diogoqz/api-consulta-hotmart/pkg/metrics"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	"github.com/diogoqz/api-consulta-hotmart/pkg/tracing"
)

const (
	EventSalesImported    = "sales.imported"
	EventCustomerSearched = "customer.searched"
)

// Publisher emits domain events
type Publisher interface {
	PublishSalesImported(ctx context.Context, event *SalesImportedEvent) error
	PublishCustomerSearched(ctx context.Context, event *CustomerSearchedEvent) error
	Close() error
}

// SalesImportedEvent is emitted after an import wrote its rows
type SalesImportedEvent struct {
	EventType   string          `json:"event_type"`
	RunID       string          `json:"run_id"`
	Platform    models.Platform `json:"platform"`
	FileName    string          `json:"file_name"`
	Fingerprint string          `json:"fingerprint"`
	RowsRead    int             `json:"rows_read"`
	RowsSkipped int             `json:"rows_skipped"`
	RowsWritten int             `json:"rows_written"`
	Timestamp   time.Time       `json:"timestamp"`
}

// CustomerSearchedEvent is emitted after a search. The raw query is left out since it may hold
// an email or phone number.
type CustomerSearchedEvent struct {
	EventType         string    `json:"event_type"`
	SearchID          string    `json:"search_id"`
	Kind              string    `json:"kind"`
	TotalFound        int       `json:"total_found"`
	AvgRelevanceScore int       `json:"avg_relevance_score"`
	TopMatchReason    string    `json:"top_match_reason"`
	HighConfidence    int       `json:"high_confidence"`
	Timestamp         time.Time `json:"timestamp"`
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers        []string
	ImportTopic    string
	SearchTopic    string
	BatchSize      int
	BatchTimeout   time.Duration
	RequiredAcks   int
	Compression    string
	WriteTimeout   time.Duration
	AllowAutoTopic bool
}

// MessageWriter is the subset of kafka.Writer the producer needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles Kafka event emission
type Producer struct {
	writer      MessageWriter
	logger      ectologger.Logger
	importTopic string
	searchTopic string
	now         func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: cfg.AllowAutoTopic,
	}

	return NewProducerWithWriter(writer, cfg.ImportTopic, cfg.SearchTopic, logger)
}

// NewProducerWithWriter creates a producer over an existing writer. Topics default to the event names.
func NewProducerWithWriter(writer MessageWriter, importTopic, searchTopic string, logger ectologger.Logger) *Producer {
	if importTopic == "" {
		importTopic = EventSalesImported
	}
	if searchTopic == "" {
		searchTopic = EventCustomerSearched
	}
	return &Producer{
		writer:      writer,
		logger:      logger,
		importTopic: importTopic,
		searchTopic: searchTopic,
		now:         time.Now,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// PublishSalesImported publishes an import event keyed by platform
func (p *Producer) PublishSalesImported(ctx context.Context, event *SalesImportedEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishSalesImported")
	defer span.End()

	event.EventType = EventSalesImported
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now().UTC()
	}

	return p.publish(ctx, p.importTopic, string(event.Platform), event.EventType, event)
}

// PublishCustomerSearched publishes a search event keyed by search id
func (p *Producer) PublishCustomerSearched(ctx context.Context, event *CustomerSearchedEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishCustomerSearched")
	defer span.End()

	event.EventType = EventCustomerSearched
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now().UTC()
	}

	return p.publish(ctx, p.searchTopic, event.SearchID, event.EventType, event)
}

func (p *Producer) publish(ctx context.Context, topic, key, eventType string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	if traceParent := tracing.GetTraceParent(ctx); traceParent != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "traceparent", Value: []byte(traceParent)})
	}

	err = p.writer.WriteMessages(ctx, msg)
	metrics.RecordKafkaPublish(topic, err)
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Errorf("Failed to publish %s event", eventType)
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": eventType,
		"topic":      topic,
		"key":        key,
	}).Debug("Published event")

	return nil
}

// NoopPublisher drops every event. It is used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishSalesImported(context.Context, *SalesImportedEvent) error {
	return nil
}

func (NoopPublisher) PublishCustomerSearched(context.Context, *CustomerSearchedEvent) error {
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}
