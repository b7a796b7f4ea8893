// Package crm models the customer-relationship collaborator notified after a
// sanction. Updates are best effort for the caller's happy path.
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"greenlight/internal/domain"
)

// CustomerUpdate is the payload pushed to the CRM after sanction.
type CustomerUpdate struct {
	SessionID   string     `json:"session_id"`
	KFS         domain.KFS `json:"kfs"`
	DocumentRef string     `json:"document_ref"`
}

// Notifier pushes a customer update.
type Notifier interface {
	UpdateCustomer(ctx context.Context, update CustomerUpdate) error
}

// LogNotifier records the update in the application log. Used when no CRM
// transport is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) UpdateCustomer(ctx context.Context, update CustomerUpdate) error {
	n.logger.InfoContext(ctx, "crm customer update",
		"session_id", update.SessionID,
		"mandate_id", update.KFS.MandateID,
		"document_ref", update.DocumentRef,
	)
	return nil
}

// KafkaNotifier publishes customer updates to a Kafka topic consumed by the
// CRM integration. Keyed by session so updates for one customer stay ordered.
type KafkaNotifier struct {
	client *kgo.Client
	topic  string
}

func NewKafkaNotifier(brokers []string, topic string) (*KafkaNotifier, error) {
	client, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaNotifier{client: client, topic: topic}, nil
}

func (n *KafkaNotifier) UpdateCustomer(ctx context.Context, update CustomerUpdate) error {
	value, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal customer update: %w", err)
	}
	rec := &kgo.Record{
		Topic: n.topic,
		Key:   []byte(update.SessionID),
		Value: value,
	}
	if err := n.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("publish customer update: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() {
	n.client.Close()
}
