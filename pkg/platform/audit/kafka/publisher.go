// Package kafka publishes audit events to the audit topics. Kafka is the
// source of truth for the audit trail; postgres outbox rows are staging.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "vigil/pkg/platform/audit"
)

// TopicFor maps an event category to its Kafka topic.
func TopicFor(category audit.EventCategory) string {
	return "vigil.audit." + string(category)
}

// Publisher produces audit payloads to category topics.
type Publisher struct {
	client *kgo.Client
}

// NewPublisher connects to the given brokers and ensures the audit topics
// exist. A single partition per topic preserves per-category ordering.
func NewPublisher(ctx context.Context, brokers []string) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopics(ctx, client); err != nil {
		client.Close()
		return nil, err
	}
	return &Publisher{client: client}, nil
}

func ensureTopics(ctx context.Context, client *kgo.Client) error {
	adm := kadm.NewClient(client)
	topics := []string{
		TopicFor(audit.CategoryCompliance),
		TopicFor(audit.CategorySecurity),
		TopicFor(audit.CategoryOperations),
	}
	resps, err := adm.CreateTopics(ctx, 1, 1, nil, topics...)
	if err != nil {
		return fmt.Errorf("create audit topics: %w", err)
	}
	for _, resp := range resps.Sorted() {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", resp.Topic, resp.Err)
		}
	}
	return nil
}

// Publish produces one audit payload. The key is the aggregate ID so all
// events for a visit land in order on the same partition.
func (p *Publisher) Publish(ctx context.Context, category audit.EventCategory, aggregateID string, payload []byte) error {
	record := &kgo.Record{
		Topic: TopicFor(category),
		Key:   []byte(aggregateID),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes and releases the Kafka client.
func (p *Publisher) Close() {
	p.client.Close()
}
