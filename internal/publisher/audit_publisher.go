package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hr-service/internal/config"
	"hr-service/internal/domain"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	log "github.com/sirupsen/logrus"
)

// AuditPublisher fans recorded audit entries out to a Kafka topic, keyed by
// entity so every entity's history stays on one partition.
type AuditPublisher struct {
	producer        *kafka.Producer
	topic           string
	deliveryTimeout time.Duration
}

func NewAuditPublisher(cfg config.Kafka) (*AuditPublisher, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"client.id":         cfg.ClientID,
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.WithFields(log.Fields{
		"brokers": cfg.Brokers,
		"topic":   cfg.Topic,
	}).Info("Audit Kafka producer created")

	return &AuditPublisher{
		producer:        p,
		topic:           cfg.Topic,
		deliveryTimeout: cfg.DeliveryTimeout,
	}, nil
}

func (p *AuditPublisher) Publish(ctx context.Context, event domain.AuditEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	deliveryChan := make(chan kafka.Event, 1)

	if err := p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.EntityID),
		Value:          payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "entity_type", Value: []byte(event.EntityType)},
		},
	}, deliveryChan); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	timeout := p.deliveryTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	select {
	case e := <-deliveryChan:
		msg, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected event type: %T", e)
		}
		if msg.TopicPartition.Error != nil {
			return fmt.Errorf("delivery failed: %w", msg.TopicPartition.Error)
		}
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("delivery timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *AuditPublisher) Close() {
	log.Info("Closing audit Kafka producer...")
	p.producer.Flush(15 * 1000)
	p.producer.Close()
}

// EventFromEntry builds the fan-out event for a persisted audit entry.
func EventFromEntry(entry *domain.AuditLogEntry) domain.AuditEvent {
	return domain.AuditEvent{
		Service:    "hr-service",
		EventType:  "audit." + string(entry.ChangeType),
		EntityID:   entry.EntityID,
		EntityType: entry.EntityType,
		Actor:      entry.UpdatedBy,
		OccurredAt: entry.UpdatedAt,
		Payload: map[string]interface{}{
			"audit_log_id": entry.ID,
			"changes":      entry.Changes,
		},
	}
}
