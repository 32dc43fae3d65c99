// Package mongostore keeps audit log entries in a MongoDB collection. It is
// selected with AUDIT_STORE=mongo.
package mongostore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hr-service/internal/domain"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// auditLogDocument mirrors domain.AuditLogEntry. Field values are stored as
// structured BSON: an absent value has no key, an explicit null is BSON null.
type auditLogDocument struct {
	ID         string                `bson:"_id"`
	EntityID   string                `bson:"entityId"`
	EntityType string                `bson:"entityType"`
	ChangeType string                `bson:"changeType"`
	Changes    []fieldChangeDocument `bson:"changes"`
	UpdatedBy  string                `bson:"updatedBy"`
	UpdatedAt  time.Time             `bson:"updatedAt"`
}

type fieldChangeDocument struct {
	Field    string        `bson:"field"`
	OldValue bson.RawValue `bson:"oldValue"`
	NewValue bson.RawValue `bson:"newValue"`
}

type AuditLogStore struct {
	collection *mongo.Collection
}

func NewAuditLogStore(collection *mongo.Collection) *AuditLogStore {
	return &AuditLogStore{collection: collection}
}

// Connect opens a client for uri and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the indexes the read queries rely on.
func (s *AuditLogStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "entityId", Value: 1}, {Key: "updatedAt", Value: -1}}},
		{Keys: bson.D{{Key: "entityType", Value: 1}}},
		{Keys: bson.D{{Key: "updatedBy", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create audit log indexes: %w", err)
	}
	return nil
}

func (s *AuditLogStore) Append(ctx context.Context, entry *domain.AuditLogEntry) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	doc, err := toDocument(entry)
	if err != nil {
		return err
	}

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"entity_id":   entry.EntityID,
			"entity_type": entry.EntityType,
		}).Error("Failed to insert audit log into mongo")
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

func (s *AuditLogStore) FindLatestByEntity(ctx context.Context, entityID string) (*domain.AuditLogEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "updatedAt", Value: -1}})

	var doc auditLogDocument
	err := s.collection.FindOne(ctx, bson.D{{Key: "entityId", Value: entityID}}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrAuditLogNotFound
	}
	if err != nil {
		log.WithError(err).WithField("entity_id", entityID).Error("Failed to get audit log from mongo")
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}

	return fromDocument(doc)
}

func (s *AuditLogStore) ListByEntity(ctx context.Context, entityID, entityType string) ([]domain.AuditLogEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.D{
		{Key: "entityId", Value: entityID},
		{Key: "entityType", Value: entityType},
	}
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		log.WithError(err).WithField("entity_id", entityID).Error("Failed to list audit logs from mongo")
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []auditLogDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode audit logs: %w", err)
	}

	entries := make([]domain.AuditLogEntry, 0, len(docs))
	for _, doc := range docs {
		entry, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func toDocument(entry *domain.AuditLogEntry) (bson.D, error) {
	changes := make(bson.A, 0, len(entry.Changes))
	for _, c := range entry.Changes {
		change := bson.D{{Key: "field", Value: c.Field}}
		for _, side := range []struct {
			key   string
			value json.RawMessage
		}{{"oldValue", c.OldValue}, {"newValue", c.NewValue}} {
			if side.value == nil {
				continue
			}
			v, err := decodeJSONValue(side.value)
			if err != nil {
				return nil, fmt.Errorf("failed to encode %s of %q: %w", side.key, c.Field, err)
			}
			change = append(change, bson.E{Key: side.key, Value: v})
		}
		changes = append(changes, change)
	}

	return bson.D{
		{Key: "_id", Value: entry.ID},
		{Key: "entityId", Value: entry.EntityID},
		{Key: "entityType", Value: entry.EntityType},
		{Key: "changeType", Value: string(entry.ChangeType)},
		{Key: "changes", Value: changes},
		{Key: "updatedBy", Value: entry.UpdatedBy},
		{Key: "updatedAt", Value: entry.UpdatedAt},
	}, nil
}

func fromDocument(doc auditLogDocument) (*domain.AuditLogEntry, error) {
	changes := make([]domain.FieldChange, 0, len(doc.Changes))
	for _, c := range doc.Changes {
		oldValue, err := encodeJSONValue(c.OldValue)
		if err != nil {
			return nil, fmt.Errorf("failed to decode oldValue of %q: %w", c.Field, err)
		}
		newValue, err := encodeJSONValue(c.NewValue)
		if err != nil {
			return nil, fmt.Errorf("failed to decode newValue of %q: %w", c.Field, err)
		}
		changes = append(changes, domain.FieldChange{
			Field:    c.Field,
			OldValue: oldValue,
			NewValue: newValue,
		})
	}
	return &domain.AuditLogEntry{
		ID:         doc.ID,
		EntityID:   doc.EntityID,
		EntityType: doc.EntityType,
		ChangeType: domain.ChangeType(doc.ChangeType),
		Changes:    changes,
		UpdatedBy:  doc.UpdatedBy,
		UpdatedAt:  doc.UpdatedAt.UTC(),
	}, nil
}

// decodeJSONValue turns canonical JSON into a value the BSON encoder stores
// as a document, array or scalar. JSON null becomes BSON null.
func decodeJSONValue(raw json.RawMessage) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// encodeJSONValue returns the canonical JSON of a stored value, or nil when
// the key was not stored at all.
func encodeJSONValue(rv bson.RawValue) (json.RawMessage, error) {
	if rv.Type == 0 {
		return nil, nil
	}
	if rv.Type == bson.TypeNull {
		return json.RawMessage("null"), nil
	}

	ext, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: rv}}, false, false)
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		V interface{} `json:"v"`
	}
	dec := json.NewDecoder(bytes.NewReader(ext))
	dec.UseNumber()
	if err := dec.Decode(&wrapper); err != nil {
		return nil, err
	}
	return json.Marshal(wrapper.V)
}
