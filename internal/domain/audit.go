package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// Audit errors
var (
	ErrAuditLogNotFound = errors.New("no audit logs found")
	ErrPersistence      = errors.New("audit log persistence failed")
	ErrInvalidEntityID  = errors.New("entity ID is required")
	ErrInvalidChange    = errors.New("unknown change type")
)

// EntityTypeCandidate is the discriminator used for BD candidate records.
const EntityTypeCandidate = "Candidate"

type ChangeType string

const (
	ChangeTypeCreate ChangeType = "CREATE"
	ChangeTypeUpdate ChangeType = "UPDATE"
	ChangeTypeDelete ChangeType = "DELETE"
)

func (t ChangeType) Valid() bool {
	switch t {
	case ChangeTypeCreate, ChangeTypeUpdate, ChangeTypeDelete:
		return true
	}
	return false
}

// FieldChange holds one field's before/after pair. A nil value means the key
// was absent on that side; a present key holding null is the literal "null".
type FieldChange struct {
	Field    string          `json:"field"`
	OldValue json.RawMessage `json:"oldValue,omitempty"`
	NewValue json.RawMessage `json:"newValue,omitempty"`
}

// ActorRef is the public projection of the user who made a change.
type ActorRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type AuditLogEntry struct {
	ID         string        `json:"id"`
	EntityID   string        `json:"entityId"`
	EntityType string        `json:"entityType"`
	ChangeType ChangeType    `json:"changeType"`
	Changes    []FieldChange `json:"changes"`
	UpdatedBy  string        `json:"updatedBy"`
	Actor      *ActorRef     `json:"actor,omitempty"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// AuditEvent is the message fanned out to the audit topic for every entry.
type AuditEvent struct {
	Service    string                 `json:"service"`
	EventType  string                 `json:"event_type"`
	EntityID   string                 `json:"entity_id"`
	EntityType string                 `json:"entity_type"`
	Actor      string                 `json:"actor,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload"`
}
