package domain

import (
	"errors"
	"time"
)

const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

var (
	ErrCandidateNotFound  = errors.New("candidate not found")
	ErrInvalidCandidateID = errors.New("invalid candidate ID")
	ErrEmptyCandidateData = errors.New("candidate data is empty")
	ErrActorRequired      = errors.New("actor is required")
)

// bookkeepingFields are managed by the service and never accepted from input.
var bookkeepingFields = []string{"id", "_id", "__v", "createdAt", "updatedAt", "updatedBy"}

// Candidate is a BD onboarding record. Business fields live in Data as a
// free-form document.
type Candidate struct {
	ID        string                 `json:"id"`
	Data      map[string]interface{} `json:"data"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
	UpdatedBy string                 `json:"updatedBy,omitempty"`
}

// Document returns the candidate as a flat field map, including bookkeeping
// fields, the way the record looks when loaded from the store.
func (c *Candidate) Document() map[string]interface{} {
	doc := make(map[string]interface{}, len(c.Data)+4)
	for k, v := range c.Data {
		doc[k] = v
	}
	doc["id"] = c.ID
	doc["createdAt"] = c.CreatedAt
	doc["updatedAt"] = c.UpdatedAt
	if c.UpdatedBy != "" {
		doc["updatedBy"] = c.UpdatedBy
	}
	return doc
}

// SanitizeCandidateData drops bookkeeping keys from client input.
func SanitizeCandidateData(data map[string]interface{}) map[string]interface{} {
	clean := make(map[string]interface{}, len(data))
	for k, v := range data {
		clean[k] = v
	}
	for _, k := range bookkeepingFields {
		delete(clean, k)
	}
	return clean
}

func ValidateCandidateData(data map[string]interface{}) error {
	if len(data) == 0 {
		return ErrEmptyCandidateData
	}
	return nil
}
