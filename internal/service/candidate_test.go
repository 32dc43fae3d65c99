package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-service/internal/domain"
)

type candidateFixture struct {
	repo    *memoryCandidateRepo
	audit   *memoryAuditRepo
	service *candidateService
}

func newCandidateFixture() *candidateFixture {
	repo := newMemoryCandidateRepo()
	auditRepo := &memoryAuditRepo{}
	return &candidateFixture{
		repo:    repo,
		audit:   auditRepo,
		service: NewCandidateService(repo, NewAuditService(auditRepo, nil, nil, nil)),
	}
}

func (f *candidateFixture) seed(data map[string]interface{}) string {
	id := uuid.NewString()
	f.repo.candidates[id] = domain.Candidate{
		ID:        id,
		Data:      data,
		CreatedAt: time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC),
		UpdatedBy: "u0",
	}
	return id
}

func TestUpdateCandidate_RecordsFieldDiff(t *testing.T) {
	f := newCandidateFixture()
	id := f.seed(map[string]interface{}{
		"fullName": "Asha Rao",
		"stage":    "Real-Time Training",
		"loan":     false,
	})

	updated, err := f.service.UpdateCandidate(context.Background(), id, map[string]interface{}{
		"stage":     "Received Offer",
		"loan":      false,
		"updatedAt": "2030-01-01T00:00:00Z",
	}, "u1")
	require.NoError(t, err)

	assert.Equal(t, "Received Offer", updated.Data["stage"])
	assert.Equal(t, "Asha Rao", updated.Data["fullName"])
	assert.Equal(t, "u1", updated.UpdatedBy)

	require.Len(t, f.audit.entries, 1)
	entry := f.audit.entries[0]
	assert.Equal(t, id, entry.EntityID)
	assert.Equal(t, domain.EntityTypeCandidate, entry.EntityType)
	assert.Equal(t, domain.ChangeTypeUpdate, entry.ChangeType)
	assert.Equal(t, "u1", entry.UpdatedBy)
	assert.Equal(t, []domain.FieldChange{{
		Field:    "stage",
		OldValue: json.RawMessage(`"Real-Time Training"`),
		NewValue: json.RawMessage(`"Received Offer"`),
	}}, entry.Changes)
}

func TestUpdateCandidate_NoOpRecordsNothing(t *testing.T) {
	f := newCandidateFixture()
	id := f.seed(map[string]interface{}{
		"stage":  "Onboarding",
		"skills": []interface{}{"go", "sql"},
	})

	_, err := f.service.UpdateCandidate(context.Background(), id, map[string]interface{}{
		"stage":  "Onboarding",
		"skills": []interface{}{"go", "sql"},
	}, "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, f.repo.updates)
	assert.Empty(t, f.audit.entries)
}

func TestUpdateCandidate_AuditFailureDoesNotFailUpdate(t *testing.T) {
	f := newCandidateFixture()
	f.audit.appendErr = errStoreDown
	id := f.seed(map[string]interface{}{"stage": "Onboarding"})

	updated, err := f.service.UpdateCandidate(context.Background(), id, map[string]interface{}{"stage": "Marketing"}, "u1")

	require.NoError(t, err)
	assert.Equal(t, "Marketing", updated.Data["stage"])
	assert.Equal(t, "Marketing", f.repo.candidates[id].Data["stage"])
	assert.Empty(t, f.audit.entries)
}

func TestUpdateCandidate_StoreFailureSkipsAudit(t *testing.T) {
	f := newCandidateFixture()
	f.repo.updateErr = errStoreDown
	id := f.seed(map[string]interface{}{"stage": "Onboarding"})

	_, err := f.service.UpdateCandidate(context.Background(), id, map[string]interface{}{"stage": "Marketing"}, "u1")

	assert.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, f.audit.entries)
}

func TestUpdateCandidate_Validation(t *testing.T) {
	f := newCandidateFixture()
	id := f.seed(map[string]interface{}{"stage": "Onboarding"})

	cases := []struct {
		name    string
		id      string
		patch   map[string]interface{}
		actor   string
		wantErr error
	}{
		{"malformed id", "not-a-uuid", map[string]interface{}{"stage": "x"}, "u1", domain.ErrInvalidCandidateID},
		{"missing actor", id, map[string]interface{}{"stage": "x"}, "", domain.ErrActorRequired},
		{"only bookkeeping", id, map[string]interface{}{"_id": "x", "__v": 3}, "u1", domain.ErrEmptyCandidateData},
		{"unknown candidate", uuid.NewString(), map[string]interface{}{"stage": "x"}, "u1", domain.ErrCandidateNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.UpdateCandidate(context.Background(), tc.id, tc.patch, tc.actor)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
	assert.Empty(t, f.audit.entries)
}

func TestCreateCandidate_RecordsCreate(t *testing.T) {
	f := newCandidateFixture()

	created, err := f.service.CreateCandidate(context.Background(), map[string]interface{}{
		"fullName": "Asha Rao",
		"id":       "client-chosen",
	}, "u1")
	require.NoError(t, err)

	assert.NotEqual(t, "client-chosen", created.ID)
	assert.NotContains(t, created.Data, "id")

	require.Len(t, f.audit.entries, 1)
	entry := f.audit.entries[0]
	assert.Equal(t, domain.ChangeTypeCreate, entry.ChangeType)
	assert.Equal(t, created.ID, entry.EntityID)
	require.Len(t, entry.Changes, 1)
	assert.Equal(t, "fullName", entry.Changes[0].Field)
	assert.Nil(t, entry.Changes[0].OldValue)
	assert.JSONEq(t, `"Asha Rao"`, string(entry.Changes[0].NewValue))
}

func TestDeleteCandidate_RecordsDelete(t *testing.T) {
	f := newCandidateFixture()
	id := f.seed(map[string]interface{}{"fullName": "Asha Rao", "stage": "Onboarding"})

	require.NoError(t, f.service.DeleteCandidate(context.Background(), id, "u1"))

	assert.NotContains(t, f.repo.candidates, id)
	require.Len(t, f.audit.entries, 1)
	entry := f.audit.entries[0]
	assert.Equal(t, domain.ChangeTypeDelete, entry.ChangeType)
	require.Len(t, entry.Changes, 2)
	assert.Equal(t, "fullName", entry.Changes[0].Field)
	assert.Equal(t, "stage", entry.Changes[1].Field)
	for _, c := range entry.Changes {
		assert.NotNil(t, c.OldValue)
		assert.Nil(t, c.NewValue)
	}
}

func TestDeleteCandidate_NotFound(t *testing.T) {
	f := newCandidateFixture()

	err := f.service.DeleteCandidate(context.Background(), uuid.NewString(), "u1")

	assert.ErrorIs(t, err, domain.ErrCandidateNotFound)
	assert.Empty(t, f.audit.entries)
}

func TestListCandidates_ClampsLimit(t *testing.T) {
	f := newCandidateFixture()
	for i := 0; i < domain.MaxListLimit+5; i++ {
		f.seed(map[string]interface{}{"n": i})
	}

	all, err := f.service.ListCandidates(context.Background(), 1000, 0)
	require.NoError(t, err)
	assert.Len(t, all, domain.MaxListLimit)

	def, err := f.service.ListCandidates(context.Background(), 0, -3)
	require.NoError(t, err)
	assert.Len(t, def, domain.DefaultListLimit)
}
