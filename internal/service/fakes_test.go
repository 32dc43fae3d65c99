package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"hr-service/internal/domain"
)

var errStoreDown = errors.New("connection refused")

type memoryAuditRepo struct {
	mu        sync.Mutex
	entries   []domain.AuditLogEntry
	appendErr error
	readErr   error
}

func (r *memoryAuditRepo) Append(_ context.Context, entry *domain.AuditLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memoryAuditRepo) FindLatestByEntity(_ context.Context, entityID string) (*domain.AuditLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readErr != nil {
		return nil, r.readErr
	}
	var latest *domain.AuditLogEntry
	for i := range r.entries {
		e := r.entries[i]
		if e.EntityID != entityID {
			continue
		}
		if latest == nil || e.UpdatedAt.After(latest.UpdatedAt) {
			latest = &e
		}
	}
	if latest == nil {
		return nil, domain.ErrAuditLogNotFound
	}
	return latest, nil
}

// ListByEntity returns matches in insertion order.
func (r *memoryAuditRepo) ListByEntity(_ context.Context, entityID, entityType string) ([]domain.AuditLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readErr != nil {
		return nil, r.readErr
	}
	var out []domain.AuditLogEntry
	for _, e := range r.entries {
		if e.EntityID == entityID && e.EntityType == entityType {
			out = append(out, e)
		}
	}
	return out, nil
}

type memoryActors struct {
	actors  map[string]domain.ActorRef
	err     error
	lookups [][]string
}

func (a *memoryActors) FindActors(_ context.Context, ids []string) (map[string]domain.ActorRef, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	a.lookups = append(a.lookups, sorted)
	if a.err != nil {
		return nil, a.err
	}
	out := make(map[string]domain.ActorRef)
	for _, id := range ids {
		if ref, ok := a.actors[id]; ok {
			out[id] = ref
		}
	}
	return out, nil
}

type recordingPublisher struct {
	events []domain.AuditEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.AuditEvent) error {
	p.events = append(p.events, event)
	return p.err
}

type memoryCandidateRepo struct {
	candidates map[string]domain.Candidate
	updateErr  error
	updates    int
}

func newMemoryCandidateRepo() *memoryCandidateRepo {
	return &memoryCandidateRepo{candidates: map[string]domain.Candidate{}}
}

func (r *memoryCandidateRepo) List(_ context.Context, limit, offset int) ([]domain.Candidate, error) {
	var out []domain.Candidate
	for _, c := range r.candidates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryCandidateRepo) GetByID(_ context.Context, id string) (*domain.Candidate, error) {
	c, ok := r.candidates[id]
	if !ok {
		return nil, domain.ErrCandidateNotFound
	}
	data := make(map[string]interface{}, len(c.Data))
	for k, v := range c.Data {
		data[k] = v
	}
	c.Data = data
	return &c, nil
}

func (r *memoryCandidateRepo) Create(_ context.Context, c *domain.Candidate) error {
	r.candidates[c.ID] = *c
	return nil
}

func (r *memoryCandidateRepo) Update(_ context.Context, c *domain.Candidate) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.candidates[c.ID]; !ok {
		return domain.ErrCandidateNotFound
	}
	r.updates++
	r.candidates[c.ID] = *c
	return nil
}

func (r *memoryCandidateRepo) Delete(_ context.Context, id string) (*domain.Candidate, error) {
	c, ok := r.candidates[id]
	if !ok {
		return nil, domain.ErrCandidateNotFound
	}
	delete(r.candidates, id)
	return &c, nil
}
