package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryGateway is an in-process Gateway used for demo mode and tests.
// Transactions stage their writes and apply them atomically on Commit,
// matching the Postgres gateway's begin/commit/rollback semantics.
type MemoryGateway struct {
	mu         sync.Mutex
	activities map[int64]*Activity
	rels       []Relationship
}

var _ Gateway = (*MemoryGateway)(nil)

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		activities: make(map[int64]*Activity, 32),
	}
}

// SeedActivity inserts or replaces an activity.
func (g *MemoryGateway) SeedActivity(a Activity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	clone := a
	g.activities[a.ID] = &clone
}

// SeedRelationship appends a predecessor/successor link.
func (g *MemoryGateway) SeedRelationship(r Relationship) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rels = append(g.rels, r)
}

func (g *MemoryGateway) ReadActivity(_ context.Context, id int64) (*Activity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	a, ok := g.activities[id]
	if !ok {
		return nil, fmt.Errorf("%w: id=%d", ErrActivityNotFound, id)
	}
	clone := *a
	return &clone, nil
}

func (g *MemoryGateway) ListActivities(_ context.Context, projectID int64) ([]Activity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []Activity
	for _, a := range g.activities {
		if a.ProjectID == projectID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g *MemoryGateway) ListRelationships(_ context.Context, projectID int64) ([]Relationship, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []Relationship
	for _, r := range g.rels {
		pred, ok := g.activities[r.PredecessorID]
		if ok && pred.ProjectID == projectID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (g *MemoryGateway) Begin(_ context.Context) (Tx, error) {
	return &memoryTx{gw: g}, nil
}

type stagedChange struct {
	id      int64
	changes map[string]any
}

type memoryTx struct {
	gw     *MemoryGateway
	staged []stagedChange
	closed bool
}

func (t *memoryTx) UpdateActivity(_ context.Context, id int64, changes map[string]any) error {
	if t.closed {
		return fmt.Errorf("transaction already closed")
	}
	if len(changes) == 0 {
		return fmt.Errorf("%w: empty change set", ErrBadFieldValue)
	}

	t.gw.mu.Lock()
	_, exists := t.gw.activities[id]
	t.gw.mu.Unlock()
	if !exists {
		return fmt.Errorf("%w: id=%d", ErrActivityNotFound, id)
	}

	coerced := make(map[string]any, len(changes))
	for field, value := range changes {
		v, err := CoerceFieldValue(field, value)
		if err != nil {
			return err
		}
		coerced[field] = v
	}

	t.staged = append(t.staged, stagedChange{id: id, changes: coerced})
	return nil
}

func (t *memoryTx) Commit() error {
	if t.closed {
		return fmt.Errorf("transaction already closed")
	}
	t.closed = true

	t.gw.mu.Lock()
	defer t.gw.mu.Unlock()

	for _, sc := range t.staged {
		a, ok := t.gw.activities[sc.id]
		if !ok {
			return fmt.Errorf("%w: id=%d", ErrActivityNotFound, sc.id)
		}
		for field, value := range sc.changes {
			applyField(a, field, value)
		}
	}
	return nil
}

func (t *memoryTx) Rollback() error {
	t.closed = true
	t.staged = nil
	return nil
}

func applyField(a *Activity, field string, value any) {
	switch field {
	case FieldName:
		a.Name = value.(string)
	case FieldDurationHours:
		a.DurationHours = value.(float64)
	case FieldVolume:
		v := value.(float64)
		a.Volume = &v
	case FieldProductionRate:
		v := value.(float64)
		a.ProductionRate = &v
	}
}
