package views

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/linkscope/pkg/graph"
)

// MemoryRepository keeps views in a map. Records are deep-copied on the
// way in and out.
type MemoryRepository struct {
	mu    sync.RWMutex
	views map[string]Record
	now   func() time.Time
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{views: make(map[string]Record), now: time.Now}
}

func (r *MemoryRepository) Create(ctx context.Context, rec Record) (string, error) {
	rec = cloneRecord(rec)
	rec.ID = uuid.NewString()
	rec.CreatedAt = r.now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.views[rec.ID] = rec
	return rec.ID, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.views[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Summary, 0, len(r.views))
	for _, rec := range r.views {
		out = append(out, rec.Summary())
	}
	sortSummaries(out)
	return out, nil
}

func cloneRecord(rec Record) Record {
	out := rec
	out.Nodes = make([]graph.Node, len(rec.Nodes))
	for i, n := range rec.Nodes {
		if n.Position != nil {
			p := *n.Position
			n.Position = &p
		}
		out.Nodes[i] = n
	}
	out.Edges = append([]graph.Edge(nil), rec.Edges...)
	out.Positions = rec.Positions.Clone()
	return out
}

var _ Repository = (*MemoryRepository)(nil)
