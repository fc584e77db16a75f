package fitstore

import (
	"context"
	"sort"
	"sync"

	"github.com/matzehuels/tryon/pkg/fit"
)

// Memory is an in-process [Store].
type Memory struct {
	mu   sync.RWMutex
	recs map[fit.Key]fit.Record
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{recs: make(map[fit.Key]fit.Record)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Fetch(_ context.Context, user, poseID string, itemIDs []string) ([]fit.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []fit.Record
	for _, id := range itemIDs {
		if r, ok := m.recs[fit.Key{User: user, Pose: poseID, Item: id}]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) Upsert(_ context.Context, rec fit.Record) (fit.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec = Merge(m.recs[rec.Key()], rec)
	m.recs[rec.Key()] = rec
	return rec, nil
}

func (m *Memory) Delete(_ context.Context, key fit.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, key)
	return nil
}

// All returns every record sorted by user, pose and item.
func (m *Memory) All() []fit.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]fit.Record, 0, len(m.recs))
	for _, r := range m.recs {
		out = append(out, r)
	}
	sortRecords(out)
	return out
}

func (m *Memory) Close() error { return nil }

func sortRecords(recs []fit.Record) {
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		if a.PoseID != b.PoseID {
			return a.PoseID < b.PoseID
		}
		return a.ItemID < b.ItemID
	})
}

var _ Store = (*Memory)(nil)
