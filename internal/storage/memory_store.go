package storage

import (
	"context"
	"sync"

	"github.com/tidwall/btree"
)

type memoryRecord struct {
	participantID string
	slot          Slot
	blob          []byte
}

func lessRecord(a, b memoryRecord) bool {
	if a.participantID != b.participantID {
		return a.participantID < b.participantID
	}
	return a.slot < b.slot
}

// MemoryStore keeps records in an ordered in-process tree. Used for tests and
// single-node demos.
type MemoryStore struct {
	mu      sync.RWMutex
	records *btree.BTreeG[memoryRecord]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: btree.NewBTreeGOptions(lessRecord, btree.Options{NoLocks: true}),
	}
}

func (m *MemoryStore) Load(_ context.Context, participantID string, slot Slot) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records.Get(memoryRecord{participantID: participantID, slot: slot})
	if !ok {
		return nil, ErrNotFound
	}
	return clone(rec.blob), nil
}

func (m *MemoryStore) Save(_ context.Context, participantID string, slot Slot, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records.Set(memoryRecord{participantID: participantID, slot: slot, blob: clone(blob)})
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, participantID string, slot Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records.Delete(memoryRecord{participantID: participantID, slot: slot})
	return nil
}

// Apply writes every mutation under a single lock.
func (m *MemoryStore) Apply(_ context.Context, mutations []Mutation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, mut := range mutations {
		key := memoryRecord{participantID: mut.ParticipantID, slot: mut.Slot}
		if mut.Delete {
			m.records.Delete(key)
			continue
		}
		key.blob = clone(mut.Blob)
		m.records.Set(key)
	}
	return nil
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records.Len()
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
