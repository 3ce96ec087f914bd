package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLStore(t *testing.T) *SQLStore {
	dsn := "file:" + uuid.New().String() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Record{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return NewSQLStore(db)
}

// plainStore hides any Batcher implementation of the wrapped store.
type plainStore struct {
	Store
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory":    NewMemoryStore(),
		"sql":       newSQLStore(t),
		"unbatched": plainStore{NewMemoryStore()},
	}
}

func TestStore_SaveLoadDelete(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Load(ctx, "p1", SlotInventory)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Save(ctx, "p1", SlotInventory, []byte(`{"a":1}`)))
			blob, err := store.Load(ctx, "p1", SlotInventory)
			require.NoError(t, err)
			assert.Equal(t, `{"a":1}`, string(blob))

			// replace
			require.NoError(t, store.Save(ctx, "p1", SlotInventory, []byte(`{"a":2}`)))
			blob, err = store.Load(ctx, "p1", SlotInventory)
			require.NoError(t, err)
			assert.Equal(t, `{"a":2}`, string(blob))

			// slots are independent
			_, err = store.Load(ctx, "p1", SlotPendingBid)
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = store.Load(ctx, "p2", SlotInventory)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Delete(ctx, "p1", SlotInventory))
			_, err = store.Load(ctx, "p1", SlotInventory)
			assert.ErrorIs(t, err, ErrNotFound)

			// deleting twice is fine
			require.NoError(t, store.Delete(ctx, "p1", SlotInventory))
		})
	}
}

func TestStore_Apply(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, "bidder", SlotPendingBid, []byte(`bid`)))

			err := Apply(ctx, store, []Mutation{
				{ParticipantID: "counterparty", Slot: SlotInventory, Blob: []byte(`c`)},
				{ParticipantID: "bidder", Slot: SlotInventory, Blob: []byte(`b`)},
				{ParticipantID: "bidder", Slot: SlotPendingBid, Delete: true},
			})
			require.NoError(t, err)

			blob, err := store.Load(ctx, "counterparty", SlotInventory)
			require.NoError(t, err)
			assert.Equal(t, "c", string(blob))

			blob, err = store.Load(ctx, "bidder", SlotInventory)
			require.NoError(t, err)
			assert.Equal(t, "b", string(blob))

			_, err = store.Load(ctx, "bidder", SlotPendingBid)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestMemoryStore_CopiesBlobs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	blob := []byte("abc")
	require.NoError(t, store.Save(ctx, "p1", SlotInventory, blob))
	blob[0] = 'x'

	loaded, err := store.Load(ctx, "p1", SlotInventory)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(loaded))

	loaded[1] = 'y'
	again, err := store.Load(ctx, "p1", SlotInventory)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
	assert.Equal(t, 1, store.Len())
}
