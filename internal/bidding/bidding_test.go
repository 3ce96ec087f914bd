package bidding

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Imellstorm/wptest/internal/inventory"
	"github.com/Imellstorm/wptest/internal/locker"
	"github.com/Imellstorm/wptest/internal/metrics"
	"github.com/Imellstorm/wptest/internal/storage"
	"github.com/Imellstorm/wptest/internal/testutil"
	"github.com/Imellstorm/wptest/internal/types"
)

type fixture struct {
	svc   *Service
	store *storage.MemoryStore
	dir   *testutil.Directory
}

func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()
	store := storage.NewMemoryStore()
	dir := testutil.NewDirectory(names...)
	return &fixture{
		svc:   NewService(store, dir, locker.New(), metrics.NopMetrics()),
		store: store,
		dir:   dir,
	}
}

func (f *fixture) seed(t *testing.T, name string, lines ...inventory.Line) {
	t.Helper()
	inv := inventory.New()
	for _, l := range lines {
		require.NoError(t, inv.AddOrIncrement(l.Name, l.UnitPrice, l.Count))
	}
	db := inventory.NewDatabase(f.store)
	require.NoError(t, db.SaveInventory(context.Background(), f.dir.MustResolve(name).ID, inv))
}

func (f *fixture) load(t *testing.T, name string, slot storage.Slot) []byte {
	t.Helper()
	blob, err := f.store.Load(context.Background(), f.dir.MustResolve(name).ID, slot)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	require.NoError(t, err)
	return blob
}

var (
	water = inventory.Line{Name: "Water", UnitPrice: 1, Count: 3}
	shirt = inventory.Line{Name: "Shirt", UnitPrice: 3, Count: 2}
	dog   = inventory.Line{Name: "Dog", UnitPrice: 5, Count: 1}
)

func TestPlaceBid_Success(t *testing.T) {
	f := newFixture(t, "alice")
	f.seed(t, "alice", water, dog)
	before := f.load(t, "alice", storage.SlotInventory)

	bid, err := f.svc.PlaceBid(context.Background(), "alice", []byte(`[{"name":"water","count":2},{"name":"Dog","count":1}]`))
	require.NoError(t, err)

	assert.Equal(t, 7, bid.TotalValue)
	assert.Equal(t, []inventory.Line{
		{Name: "water", UnitPrice: 1, Count: 2},
		{Name: "Dog", UnitPrice: 5, Count: 1},
	}, bid.Lines)

	assert.Equal(t, before, f.load(t, "alice", storage.SlotInventory), "inventory must not change")

	stored, err := Unmarshal(f.load(t, "alice", storage.SlotPendingBid))
	require.NoError(t, err)
	assert.Equal(t, bid, stored)

	got, err := f.svc.GetBid(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, bid, got)
}

func TestPlaceBid_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		caller  string
		setup   func(t *testing.T, f *fixture)
		body    string
		wantErr error
	}{
		{
			name:    "unknown participant",
			caller:  "mallory",
			body:    `[{"name":"Water","count":1}]`,
			wantErr: types.ErrUnknownParticipant,
		},
		{
			name:    "no inventory beats malformed body",
			caller:  "alice",
			body:    `not json`,
			wantErr: types.ErrNoInventory,
		},
		{
			name:   "duplicate bid beats malformed body",
			caller: "alice",
			setup: func(t *testing.T, f *fixture) {
				f.seed(t, "alice", water)
				_, err := f.svc.PlaceBid(context.Background(), "alice", []byte(`[{"name":"Water","count":1}]`))
				require.NoError(t, err)
			},
			body:    `not json`,
			wantErr: types.ErrDuplicateBid,
		},
		{
			name:    "malformed body",
			caller:  "alice",
			setup:   func(t *testing.T, f *fixture) { f.seed(t, "alice", water) },
			body:    `[{"name":"Water","count":0}]`,
			wantErr: types.ErrMalformedInput,
		},
		{
			name:    "empty list",
			caller:  "alice",
			setup:   func(t *testing.T, f *fixture) { f.seed(t, "alice", water) },
			body:    `[]`,
			wantErr: types.ErrMalformedInput,
		},
		{
			name:    "item not held",
			caller:  "alice",
			setup:   func(t *testing.T, f *fixture) { f.seed(t, "alice", water) },
			body:    `[{"name":"Soup","count":1}]`,
			wantErr: types.ErrUnknownItem,
		},
		{
			name:    "more than held",
			caller:  "alice",
			setup:   func(t *testing.T, f *fixture) { f.seed(t, "alice", water) },
			body:    `[{"name":"Water","count":4}]`,
			wantErr: types.ErrInsufficientQuantity,
		},
		{
			name:    "repeated kind over held in total",
			caller:  "alice",
			setup:   func(t *testing.T, f *fixture) { f.seed(t, "alice", water) },
			body:    `[{"name":"Water","count":2},{"name":"WATER","count":2}]`,
			wantErr: types.ErrInsufficientQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "alice")
			if tt.setup != nil {
				tt.setup(t, f)
			}
			var beforeBid []byte
			if tt.caller == "alice" {
				beforeBid = f.load(t, "alice", storage.SlotPendingBid)
			}

			_, err := f.svc.PlaceBid(context.Background(), tt.caller, []byte(tt.body))
			assert.ErrorIs(t, err, tt.wantErr)

			if tt.caller == "alice" {
				assert.Equal(t, beforeBid, f.load(t, "alice", storage.SlotPendingBid))
			}
		})
	}
}

func TestPlaceBid_RepeatedKindWithinHolding(t *testing.T) {
	f := newFixture(t, "alice")
	f.seed(t, "alice", water)

	bid, err := f.svc.PlaceBid(context.Background(), "alice", []byte(`[{"name":"Water","count":1},{"name":"water","count":2}]`))
	require.NoError(t, err)
	assert.Equal(t, 3, bid.TotalValue)
	assert.Len(t, bid.Lines, 2)
}

func TestPlaceBid_ConcurrentPlacesOne(t *testing.T) {
	f := newFixture(t, "alice")
	f.seed(t, "alice", water, shirt)

	var placed, duplicate atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.PlaceBid(context.Background(), "alice", []byte(`[{"name":"Shirt","count":1}]`))
			switch {
			case err == nil:
				placed.Add(1)
			case errors.Is(err, types.ErrDuplicateBid):
				duplicate.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), placed.Load())
	assert.Equal(t, int32(19), duplicate.Load())
}

func TestGetBid_NoBid(t *testing.T) {
	f := newFixture(t, "alice")
	f.seed(t, "alice", water)

	_, err := f.svc.GetBid(context.Background(), "alice")
	assert.ErrorIs(t, err, types.ErrNoBid)
}

func TestListBids(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	f.seed(t, "alice", water)
	f.seed(t, "bob", shirt)
	f.seed(t, "carol", dog)

	listings, err := f.svc.ListBids(context.Background())
	require.NoError(t, err)
	assert.Empty(t, listings)

	_, err = f.svc.PlaceBid(context.Background(), "carol", []byte(`[{"name":"Dog","count":1}]`))
	require.NoError(t, err)
	_, err = f.svc.PlaceBid(context.Background(), "alice", []byte(`[{"name":"Water","count":1}]`))
	require.NoError(t, err)

	listings, err = f.svc.ListBids(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "alice", listings[0].Participant)
	assert.Equal(t, 1, listings[0].Bid.TotalValue)
	assert.Equal(t, "carol", listings[1].Participant)
	assert.Equal(t, 5, listings[1].Bid.TotalValue)
}

func TestPlaceBidHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t, "alice")
	f.seed(t, "alice", water)

	router := gin.New()
	handlers := NewGinHandlers(f.svc)
	router.POST("/participants/:name/bid", handlers.PlaceBidHandler())
	router.GET("/bids", handlers.ListBidsHandler())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/participants/alice/bid", strings.NewReader(`[{"name":"Water","count":2}]`))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"total_value":2`)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/participants/alice/bid", strings.NewReader(`[{"name":"Water","count":1}]`))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), string(types.KindDuplicateBid))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/bids", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"participant":"alice"`)
}
