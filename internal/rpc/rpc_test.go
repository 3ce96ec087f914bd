package rpc

import (
	"context"
	"math/rand"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/Imellstorm/wptest/internal/bidding"
	"github.com/Imellstorm/wptest/internal/catalog"
	"github.com/Imellstorm/wptest/internal/inventory"
	"github.com/Imellstorm/wptest/internal/metrics"
	"github.com/Imellstorm/wptest/internal/storage"
	"github.com/Imellstorm/wptest/internal/testutil"
	"github.com/Imellstorm/wptest/internal/trade"
	"github.com/Imellstorm/wptest/internal/types"
)

// registry adds the write side to the in-memory directory
type registry struct {
	*testutil.Directory
}

func (r registry) Create(_ context.Context, name string) (*types.Participant, error) {
	p := r.Add(name)
	return &p, nil
}

func dial(t *testing.T, names ...string) *Client {
	cat, err := catalog.New(catalog.ItemKind{Name: "Water", UnitPrice: 1})
	require.NoError(t, err)
	gen, err := inventory.NewGenerator(cat, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	svc := trade.New(registry{testutil.NewDirectory(names...)}, storage.NewMemoryStore(), gen, metrics.NopMetrics())

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(svc)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewClient(conn)
}

func TestBarterOverGRPC(t *testing.T) {
	client := dial(t, "alice", "bob")
	ctx := context.Background()

	alice, err := client.Generate(ctx, "alice")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, alice.Count("Water"), 3)
	_, err = client.Generate(ctx, "bob")
	require.NoError(t, err)

	_, err = client.Generate(ctx, "alice")
	assert.ErrorIs(t, err, types.ErrAlreadyExists)

	bid, err := client.PlaceBid(ctx, "alice", []byte(`[{"name":"Water","count":2}]`))
	require.NoError(t, err)
	assert.Equal(t, 2, bid.TotalValue)

	bids, err := client.ListBids(ctx)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.Equal(t, "alice", bids[0].Participant)

	_, err = client.Settle(ctx, "alice", "bob", []byte(`[{"name":"Water","count":1}]`))
	assert.ErrorIs(t, err, types.ErrOfferTooLow)

	result, err := client.Settle(ctx, "alice", "bob", []byte(`[{"name":"Water","count":2}]`))
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalValue)

	got, err := client.GetInventory(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice, got)
}

func TestErrorsCarryCodes(t *testing.T) {
	client := dial(t, "alice")
	ctx := context.Background()

	_, err := client.GetInventory(ctx, "mallory")
	assert.ErrorIs(t, err, types.ErrUnknownParticipant)

	_, err = client.GetInventory(ctx, "alice")
	assert.ErrorIs(t, err, types.ErrNoInventory)

	_, err = client.Generate(ctx, "alice")
	require.NoError(t, err)
	_, err = client.PlaceBid(ctx, "alice", []byte(`{"name":"Water"}`))
	assert.ErrorIs(t, err, types.ErrMalformedInput)

	// a raw call sees the plain status
	var out inventory.Inventory
	err = client.cc.Invoke(ctx, MethodGetInventory, &ParticipantRequest{Name: "mallory"}, &out, grpc.CallContentSubtype(CodecName))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestBrokenItemsFailAfterParticipantChecks(t *testing.T) {
	client := dial(t, "alice", "bob")
	ctx := context.Background()
	broken := []byte(`[{"name":"Water","count":1}`)

	_, err := client.PlaceBid(ctx, "alice", broken)
	assert.ErrorIs(t, err, types.ErrNoInventory)

	_, err = client.Settle(ctx, "ghost", "bob", broken)
	assert.ErrorIs(t, err, types.ErrUnknownParticipant)

	_, err = client.Settle(ctx, "alice", "bob", broken)
	assert.ErrorIs(t, err, types.ErrNoBid)

	_, err = client.Generate(ctx, "alice")
	require.NoError(t, err)
	var bid bidding.Bid
	err = client.cc.Invoke(ctx, MethodPlaceBid, &PlaceBidRequest{Name: "alice", Items: broken}, &bid, grpc.CallContentSubtype(CodecName))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestCodeFor(t *testing.T) {
	assert.Equal(t, codes.NotFound, CodeFor(types.KindNoBid))
	assert.Equal(t, codes.AlreadyExists, CodeFor(types.KindDuplicateBid))
	assert.Equal(t, codes.InvalidArgument, CodeFor(types.KindMalformedInput))
	assert.Equal(t, codes.Unauthenticated, CodeFor(types.KindInvalidCredentials))
	assert.Equal(t, codes.FailedPrecondition, CodeFor(types.KindOfferTooLow))
	assert.Equal(t, codes.Internal, CodeFor("SOMETHING_ELSE"))
}
