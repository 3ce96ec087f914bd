package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/Imellstorm/wptest/internal/bidding"
	"github.com/Imellstorm/wptest/internal/inventory"
	"github.com/Imellstorm/wptest/internal/settlement"
	"github.com/Imellstorm/wptest/internal/types"
)

// Client calls barter.v1.Barter. Domain failures come back as *types.Error,
// so callers match them with errors.Is like local calls.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out interface{}) error {
	var trailer metadata.MD
	err := c.cc.Invoke(ctx, method, in, out, grpc.CallContentSubtype(CodecName), grpc.Trailer(&trailer))
	if err == nil {
		return nil
	}

	kinds := trailer.Get(kindTrailer)
	if len(kinds) == 0 {
		return err
	}
	return &types.Error{Kind: types.ErrorKind(kinds[0]), Message: status.Convert(err).Message()}
}

func (c *Client) Generate(ctx context.Context, name string) (*inventory.Inventory, error) {
	out := new(inventory.Inventory)
	if err := c.invoke(ctx, MethodGenerate, &ParticipantRequest{Name: name}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetInventory(ctx context.Context, name string) (*inventory.Inventory, error) {
	out := new(inventory.Inventory)
	if err := c.invoke(ctx, MethodGetInventory, &ParticipantRequest{Name: name}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PlaceBid(ctx context.Context, name string, rawLines []byte) (*bidding.Bid, error) {
	out := new(bidding.Bid)
	if err := c.invoke(ctx, MethodPlaceBid, &PlaceBidRequest{Name: name, Items: rawLines}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListBids(ctx context.Context) ([]bidding.Listing, error) {
	out := new(ListBidsResponse)
	if err := c.invoke(ctx, MethodListBids, &ListBidsRequest{}, out); err != nil {
		return nil, err
	}
	return out.Bids, nil
}

func (c *Client) Settle(ctx context.Context, bidder, counterparty string, rawLines []byte) (*settlement.Result, error) {
	out := new(settlement.Result)
	req := &SettleRequest{Bidder: bidder, Counterparty: counterparty, Items: rawLines}
	if err := c.invoke(ctx, MethodSettle, req, out); err != nil {
		return nil, err
	}
	return out, nil
}
