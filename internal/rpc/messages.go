package rpc

import (
	"github.com/Imellstorm/wptest/internal/bidding"
	"github.com/Imellstorm/wptest/internal/types"
)

// ParticipantRequest addresses one participant by name
type ParticipantRequest struct {
	Name string `json:"name"`
}

type PlaceBidRequest struct {
	Name  string         `json:"name"`
	Items types.RawLines `json:"items"`
}

type ListBidsRequest struct{}

type ListBidsResponse struct {
	Bids []bidding.Listing `json:"bids"`
}

type SettleRequest struct {
	Bidder       string         `json:"bidder"`
	Counterparty string         `json:"counterparty"`
	Items        types.RawLines `json:"items"`
}
