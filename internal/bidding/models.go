package bidding

import (
	"encoding/json"

	"github.com/Imellstorm/wptest/internal/inventory"
)

// Bid is a participant's pending offer of their own items. The lines are a
// reservation only; the bidder's inventory is not touched until settlement.
type Bid struct {
	TotalValue int              `json:"total_value"`
	Lines      []inventory.Line `json:"lines"`
}

// Listing pairs a pending bid with its owner.
type Listing struct {
	Participant string `json:"participant"`
	Bid         *Bid   `json:"bid"`
}

// Marshal serializes a bid in the same layout as an inventory.
func Marshal(bid *Bid) ([]byte, error) {
	if err := inventory.CheckLines(bid.Lines, bid.TotalValue); err != nil {
		return nil, err
	}
	return json.Marshal(bid)
}

// Unmarshal decodes and validates a stored bid. A bid may list one kind on
// several lines, mirroring the request that created it.
func Unmarshal(data []byte) (*Bid, error) {
	var bid Bid
	if err := inventory.DecodeStrict(data, &bid); err != nil {
		return nil, err
	}
	if err := inventory.CheckLines(bid.Lines, bid.TotalValue); err != nil {
		return nil, err
	}
	return &bid, nil
}
