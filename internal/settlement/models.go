package settlement

import (
	"time"

	"github.com/Imellstorm/wptest/internal/inventory"
	"github.com/Imellstorm/wptest/internal/types"
)

// Result describes a settled trade. Lines and TotalValue are the offer the
// bidder received.
type Result struct {
	SettlementID string           `json:"settlement_id"`
	Bidder       string           `json:"bidder"`
	Counterparty string           `json:"counterparty"`
	TotalValue   int              `json:"total_value"`
	Lines        []inventory.Line `json:"lines"`
	SettledAt    time.Time        `json:"settled_at"`
}

// TradeRequest is the body of POST /trades. Items is the offered line list,
// as a JSON string or a bare array.
type TradeRequest struct {
	Bidder       string         `json:"bidder" binding:"required"`
	Counterparty string         `json:"counterparty" binding:"required"`
	Items        types.RawLines `json:"items"`
}
