package ws

import (
	"encoding/json"
	"time"

	"autoliquid/internal/services/auction"
)

// Envelope wraps every WS frame.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "auctions/bid"
	Body  json.RawMessage `json:"body,omitempty"` // arbitrary JSON object
}

const (
	EventSnapshot = "auctions/snapshot"
	EventBid      = "auctions/bid"
	EventError    = "error"
)

// ──────────────────────────── Request / Response DTOs ─────────────────────────

// BidRequest is the body for "auctions/bid".
type BidRequest struct {
	Amount int64 `json:"amount"`
}

// BidAck is the body of "auctions/bid-ack".
type BidAck struct {
	BidID      string     `json:"bid_id"`
	CurrentBid int64      `json:"current_bid"`
	Extended   bool       `json:"extended"`
	NewEndTime *time.Time `json:"new_end_time,omitempty"`
}

// ErrorBody is returned for failures.
type ErrorBody struct {
	Error string `json:"error"`
}

// wrapEvent turns
//
//	{"event":"bid","auction_id":"a1","amount":110000,…}
//
// into
//
//	{"event":"auctions/bid","body":{"auction_id":"a1","amount":110000,…}}
func wrapEvent(e auction.Event) (Envelope, error) {
	name := string(e.Type)
	if name == "" {
		name = "unknown"
	}
	e.Type = "" // omitted from the body, it lives in the envelope
	body, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: "auctions/" + name, Body: body}, nil
}

func snapshotEnvelope(v *auction.AuctionView) (Envelope, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: EventSnapshot, Body: body}, nil
}
