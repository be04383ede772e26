package auction

import (
	"context"
	"time"
)

type EventType string

const (
	EventBid      EventType = "bid"
	EventExtended EventType = "extended"
	EventEnded    EventType = "ended"
)

// Event is one committed state change as seen by watching dealers. It
// carries display names only; dealer ids and the reserve never appear here.
type Event struct {
	Type      EventType `json:"event,omitempty"`
	AuctionID string    `json:"auction_id"`
	Version   int64     `json:"version"`

	// bid
	Amount            int64      `json:"amount,omitempty"`
	DealerDisplayName string     `json:"dealer_display_name,omitempty"`
	PlacedAt          *time.Time `json:"placed_at,omitempty"`
	CurrentBid        int64      `json:"current_bid,omitempty"`
	TotalBids         int64      `json:"total_bids,omitempty"`

	// extended
	NewEndTime *time.Time `json:"new_end_time,omitempty"`

	// ended
	Outcome           Status `json:"outcome,omitempty"`
	WinnerDisplayName string `json:"winner_display_name,omitempty"`
}

func NewBidEvent(a *Auction, b *Bid) Event {
	at := b.PlacedAt.UTC()
	return Event{
		Type:              EventBid,
		AuctionID:         a.ID,
		Version:           a.Version,
		Amount:            b.Amount,
		DealerDisplayName: b.DealerDisplayName,
		PlacedAt:          &at,
		CurrentBid:        a.CurrentBid,
		TotalBids:         a.TotalBids,
	}
}

func NewExtendedEvent(a *Auction) Event {
	end := a.EndTime.UTC()
	return Event{
		Type:       EventExtended,
		AuctionID:  a.ID,
		Version:    a.Version,
		NewEndTime: &end,
	}
}

func NewEndedEvent(a *Auction) Event {
	e := Event{
		Type:      EventEnded,
		AuctionID: a.ID,
		Version:   a.Version,
		Outcome:   a.Status,
	}
	if a.Status == StatusSold {
		e.WinnerDisplayName = a.WinnerDisplayName
	}
	return e
}

// Publisher fans committed events out to subscribers of an auction.
type Publisher interface {
	Publish(ctx context.Context, auctionID string, e Event) error
}
