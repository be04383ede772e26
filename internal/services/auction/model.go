package auction

import (
	"math"
	"time"
)

// MaxAmount bounds every rupee amount the engine accepts (₹1 lakh crore).
const MaxAmount int64 = 1_000_000_000_000

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusLive      Status = "LIVE"
	StatusEnded     Status = "ENDED"
	StatusCancelled Status = "CANCELLED"
	StatusSold      Status = "SOLD"
	StatusUnsold    Status = "UNSOLD"
)

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCancelled, StatusSold, StatusUnsold:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusLive, StatusEnded, StatusCancelled, StatusSold, StatusUnsold:
		return true
	}
	return false
}

// CarDetails is the vehicle snapshot copied from the inspection report when
// the auction is created. It is never re-read afterwards.
type CarDetails struct {
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	Variant      string `json:"variant"`
	Year         int    `json:"year"`
	Registration string `json:"registration"`
}

// Auction is the stored record. ReservePrice and WinnerID never leave the
// service boundary; use View for anything external.
type Auction struct {
	ID                 string
	InspectionReportID string
	Car                CarDetails
	StartTime          time.Time
	EndTime            time.Time
	StartingBid        int64
	CurrentBid         int64
	ReservePrice       int64
	MinIncrement       int64
	Status             Status
	TotalBids          int64
	WinnerID           string
	WinnerDisplayName  string
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// MinimumNextBid is the smallest amount the next bid may carry. It saturates
// instead of wrapping.
func (a *Auction) MinimumNextBid() int64 {
	if a.CurrentBid > math.MaxInt64-a.MinIncrement {
		return math.MaxInt64
	}
	return a.CurrentBid + a.MinIncrement
}

// Accepts reports whether amount clears the floor. Both operands are
// non-negative, so the subtraction cannot overflow.
func (a *Auction) Accepts(amount int64) bool {
	return amount-a.CurrentBid >= a.MinIncrement
}

// Bid is an append-only ledger entry.
type Bid struct {
	ID                string
	AuctionID         string
	DealerID          string
	DealerDisplayName string
	Amount            int64
	PlacedAt          time.Time
	IP                string
}

// AuctionView is the externally observable projection of an auction.
type AuctionView struct {
	ID                 string     `json:"id"`
	InspectionReportID string     `json:"inspection_report_id"`
	Car                CarDetails `json:"car"`
	StartTime          time.Time  `json:"start_time" example:"2026-10-15T10:00:00Z"`
	EndTime            time.Time  `json:"end_time"   example:"2026-10-15T11:00:00Z"`
	StartingBid        int64      `json:"starting_bid"`
	CurrentBid         int64      `json:"current_bid"`
	MinIncrement       int64      `json:"min_increment"`
	MinimumNextBid     int64      `json:"minimum_next_bid"`
	Status             Status     `json:"status" example:"LIVE"`
	TotalBids          int64      `json:"total_bids"`
	WinnerDisplayName  string     `json:"winner_display_name,omitempty"`
	Version            int64      `json:"version"`
}

func (a *Auction) View() AuctionView {
	v := AuctionView{
		ID:                 a.ID,
		InspectionReportID: a.InspectionReportID,
		Car:                a.Car,
		StartTime:          a.StartTime.UTC(),
		EndTime:            a.EndTime.UTC(),
		StartingBid:        a.StartingBid,
		CurrentBid:         a.CurrentBid,
		MinIncrement:       a.MinIncrement,
		MinimumNextBid:     a.MinimumNextBid(),
		Status:             a.Status,
		TotalBids:          a.TotalBids,
		Version:            a.Version,
	}
	if a.Status == StatusSold {
		v.WinnerDisplayName = a.WinnerDisplayName
	}
	return v
}

// BidView is the operator projection of a bid, including dealer identity.
type BidView struct {
	ID                string    `json:"id"`
	AuctionID         string    `json:"auction_id"`
	DealerID          string    `json:"dealer_id"`
	DealerDisplayName string    `json:"dealer_display_name"`
	Amount            int64     `json:"amount"`
	PlacedAt          time.Time `json:"placed_at"`
	IP                string    `json:"ip,omitempty"`
}

func (b *Bid) View() BidView {
	return BidView{
		ID:                b.ID,
		AuctionID:         b.AuctionID,
		DealerID:          b.DealerID,
		DealerDisplayName: b.DealerDisplayName,
		Amount:            b.Amount,
		PlacedAt:          b.PlacedAt.UTC(),
		IP:                b.IP,
	}
}

// PublicBidView is what a dealer sees of the ledger: competitors are anonymous.
type PublicBidView struct {
	Amount   int64     `json:"amount"`
	PlacedAt time.Time `json:"placed_at"`
	Mine     bool      `json:"mine"`
}

func (b *Bid) PublicView(viewerID string) PublicBidView {
	return PublicBidView{
		Amount:   b.Amount,
		PlacedAt: b.PlacedAt.UTC(),
		Mine:     viewerID != "" && b.DealerID == viewerID,
	}
}

// ListFilter narrows ListAuctions. A zero Status matches every status.
// A non-zero DueBy keeps only auctions whose next transition is due by then:
// start_time for SCHEDULED, end_time otherwise.
type ListFilter struct {
	Status Status
	DueBy  time.Time
	Limit  int
	Offset int
}

func (f ListFilter) due(a *Auction) bool {
	if f.DueBy.IsZero() {
		return true
	}
	if f.Status == StatusScheduled {
		return !a.StartTime.After(f.DueBy)
	}
	return !a.EndTime.After(f.DueBy)
}

// PlaceBidResult is returned to the bidder after a successful commit.
type PlaceBidResult struct {
	Bid        BidView     `json:"bid"`
	Auction    AuctionView `json:"auction"`
	Extended   bool        `json:"extended"`
	NewEndTime *time.Time  `json:"new_end_time,omitempty"`
}
