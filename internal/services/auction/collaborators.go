package auction

import (
	"context"
	"time"
)

type DealerStatus string

const (
	DealerApproved  DealerStatus = "APPROVED"
	DealerPending   DealerStatus = "PENDING"
	DealerSuspended DealerStatus = "SUSPENDED"
	DealerRejected  DealerStatus = "REJECTED"
)

// Dealer is what the registry tells us about a bidder.
type Dealer struct {
	ID          string
	DisplayName string
	Status      DealerStatus
}

func (d Dealer) InGoodStanding() bool { return d.Status == DealerApproved }

//go:generate mockgen -source=collaborators.go -destination=mock_collaborators_test.go -package=auction

// DealerRegistry resolves dealers. Unknown ids return ErrNotFound.
type DealerRegistry interface {
	Lookup(ctx context.Context, dealerID string) (Dealer, error)
}

// InspectionReports yields the car snapshot an auction is created from.
// Unknown reports return ErrNotFound.
type InspectionReports interface {
	Snapshot(ctx context.Context, reportID string) (CarDetails, error)
}

// Outcome is handed to settlement once an auction reaches a terminal state.
// FinalBid is only meaningful when Status is SOLD.
type Outcome struct {
	AuctionID          string    `json:"auction_id"`
	InspectionReportID string    `json:"inspection_report_id"`
	Status             Status    `json:"status"`
	WinnerID           string    `json:"winner_id,omitempty"`
	FinalBid           int64     `json:"final_bid,omitempty"`
	TotalBids          int64     `json:"total_bids"`
	ClosedAt           time.Time `json:"closed_at"`
}

// SettlementNotifier is told about closed auctions, best-effort.
type SettlementNotifier interface {
	AuctionClosed(ctx context.Context, o Outcome) error
}
