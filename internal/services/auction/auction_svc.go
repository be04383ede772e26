package auction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type IAuctionService interface {
	CreateAuction(ctx context.Context, in CreateAuctionInput) (*AuctionView, error)
	GetAuction(ctx context.Context, auctionID string) (*AuctionView, error)
	ListAuctions(ctx context.Context, f ListFilter) ([]AuctionView, error)
	PlaceBid(ctx context.Context, in PlaceBidInput) (*PlaceBidResult, error)
	ListBids(ctx context.Context, auctionID string) ([]BidView, error)
	ListPublicBids(ctx context.Context, auctionID, viewerID string) ([]PublicBidView, error)
	OpenAuction(ctx context.Context, auctionID string) (*AuctionView, error)
	Finalize(ctx context.Context, auctionID string) (*AuctionView, error)
	EndAuction(ctx context.Context, auctionID string) (*AuctionView, error)
	CancelAuction(ctx context.Context, auctionID string) (*AuctionView, error)
}

type CreateAuctionInput struct {
	InspectionReportID string
	StartTime          time.Time
	EndTime            time.Time
	StartingBid        int64
	ReservePrice       int64
	MinIncrement       int64 // 0 selects Options.DefaultMinIncrement
}

type PlaceBidInput struct {
	AuctionID string
	DealerID  string
	Amount    int64
	IP        string
}

type Options struct {
	ExtensionWindow     time.Duration
	ExtensionAmount     time.Duration
	DefaultMinIncrement int64
	MaxRetries          int
	Clock               func() time.Time
}

// Deps are the collaborators the service composes. Notifier may be nil.
type Deps struct {
	Store     AuctionStore
	Locks     *LockRegistry
	Publisher Publisher
	Dealers   DealerRegistry
	Reports   InspectionReports
	Notifier  SettlementNotifier
}

type auctionService struct {
	store     AuctionStore
	locks     *LockRegistry
	publisher Publisher
	dealers   DealerRegistry
	reports   InspectionReports
	notifier  SettlementNotifier
	opts      Options
}

var _ IAuctionService = (*auctionService)(nil)

func NewAuctionService(d Deps, opts Options) IAuctionService {
	if opts.ExtensionWindow <= 0 {
		opts.ExtensionWindow = DefaultExtensionWindow
	}
	if opts.ExtensionAmount <= 0 {
		opts.ExtensionAmount = DefaultExtensionAmount
	}
	if opts.DefaultMinIncrement <= 0 {
		opts.DefaultMinIncrement = 1000
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if d.Locks == nil {
		d.Locks = NewLockRegistry(0)
	}
	return &auctionService{
		store:     d.Store,
		locks:     d.Locks,
		publisher: d.Publisher,
		dealers:   d.Dealers,
		reports:   d.Reports,
		notifier:  d.Notifier,
		opts:      opts,
	}
}

func (svc *auctionService) now() time.Time { return svc.opts.Clock().UTC() }

func (svc *auctionService) CreateAuction(ctx context.Context, in CreateAuctionInput) (*AuctionView, error) {
	if in.MinIncrement == 0 {
		in.MinIncrement = svc.opts.DefaultMinIncrement
	}
	if err := svc.validateCreate(in); err != nil {
		return nil, err
	}

	car, err := svc.reports.Snapshot(ctx, in.InspectionReportID)
	if err != nil {
		return nil, fmt.Errorf("snapshot inspection report %s: %w", in.InspectionReportID, err)
	}

	now := svc.now()
	a := &Auction{
		ID:                 uuid.NewString(),
		InspectionReportID: in.InspectionReportID,
		Car:                car,
		StartTime:          in.StartTime.UTC(),
		EndTime:            in.EndTime.UTC(),
		StartingBid:        in.StartingBid,
		CurrentBid:         in.StartingBid,
		ReservePrice:       in.ReservePrice,
		MinIncrement:       in.MinIncrement,
		Status:             StatusScheduled,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := svc.store.Create(ctx, a); err != nil {
		return nil, err
	}
	zap.L().Info("auction_created",
		zap.String("auction_id", a.ID),
		zap.String("inspection_report_id", a.InspectionReportID),
		zap.Time("start_time", a.StartTime),
		zap.Time("end_time", a.EndTime),
	)
	v := a.View()
	return &v, nil
}

func (svc *auctionService) validateCreate(in CreateAuctionInput) error {
	switch {
	case in.InspectionReportID == "":
		return fmt.Errorf("%w: inspection report id is required", ErrInvalidInput)
	case in.StartingBid <= 0:
		return fmt.Errorf("%w: starting bid must be positive", ErrInvalidInput)
	case in.ReservePrice < 0:
		return fmt.Errorf("%w: reserve price must not be negative", ErrInvalidInput)
	case in.MinIncrement < 0:
		return fmt.Errorf("%w: min increment must be positive", ErrInvalidInput)
	case in.StartingBid > MaxAmount, in.ReservePrice > MaxAmount, in.MinIncrement > MaxAmount:
		return fmt.Errorf("%w: amounts must not exceed ₹%d", ErrInvalidInput, MaxAmount)
	case !in.EndTime.After(in.StartTime):
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidInput)
	case !in.EndTime.After(svc.now()):
		return fmt.Errorf("%w: end time must be in the future", ErrInvalidInput)
	}
	return nil
}

func (svc *auctionService) GetAuction(ctx context.Context, auctionID string) (*AuctionView, error) {
	a, err := svc.store.Get(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	v := a.View()
	return &v, nil
}

func (svc *auctionService) ListAuctions(ctx context.Context, f ListFilter) ([]AuctionView, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
	}
	list, err := svc.store.ListAuctions(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]AuctionView, 0, len(list))
	for i := range list {
		out = append(out, list[i].View())
	}
	return out, nil
}

// PlaceBid evaluates and commits one bid inside the auction's exclusive
// section. The dealer lookup happens before the lock so the section holds no
// I/O other than the store.
func (svc *auctionService) PlaceBid(ctx context.Context, in PlaceBidInput) (*PlaceBidResult, error) {
	if in.AuctionID == "" || in.DealerID == "" {
		return nil, fmt.Errorf("%w: auction id and dealer id are required", ErrInvalidInput)
	}
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: bid amount must be positive", ErrInvalidInput)
	}
	if in.Amount > MaxAmount {
		return nil, fmt.Errorf("%w: bid amount must not exceed ₹%d", ErrInvalidInput, MaxAmount)
	}

	dealer, dealerErr := svc.dealers.Lookup(ctx, in.DealerID)
	if dealerErr != nil && !errors.Is(dealerErr, ErrNotFound) {
		return nil, fmt.Errorf("look up dealer %s: %w", in.DealerID, dealerErr)
	}

	for attempt := 1; attempt <= svc.opts.MaxRetries; attempt++ {
		var res *PlaceBidResult
		err := svc.locks.WithAuctionLock(ctx, in.AuctionID, func() error {
			var err error
			res, err = svc.evaluateAndCommit(ctx, in, dealer, dealerErr)
			return err
		})
		if errors.Is(err, ErrConflict) {
			zap.L().Warn("bid_commit_conflict",
				zap.String("auction_id", in.AuctionID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}
		if err != nil {
			zap.L().Debug("bid_rejected",
				zap.String("auction_id", in.AuctionID),
				zap.String("dealer_id", in.DealerID),
				zap.Int64("amount", in.Amount),
				zap.Error(err),
			)
			return nil, err
		}
		return res, nil
	}
	return nil, fmt.Errorf("place bid on auction %s after %d attempts: %w", in.AuctionID, svc.opts.MaxRetries, ErrTimeout)
}

func (svc *auctionService) evaluateAndCommit(ctx context.Context, in PlaceBidInput, dealer Dealer, dealerErr error) (*PlaceBidResult, error) {
	a, err := svc.store.Get(ctx, in.AuctionID)
	if err != nil {
		return nil, err
	}
	now := svc.now()

	if a.Status != StatusLive {
		return nil, fmt.Errorf("auction %s is %s: %w", a.ID, a.Status, ErrInvalidState)
	}
	if !now.Before(a.EndTime) {
		return nil, fmt.Errorf("auction %s closed at %s: %w", a.ID, a.EndTime.Format(time.RFC3339), ErrExpired)
	}
	if !a.Accepts(in.Amount) {
		return nil, &BidTooLowError{CurrentBid: a.CurrentBid, MinimumBid: a.MinimumNextBid()}
	}
	if dealerErr != nil {
		return nil, fmt.Errorf("dealer %s: %w", in.DealerID, dealerErr)
	}
	if !dealer.InGoodStanding() {
		return nil, fmt.Errorf("dealer %s is %s: %w", dealer.ID, dealer.Status, ErrForbidden)
	}

	newEnd := ComputeExtension(a.EndTime, now, svc.opts.ExtensionWindow, svc.opts.ExtensionAmount)
	updated, bid, err := svc.store.CommitBid(ctx, a.ID, a.Version, BidCommit{
		Bid: Bid{
			ID:                uuid.NewString(),
			DealerID:          dealer.ID,
			DealerDisplayName: dealer.DisplayName,
			Amount:            in.Amount,
			PlacedAt:          now,
			IP:                in.IP,
		},
		NewCurrentBid: in.Amount,
		NewEndTime:    newEnd,
		NewTotalBids:  a.TotalBids + 1,
	})
	if err != nil {
		return nil, err
	}

	extended := updated.EndTime.After(a.EndTime)
	svc.publish(ctx, updated.ID, NewBidEvent(updated, bid))
	if extended {
		svc.publish(ctx, updated.ID, NewExtendedEvent(updated))
		zap.L().Info("auction_extended",
			zap.String("auction_id", updated.ID),
			zap.Time("old_end_time", a.EndTime),
			zap.Time("new_end_time", updated.EndTime),
		)
	}
	zap.L().Info("bid_accepted",
		zap.String("auction_id", updated.ID),
		zap.String("bid_id", bid.ID),
		zap.String("dealer_id", bid.DealerID),
		zap.Int64("amount", bid.Amount),
		zap.Int64("version", updated.Version),
	)

	res := &PlaceBidResult{
		Bid:      bid.View(),
		Auction:  updated.View(),
		Extended: extended,
	}
	if extended {
		end := updated.EndTime.UTC()
		res.NewEndTime = &end
	}
	return res, nil
}

// publish must be called inside the auction's exclusive section, after the
// commit it describes, so subscribers see events in commit order.
func (svc *auctionService) publish(ctx context.Context, auctionID string, e Event) {
	if svc.publisher == nil {
		return
	}
	if err := svc.publisher.Publish(context.WithoutCancel(ctx), auctionID, e); err != nil {
		zap.L().Warn("event_publish_failed",
			zap.String("auction_id", auctionID),
			zap.String("event", string(e.Type)),
			zap.Error(err),
		)
	}
}

func (svc *auctionService) ListBids(ctx context.Context, auctionID string) ([]BidView, error) {
	bids, err := svc.store.ListBids(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	out := make([]BidView, 0, len(bids))
	for i := range bids {
		out = append(out, bids[i].View())
	}
	return out, nil
}

func (svc *auctionService) ListPublicBids(ctx context.Context, auctionID, viewerID string) ([]PublicBidView, error) {
	bids, err := svc.store.ListBids(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	out := make([]PublicBidView, 0, len(bids))
	for i := range bids {
		out = append(out, bids[i].PublicView(viewerID))
	}
	return out, nil
}

// OpenAuction moves a due SCHEDULED auction to LIVE. Auctions that are not
// due yet, or already past SCHEDULED, are returned unchanged.
func (svc *auctionService) OpenAuction(ctx context.Context, auctionID string) (*AuctionView, error) {
	var out *Auction
	err := svc.withRetries(ctx, auctionID, func() error {
		a, err := svc.store.Get(ctx, auctionID)
		if err != nil {
			return err
		}
		if a.Status != StatusScheduled || svc.now().Before(a.StartTime) {
			out = a
			return nil
		}
		out, err = svc.store.CommitLifecycleTransition(ctx, auctionID, a.Version, StatusLive, nil)
		if err != nil {
			return err
		}
		zap.L().Info("auction_opened", zap.String("auction_id", auctionID), zap.Time("end_time", out.EndTime))
		return nil
	})
	if err != nil {
		return nil, err
	}
	v := out.View()
	return &v, nil
}

// Finalize is the scheduler path: it closes a LIVE auction only once its end
// time, as read under the lock, has passed.
func (svc *auctionService) Finalize(ctx context.Context, auctionID string) (*AuctionView, error) {
	return svc.finalize(ctx, auctionID, false)
}

// EndAuction is the operator override: it closes a LIVE auction now,
// regardless of its end time, through the same path as Finalize.
func (svc *auctionService) EndAuction(ctx context.Context, auctionID string) (*AuctionView, error) {
	return svc.finalize(ctx, auctionID, true)
}

func (svc *auctionService) finalize(ctx context.Context, auctionID string, force bool) (*AuctionView, error) {
	var (
		out    *Auction
		closed bool
	)
	err := svc.withRetries(ctx, auctionID, func() error {
		a, err := svc.store.Get(ctx, auctionID)
		if err != nil {
			return err
		}
		switch a.Status {
		case StatusCancelled, StatusSold, StatusUnsold:
			out = a
			return nil
		case StatusScheduled:
			if force {
				return fmt.Errorf("auction %s has not started, cancel it instead: %w", auctionID, ErrInvalidState)
			}
			out = a
			return nil
		case StatusLive:
			if !force && svc.now().Before(a.EndTime) {
				out = a
				return nil
			}
			if a, err = svc.store.CommitLifecycleTransition(ctx, auctionID, a.Version, StatusEnded, nil); err != nil {
				return err
			}
		}

		// ENDED: settle the outcome against the final ledger.
		status, winner, err := svc.resolveOutcome(ctx, a)
		if err != nil {
			return err
		}
		if out, err = svc.store.CommitLifecycleTransition(ctx, auctionID, a.Version, status, winner); err != nil {
			return err
		}
		closed = true
		svc.publish(ctx, auctionID, NewEndedEvent(out))
		zap.L().Info("auction_finalized",
			zap.String("auction_id", auctionID),
			zap.String("outcome", string(out.Status)),
			zap.Int64("final_bid", out.CurrentBid),
			zap.Int64("total_bids", out.TotalBids),
			zap.Bool("operator_override", force),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if closed {
		svc.notifyClosed(ctx, out)
	}
	v := out.View()
	return &v, nil
}

func (svc *auctionService) resolveOutcome(ctx context.Context, a *Auction) (Status, *Winner, error) {
	if a.TotalBids == 0 || a.CurrentBid < a.ReservePrice {
		return StatusUnsold, nil, nil
	}
	bids, err := svc.store.ListBids(ctx, a.ID)
	if err != nil {
		return "", nil, err
	}
	if len(bids) == 0 {
		return StatusUnsold, nil, nil
	}
	top := bids[0]
	return StatusSold, &Winner{DealerID: top.DealerID, DisplayName: top.DealerDisplayName}, nil
}

// CancelAuction withdraws an auction that has not finished. Cancelling an
// already cancelled auction is a no-op.
func (svc *auctionService) CancelAuction(ctx context.Context, auctionID string) (*AuctionView, error) {
	var (
		out       *Auction
		cancelled bool
	)
	err := svc.withRetries(ctx, auctionID, func() error {
		a, err := svc.store.Get(ctx, auctionID)
		if err != nil {
			return err
		}
		switch a.Status {
		case StatusCancelled:
			out = a
			return nil
		case StatusScheduled, StatusLive:
		default:
			return fmt.Errorf("auction %s is %s: %w", auctionID, a.Status, ErrInvalidState)
		}
		if out, err = svc.store.CommitLifecycleTransition(ctx, auctionID, a.Version, StatusCancelled, nil); err != nil {
			return err
		}
		cancelled = true
		svc.publish(ctx, auctionID, NewEndedEvent(out))
		zap.L().Info("auction_cancelled", zap.String("auction_id", auctionID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cancelled {
		svc.notifyClosed(ctx, out)
	}
	v := out.View()
	return &v, nil
}

// withRetries runs fn under the auction lock, re-running it against fresh
// state when a commit loses a version race.
func (svc *auctionService) withRetries(ctx context.Context, auctionID string, fn func() error) error {
	for attempt := 1; attempt <= svc.opts.MaxRetries; attempt++ {
		err := svc.locks.WithAuctionLock(ctx, auctionID, fn)
		if !errors.Is(err, ErrConflict) {
			return err
		}
		zap.L().Warn("lifecycle_commit_conflict",
			zap.String("auction_id", auctionID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return fmt.Errorf("auction %s after %d attempts: %w", auctionID, svc.opts.MaxRetries, ErrTimeout)
}

func (svc *auctionService) notifyClosed(ctx context.Context, a *Auction) {
	if svc.notifier == nil {
		return
	}
	o := Outcome{
		AuctionID:          a.ID,
		InspectionReportID: a.InspectionReportID,
		Status:             a.Status,
		TotalBids:          a.TotalBids,
		ClosedAt:           a.UpdatedAt.UTC(),
	}
	if a.Status == StatusSold {
		o.WinnerID = a.WinnerID
		o.FinalBid = a.CurrentBid
	}
	if err := svc.notifier.AuctionClosed(context.WithoutCancel(ctx), o); err != nil {
		zap.L().Warn("settlement_notify_failed", zap.String("auction_id", a.ID), zap.Error(err))
	}
}
