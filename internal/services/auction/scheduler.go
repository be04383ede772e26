package auction

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Scheduler drives the transitions no bid triggers: opening due auctions and
// closing elapsed ones. Every change goes through the service, so it takes
// the same per-auction lock and compare-and-commit path as bidding.
type Scheduler struct {
	store    AuctionStore
	svc      IAuctionService
	interval time.Duration
	clock    func() time.Time
}

func NewScheduler(store AuctionStore, svc IAuctionService, interval time.Duration, clock func() time.Time) *Scheduler {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{store: store, svc: svc, interval: interval, clock: clock}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	tk := time.NewTicker(s.interval)
	defer tk.Stop()

	zap.L().Info("scheduler_started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("scheduler_stopped")
			return
		case <-tk.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce opens due SCHEDULED auctions, then closes LIVE auctions whose end
// time has passed and resolves any left in ENDED. A failure on one auction
// is logged and the sweep moves on.
func (s *Scheduler) SweepOnce(ctx context.Context) {
	now := s.clock()

	s.each(ctx, StatusScheduled, now, func(a *Auction) {
		if _, err := s.svc.OpenAuction(ctx, a.ID); err != nil {
			zap.L().Error("scheduler.open", zap.String("auction_id", a.ID), zap.Error(err))
		}
	})

	s.each(ctx, StatusLive, now, func(a *Auction) {
		s.finalize(ctx, a.ID)
	})

	s.each(ctx, StatusEnded, now, func(a *Auction) {
		s.finalize(ctx, a.ID)
	})
}

func (s *Scheduler) finalize(ctx context.Context, id string) {
	v, err := s.svc.Finalize(ctx, id)
	if err != nil {
		zap.L().Error("scheduler.finalize", zap.String("auction_id", id), zap.Error(err))
		return
	}
	if v.Status == StatusLive {
		zap.L().Debug("scheduler.finalize_deferred", zap.String("auction_id", id), zap.Time("end_time", v.EndTime))
	}
}

// each visits auctions in st that are due by now. Due rows beyond one store
// page are picked up on a later tick.
func (s *Scheduler) each(ctx context.Context, st Status, now time.Time, fn func(a *Auction)) {
	list, err := s.store.ListAuctions(ctx, ListFilter{Status: st, DueBy: now})
	if err != nil {
		zap.L().Error("scheduler.list", zap.String("status", string(st)), zap.Error(err))
		return
	}
	for i := range list {
		if ctx.Err() != nil {
			return
		}
		fn(&list[i])
	}
}
