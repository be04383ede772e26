package auction

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var auctionColumns = []string{"id", "inspection_report_id", "car_brand", "car_model", "car_variant", "car_year",
	"car_registration", "start_time", "end_time", "starting_bid", "current_bid", "reserve_price",
	"min_increment", "status", "total_bids", "winner_id", "winner_display_name",
	"version", "created_at", "updated_at"}

func auctionRows(version, current, totalBids int64, status Status, end time.Time) *sqlmock.Rows {
	now := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(auctionColumns).AddRow(
		"auc-1", "insp-1", "Hyundai", "Creta", "SX", 2021,
		"KA03MN5678", now, end, int64(100000), current, int64(150000),
		int64(1000), string(status), totalBids, "", "",
		version, now, now,
	)
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresStoreGet(t *testing.T) {
	s, mock := newMockStore(t)
	end := time.Date(2026, 10, 15, 11, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM auctions WHERE id = \$1`).
		WithArgs("auc-1").
		WillReturnRows(auctionRows(4, 110000, 2, StatusLive, end))

	a, err := s.Get(context.Background(), "auc-1")
	require.NoError(t, err)
	require.Equal(t, StatusLive, a.Status)
	require.Equal(t, int64(110000), a.CurrentBid)
	require.Equal(t, int64(4), a.Version)
	require.Equal(t, "Creta", a.Car.Model)

	mock.ExpectQuery(`SELECT .+ FROM auctions WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(auctionColumns))
	_, err = s.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreCreateDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO auctions`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Create(context.Background(), &Auction{ID: "auc-1", Status: StatusScheduled})
	require.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreCommitBid(t *testing.T) {
	s, mock := newMockStore(t)
	end := time.Date(2026, 10, 15, 11, 2, 0, 0, time.UTC)
	placed := end.Add(-3 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE auctions\s+SET current_bid = \$3`).
		WithArgs("auc-1", int64(3), int64(110000), sqlmock.AnyArg(), int64(2), sqlmock.AnyArg()).
		WillReturnRows(auctionRows(4, 110000, 2, StatusLive, end))
	mock.ExpectExec(`INSERT INTO bids`).
		WithArgs("bid-1", "auc-1", "dealer-b", "Bharat Car Bazaar", int64(110000), placed, "10.0.0.7").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	a, b, err := s.CommitBid(context.Background(), "auc-1", 3, BidCommit{
		Bid: Bid{
			ID:                "bid-1",
			DealerID:          "dealer-b",
			DealerDisplayName: "Bharat Car Bazaar",
			Amount:            110000,
			PlacedAt:          placed,
			IP:                "10.0.0.7",
		},
		NewCurrentBid: 110000,
		NewEndTime:    end,
		NewTotalBids:  2,
	})
	require.NoError(t, err)
	require.Equal(t, int64(4), a.Version)
	require.Equal(t, "auc-1", b.AuctionID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreCommitBidConflict(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE auctions`).WillReturnRows(sqlmock.NewRows(auctionColumns))
	mock.ExpectQuery(`SELECT version FROM auctions WHERE id = \$1`).
		WithArgs("auc-1").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(5)))
	mock.ExpectRollback()

	_, _, err := s.CommitBid(context.Background(), "auc-1", 3, BidCommit{
		Bid:           Bid{ID: "bid-1", Amount: 110000, PlacedAt: time.Now()},
		NewCurrentBid: 110000,
		NewEndTime:    time.Now(),
		NewTotalBids:  2,
	})
	require.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreTransitionMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE auctions\s+SET status`).WillReturnRows(sqlmock.NewRows(auctionColumns))
	mock.ExpectQuery(`SELECT version FROM auctions`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectRollback()

	_, err := s.CommitLifecycleTransition(context.Background(), "ghost", 1, StatusEnded, nil)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreTransitionSold(t *testing.T) {
	s, mock := newMockStore(t)
	end := time.Date(2026, 10, 15, 11, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE auctions\s+SET status`).
		WithArgs("auc-1", int64(6), "SOLD", "dealer-b", "Bharat Car Bazaar").
		WillReturnRows(auctionRows(7, 160000, 4, StatusSold, end))
	mock.ExpectCommit()

	a, err := s.CommitLifecycleTransition(context.Background(), "auc-1", 6, StatusSold,
		&Winner{DealerID: "dealer-b", DisplayName: "Bharat Car Bazaar"})
	require.NoError(t, err)
	require.Equal(t, StatusSold, a.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreListBids(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2026, 10, 15, 10, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("auc-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`FROM bids WHERE auction_id = \$1\s+ORDER BY seq DESC`).
		WithArgs("auc-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "auction_id", "dealer_id", "dealer_display_name", "amount", "placed_at", "ip"}).
			AddRow("b2", "auc-1", "dealer-c", "Deccan Wheels", int64(110000), at.Add(time.Minute), "").
			AddRow("b1", "auc-1", "dealer-a", "Sharma Motors", int64(105000), at, "10.0.0.1"))

	bids, err := s.ListBids(context.Background(), "auc-1")
	require.NoError(t, err)
	require.Len(t, bids, 2)
	require.Equal(t, "b2", bids[0].ID)

	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	_, err = s.ListBids(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreListAuctions(t *testing.T) {
	s, mock := newMockStore(t)
	end := time.Date(2026, 10, 15, 11, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM auctions WHERE status = \$1 ORDER BY end_time ASC, id LIMIT \$2 OFFSET \$3`).
		WithArgs("LIVE", 10, 20).
		WillReturnRows(auctionRows(2, 105000, 1, StatusLive, end))

	list, err := s.ListAuctions(context.Background(), ListFilter{Status: StatusLive, Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Len(t, list, 1)

	mock.ExpectQuery(`FROM auctions ORDER BY end_time ASC, id LIMIT \$1 OFFSET \$2`).
		WithArgs(1000, 0).
		WillReturnRows(sqlmock.NewRows(auctionColumns))
	list, err = s.ListAuctions(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Empty(t, list)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreListDueAuctions(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2026, 10, 15, 11, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM auctions WHERE status = \$1 AND start_time <= \$2 ORDER BY end_time ASC, id LIMIT \$3 OFFSET \$4`).
		WithArgs("SCHEDULED", now, 1000, 0).
		WillReturnRows(sqlmock.NewRows(auctionColumns))
	_, err := s.ListAuctions(context.Background(), ListFilter{Status: StatusScheduled, DueBy: now})
	require.NoError(t, err)

	mock.ExpectQuery(`FROM auctions WHERE status = \$1 AND end_time <= \$2 ORDER BY end_time ASC, id LIMIT \$3 OFFSET \$4`).
		WithArgs("LIVE", now, 1000, 0).
		WillReturnRows(auctionRows(2, 105000, 1, StatusLive, now))
	list, err := s.ListAuctions(context.Background(), ListFilter{Status: StatusLive, DueBy: now})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
