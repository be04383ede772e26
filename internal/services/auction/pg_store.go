package auction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const auctionCols = `id, inspection_report_id, car_brand, car_model, car_variant, car_year,
       car_registration, start_time, end_time, starting_bid, current_bid, reserve_price,
       min_increment, status, total_bids, coalesce(winner_id,''), coalesce(winner_display_name,''),
       version, created_at, updated_at`

// PostgresStore persists auctions and bids through database/sql (pgx stdlib
// driver). Compare-and-commit is an UPDATE guarded by the version column.
type PostgresStore struct {
	db *sql.DB
}

var _ AuctionStore = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuction(row rowScanner) (*Auction, error) {
	a := &Auction{}
	var status string
	err := row.Scan(&a.ID, &a.InspectionReportID,
		&a.Car.Brand, &a.Car.Model, &a.Car.Variant, &a.Car.Year, &a.Car.Registration,
		&a.StartTime, &a.EndTime, &a.StartingBid, &a.CurrentBid, &a.ReservePrice,
		&a.MinIncrement, &status, &a.TotalBids, &a.WinnerID, &a.WinnerDisplayName,
		&a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = Status(status)
	return a, nil
}

func (s *PostgresStore) Create(ctx context.Context, a *Auction) error {
	const q = `
	  INSERT INTO auctions (id, inspection_report_id, car_brand, car_model, car_variant, car_year,
	                        car_registration, start_time, end_time, starting_bid, current_bid,
	                        reserve_price, min_increment, status, total_bids, version,
	                        created_at, updated_at)
	       VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,0,1,$15,$15)
	  ON CONFLICT (id) DO NOTHING`

	res, err := s.db.ExecContext(ctx, q,
		a.ID, a.InspectionReportID, a.Car.Brand, a.Car.Model, a.Car.Variant, a.Car.Year,
		a.Car.Registration, a.StartTime, a.EndTime, a.StartingBid, a.CurrentBid,
		a.ReservePrice, a.MinIncrement, string(a.Status), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create auction %s: %w", a.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("create auction %s: %w", a.ID, ErrConflict)
	}
	a.Version = 1
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, auctionID string) (*Auction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+auctionCols+` FROM auctions WHERE id = $1`, auctionID)
	a, err := scanAuction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get auction %s: %w", auctionID, ErrNotFound)
		}
		return nil, fmt.Errorf("get auction %s: %w", auctionID, err)
	}
	return a, nil
}

func (s *PostgresStore) CommitBid(ctx context.Context, auctionID string, expectedVersion int64, c BidCommit) (*Auction, *Bid, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("commit bid on auction %s: begin: %w", auctionID, err)
	}
	defer tx.Rollback()

	const upd = `
	  UPDATE auctions
	     SET current_bid = $3,
	         end_time    = GREATEST(end_time, $4),
	         total_bids  = $5,
	         version     = version + 1,
	         updated_at  = $6
	   WHERE id = $1 AND version = $2
	  RETURNING ` + auctionCols

	a, err := scanAuction(tx.QueryRowContext(ctx, upd,
		auctionID, expectedVersion, c.NewCurrentBid, c.NewEndTime, c.NewTotalBids, c.Bid.PlacedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, s.missOrConflict(ctx, tx, "commit bid on", auctionID, expectedVersion)
		}
		return nil, nil, fmt.Errorf("commit bid on auction %s: update: %w", auctionID, err)
	}

	bid := c.Bid
	bid.AuctionID = auctionID
	const ins = `
	  INSERT INTO bids (id, auction_id, dealer_id, dealer_display_name, amount, placed_at, ip)
	       VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))`
	if _, err = tx.ExecContext(ctx, ins,
		bid.ID, bid.AuctionID, bid.DealerID, bid.DealerDisplayName, bid.Amount, bid.PlacedAt, bid.IP,
	); err != nil {
		return nil, nil, fmt.Errorf("commit bid on auction %s: insert bid: %w", auctionID, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit bid on auction %s: commit: %w", auctionID, err)
	}
	return a, &bid, nil
}

func (s *PostgresStore) CommitLifecycleTransition(ctx context.Context, auctionID string, expectedVersion int64, newStatus Status, winner *Winner) (*Auction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("transition auction %s: begin: %w", auctionID, err)
	}
	defer tx.Rollback()

	var winnerID, winnerName sql.NullString
	if newStatus == StatusSold && winner != nil {
		winnerID = sql.NullString{String: winner.DealerID, Valid: true}
		winnerName = sql.NullString{String: winner.DisplayName, Valid: true}
	}

	const upd = `
	  UPDATE auctions
	     SET status              = $3,
	         winner_id           = $4,
	         winner_display_name = $5,
	         version             = version + 1,
	         updated_at          = now()
	   WHERE id = $1 AND version = $2
	  RETURNING ` + auctionCols

	a, err := scanAuction(tx.QueryRowContext(ctx, upd,
		auctionID, expectedVersion, string(newStatus), winnerID, winnerName))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.missOrConflict(ctx, tx, "transition", auctionID, expectedVersion)
		}
		return nil, fmt.Errorf("transition auction %s: update: %w", auctionID, err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("transition auction %s: commit: %w", auctionID, err)
	}
	return a, nil
}

// missOrConflict tells a missing row apart from a stale version after a
// guarded UPDATE matched nothing.
func (s *PostgresStore) missOrConflict(ctx context.Context, tx *sql.Tx, op, auctionID string, expectedVersion int64) error {
	var stored int64
	err := tx.QueryRowContext(ctx, `SELECT version FROM auctions WHERE id = $1`, auctionID).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s auction %s: %w", op, auctionID, ErrNotFound)
	case err != nil:
		return fmt.Errorf("%s auction %s: %w", op, auctionID, err)
	}
	return fmt.Errorf("%s auction %s at version %d (stored %d): %w", op, auctionID, expectedVersion, stored, ErrConflict)
}

// ListBids returns the ledger newest first.
func (s *PostgresStore) ListBids(ctx context.Context, auctionID string) ([]Bid, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM auctions WHERE id = $1)`, auctionID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("list bids for auction %s: %w", auctionID, err)
	}
	if !exists {
		return nil, fmt.Errorf("list bids for auction %s: %w", auctionID, ErrNotFound)
	}

	const q = `SELECT id, auction_id, dealer_id, dealer_display_name, amount, placed_at, coalesce(ip,'')
	             FROM bids WHERE auction_id = $1
	         ORDER BY seq DESC`
	rows, err := s.db.QueryContext(ctx, q, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list bids for auction %s: %w", auctionID, err)
	}
	defer rows.Close()

	bids := make([]Bid, 0)
	for rows.Next() {
		var b Bid
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.DealerID, &b.DealerDisplayName,
			&b.Amount, &b.PlacedAt, &b.IP); err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

func (s *PostgresStore) ListAuctions(ctx context.Context, f ListFilter) ([]Auction, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 1000
	}
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if !f.DueBy.IsZero() {
		col := "end_time"
		if f.Status == StatusScheduled {
			col = "start_time"
		}
		args = append(args, f.DueBy)
		where = append(where, fmt.Sprintf("%s <= $%d", col, len(args)))
	}
	q := `SELECT ` + auctionCols + ` FROM auctions`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit, f.Offset)
	q += fmt.Sprintf(" ORDER BY end_time ASC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list auctions: %w", err)
	}
	defer rows.Close()

	list := make([]Auction, 0)
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}
