package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"autoliquid/internal/services/auction"
)

// PgDealers reads the dealers table kept by the dealer onboarding system.
type PgDealers struct {
	db *sql.DB
}

var _ auction.DealerRegistry = (*PgDealers)(nil)

func NewPgDealers(db *sql.DB) *PgDealers { return &PgDealers{db: db} }

func (r *PgDealers) Lookup(ctx context.Context, dealerID string) (auction.Dealer, error) {
	const q = `SELECT id, display_name, status FROM dealers WHERE id = $1`

	var (
		d      auction.Dealer
		status string
	)
	err := r.db.QueryRowContext(ctx, q, dealerID).Scan(&d.ID, &d.DisplayName, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return auction.Dealer{}, fmt.Errorf("dealer %s: %w", dealerID, auction.ErrNotFound)
	}
	if err != nil {
		return auction.Dealer{}, fmt.Errorf("lookup dealer %s: %w", dealerID, err)
	}
	d.Status = auction.DealerStatus(status)
	return d, nil
}

// PgReports reads car snapshots from inspection_reports.
type PgReports struct {
	db *sql.DB
}

var _ auction.InspectionReports = (*PgReports)(nil)

func NewPgReports(db *sql.DB) *PgReports { return &PgReports{db: db} }

func (r *PgReports) Snapshot(ctx context.Context, reportID string) (auction.CarDetails, error) {
	const q = `SELECT brand, model, variant, year, registration FROM inspection_reports WHERE id = $1`

	var c auction.CarDetails
	err := r.db.QueryRowContext(ctx, q, reportID).Scan(&c.Brand, &c.Model, &c.Variant, &c.Year, &c.Registration)
	if errors.Is(err, sql.ErrNoRows) {
		return auction.CarDetails{}, fmt.Errorf("inspection report %s: %w", reportID, auction.ErrNotFound)
	}
	if err != nil {
		return auction.CarDetails{}, fmt.Errorf("snapshot inspection report %s: %w", reportID, err)
	}
	return c, nil
}
