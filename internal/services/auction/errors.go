package auction

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid auction state")
	ErrExpired      = errors.New("auction has ended")
	ErrBidTooLow    = errors.New("bid amount too low")
	ErrForbidden    = errors.New("dealer not allowed to bid")
	ErrConflict     = errors.New("concurrent modification")
	ErrTimeout      = errors.New("auction temporarily unavailable")
	ErrInvalidInput = errors.New("invalid input")
)

// BidTooLowError tells the dealer exactly what the floor is right now.
type BidTooLowError struct {
	CurrentBid int64
	MinimumBid int64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("current bid is now ₹%d, your bid must be at least ₹%d", e.CurrentBid, e.MinimumBid)
}

func (e *BidTooLowError) Is(target error) bool { return target == ErrBidTooLow }
