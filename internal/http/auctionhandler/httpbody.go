package auctionhandler

import "time"

type CreateAuctionBody struct {
	InspectionReportID string    `json:"inspection_report_id" binding:"required"      example:"insp-1001"`
	StartTime          time.Time `json:"start_time"           binding:"required"      example:"2026-10-15T10:00:00Z"`
	EndTime            time.Time `json:"end_time"             binding:"required"      example:"2026-10-15T11:00:00Z"`
	StartingBid        int64     `json:"starting_bid"         binding:"required,gt=0,lte=1000000000000" example:"100000"`
	ReservePrice       int64     `json:"reserve_price"        binding:"gte=0,lte=1000000000000" example:"150000"`
	MinIncrement       int64     `json:"min_increment"        binding:"gte=0,lte=1000000000000" example:"1000"`
} // @name CreateAuctionRequest

type PlaceBidBody struct {
	Amount int64 `json:"amount" binding:"required,gt=0,lte=1000000000000" example:"110000"`
} // @name PlaceBidRequest

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse

type ListAuctionsQuery struct {
	Status string `form:"status"  binding:"omitempty,oneof=SCHEDULED LIVE ENDED CANCELLED SOLD UNSOLD"`
	Limit  int    `form:"limit,default=10"  binding:"gte=0,lte=100"`
	Offset int    `form:"offset,default=0"  binding:"gte=0"`
} // @name ListAuctionsQuery
