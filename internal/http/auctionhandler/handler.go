package auctionhandler

import (
	"net/http"

	"autoliquid/internal/http/middleware"
	"autoliquid/internal/services/auction"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc auction.IAuctionService
}

func New(svc auction.IAuctionService) *Handler { return &Handler{svc: svc} }

// Register expects r to already authenticate callers with middleware.JWTAuth.
func (h *Handler) Register(r gin.IRoutes) {
	operator := middleware.RequireRole(middleware.RoleOperator)
	dealer := middleware.RequireRole(middleware.RoleDealer)
	anyone := middleware.RequireRole(middleware.RoleDealer, middleware.RoleOperator)

	r.POST("/auctions", operator, h.create)
	r.GET("/auctions", anyone, h.list)
	r.GET("/auctions/:id", anyone, h.info)
	r.POST("/auctions/:id/bids", dealer, h.bid)
	r.GET("/auctions/:id/bids", anyone, h.bids)
	r.POST("/auctions/:id/end", operator, h.end)
	r.POST("/auctions/:id/cancel", operator, h.cancel)
}

// @Summary		Create an auction
// @Description	Operator schedules an auction for an inspected car.
// @Tags			Auctions
// @Security		BearerAuth
// @Param			body	body		CreateAuctionBody	true	"Auction payload"
// @Success		201		{object}	auction.AuctionView
// @Failure		400		{object}	ErrorResponse
// @Failure		404		{object}	ErrorResponse
// @Router			/auctions [post]
func (h *Handler) create(ginCtx *gin.Context) {
	var body CreateAuctionBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}
	view, err := h.svc.CreateAuction(ginCtx.Request.Context(), auction.CreateAuctionInput{
		InspectionReportID: body.InspectionReportID,
		StartTime:          body.StartTime,
		EndTime:            body.EndTime,
		StartingBid:        body.StartingBid,
		ReservePrice:       body.ReservePrice,
		MinIncrement:       body.MinIncrement,
	})
	if err != nil {
		writeError(ginCtx, err)
		return
	}
	ginCtx.JSON(http.StatusCreated, view)
}

// @Summary		Get auction details
// @Description	Returns the public view of a single auction. The reserve price is never included.
// @Tags			Auctions
// @Security		BearerAuth
// @Param			id	path		string	true	"Auction ID"
// @Success		200	{object}	auction.AuctionView
// @Failure		404	{object}	ErrorResponse
// @Router			/auctions/{id} [get]
func (h *Handler) info(c *gin.Context) {
	view, err := h.svc.GetAuction(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// @Summary		List auctions
// @Description	Retrieves a paginated list of auctions ordered by end time, optionally filtered by status.
// @Tags			Auctions
// @Security		BearerAuth
// @Param			status	query		string	false	"Status filter"			Enums(SCHEDULED,LIVE,ENDED,CANCELLED,SOLD,UNSOLD)
// @Param			limit	query		int		false	"Max results (0-100)"	minimum(0)	maximum(100)	default(10)
// @Param			offset	query		int		false	"Offset for pagination"	minimum(0)	default(0)
// @Success		200		{array}		auction.AuctionView
// @Failure		400		{object}	ErrorResponse
// @Failure		500		{object}	ErrorResponse
// @Router			/auctions [get]
func (h *Handler) list(c *gin.Context) {
	var q ListAuctionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	out, err := h.svc.ListAuctions(c.Request.Context(), auction.ListFilter{
		Status: auction.Status(q.Status),
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary		Place a bid
// @Description	Dealer places a bid. A bid inside the final window extends the auction.
// @Tags			Bids
// @Security		BearerAuth
// @Param			id		path		string			true	"Auction ID"
// @Param			body	body		PlaceBidBody	true	"Bid payload"
// @Success		201		{object}	auction.PlaceBidResult
// @Failure		400		{object}	ErrorResponse
// @Failure		403		{object}	ErrorResponse
// @Failure		404		{object}	ErrorResponse
// @Failure		409		{object}	ErrorResponse
// @Failure		503		{object}	ErrorResponse
// @Router			/auctions/{id}/bids [post]
func (h *Handler) bid(ginCtx *gin.Context) {
	var body PlaceBidBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}
	p, _ := middleware.PrincipalFrom(ginCtx)

	res, err := h.svc.PlaceBid(ginCtx.Request.Context(), auction.PlaceBidInput{
		AuctionID: ginCtx.Param("id"),
		DealerID:  p.ID,
		Amount:    body.Amount,
		IP:        ginCtx.ClientIP(),
	})
	if err != nil {
		writeError(ginCtx, err)
		return
	}
	ginCtx.JSON(http.StatusCreated, res)
}

// @Summary		Bid history
// @Description	Operators get the full history. Dealers get amounts and times only, with their own bids marked.
// @Tags			Bids
// @Security		BearerAuth
// @Param			id	path		string	true	"Auction ID"
// @Success		200	{array}		auction.BidView
// @Failure		404	{object}	ErrorResponse
// @Router			/auctions/{id}/bids [get]
func (h *Handler) bids(c *gin.Context) {
	p, _ := middleware.PrincipalFrom(c)
	id := c.Param("id")

	if p.Role == middleware.RoleOperator {
		out, err := h.svc.ListBids(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
		return
	}
	out, err := h.svc.ListPublicBids(c.Request.Context(), id, p.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary		End an auction
// @Description	Operator closes a live auction now and settles it against the reserve.
// @Tags			Auctions
// @Security		BearerAuth
// @Param			id	path		string	true	"Auction ID"
// @Success		200	{object}	auction.AuctionView
// @Failure		404	{object}	ErrorResponse
// @Failure		409	{object}	ErrorResponse
// @Router			/auctions/{id}/end [post]
func (h *Handler) end(ginCtx *gin.Context) {
	view, err := h.svc.EndAuction(ginCtx.Request.Context(), ginCtx.Param("id"))
	if err != nil {
		writeError(ginCtx, err)
		return
	}
	ginCtx.JSON(http.StatusOK, view)
}

// @Summary		Cancel an auction
// @Description	Operator withdraws a scheduled or live auction.
// @Tags			Auctions
// @Security		BearerAuth
// @Param			id	path		string	true	"Auction ID"
// @Success		200	{object}	auction.AuctionView
// @Failure		404	{object}	ErrorResponse
// @Failure		409	{object}	ErrorResponse
// @Router			/auctions/{id}/cancel [post]
func (h *Handler) cancel(ginCtx *gin.Context) {
	view, err := h.svc.CancelAuction(ginCtx.Request.Context(), ginCtx.Param("id"))
	if err != nil {
		writeError(ginCtx, err)
		return
	}
	ginCtx.JSON(http.StatusOK, view)
}
