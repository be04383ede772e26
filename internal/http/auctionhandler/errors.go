package auctionhandler

import (
	"errors"
	"net/http"

	"autoliquid/internal/services/auction"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auction.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, auction.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auction.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, auction.ErrInvalidState),
		errors.Is(err, auction.ErrExpired),
		errors.Is(err, auction.ErrBidTooLow),
		errors.Is(err, auction.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, auction.ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		zap.L().Error("http.internal_error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(code, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}
