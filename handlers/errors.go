package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-tracker/market"
	"portfolio-tracker/portfolio"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, portfolio.ErrInvalidInput),
		errors.Is(err, portfolio.ErrImportFormat),
		errors.Is(err, market.ErrInvalidPeriod):
		return http.StatusBadRequest
	case errors.Is(err, portfolio.ErrNotHeld):
		return http.StatusNotFound
	case errors.Is(err, market.ErrNotEnoughData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, market.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, market.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes the error body and records err on the context for
// the request logger.
func abortWithError(c *gin.Context, msg string, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": msg, "details": err.Error()})
}
