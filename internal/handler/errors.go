package handler

import (
	"errors"
	"net/http"

	"taxcore/internal/cit"
	"taxcore/internal/pit"
	"taxcore/internal/service"
	"taxcore/internal/taxcode"
	"taxcore/internal/vat"
	"taxcore/pkg/response"

	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors onto HTTP status codes. Anything unknown is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrRuleNotFound):
		return http.StatusNotFound
	case errors.Is(err, pit.ErrMissingDependents):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidRule),
		errors.Is(err, service.ErrInvalidPeriod),
		errors.Is(err, vat.ErrInvalidTransaction),
		errors.Is(err, cit.ErrInvalidInput),
		errors.Is(err, pit.ErrInvalidInput),
		errors.Is(err, taxcode.ErrInvalidTaxCode),
		errors.Is(err, taxcode.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	c.JSON(status, response.Error(status, err.Error()))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}
