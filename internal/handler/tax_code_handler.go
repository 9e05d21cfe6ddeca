package handler

import (
	"net/http"

	"taxcore/internal/middleware"
	"taxcore/internal/service"
	"taxcore/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaxCodeHandler struct {
	taxCodes service.TaxCodeService
}

func NewTaxCodeHandler(taxCodes service.TaxCodeService) *TaxCodeHandler {
	return &TaxCodeHandler{taxCodes: taxCodes}
}

func (h *TaxCodeHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	group := router.Group("/api/tax-codes")
	group.Use(auth.RequireRole(middleware.RoleAdmin, middleware.RoleAccountant))
	{
		group.GET("/:code", h.Lookup)
		group.POST("/match", h.Match)
		group.POST("/manual", h.RegisterManual)
	}
}

// Lookup resolves a tax code against the registry
// @Summary      Look up a tax code
// @Description  Registry failures are reported in the body with success=false, not as HTTP errors.
// @Tags         tax-codes
// @Security     BearerAuth
// @Produce      json
// @Param        code  path      string  true   "10 or 13 digit tax code"
// @Param        name  query     string  false  "Name to score against the registered names"
// @Success      200   {object}  response.Response{data=taxcode.LookupResult}
// @Router       /api/tax-codes/{code} [get]
func (h *TaxCodeHandler) Lookup(c *gin.Context) {
	res := h.taxCodes.Lookup(c.Request.Context(), c.Param("code"), c.Query("name"))
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Match
// @Summary      Fuzzy-match two company names
// @Tags         tax-codes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      service.MatchRequest  true  "Names"
// @Success      200   {object}  response.Response{data=taxcode.MatchResult}
// @Failure      400   {object}  response.Response
// @Router       /api/tax-codes/match [post]
func (h *TaxCodeHandler) Match(c *gin.Context) {
	var req service.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.taxCodes.Match(req)))
}

// RegisterManual records a registration the registry could not provide
// @Summary      Register a tax code manually
// @Tags         tax-codes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      service.ManualTaxCodeRequest  true  "Registration"
// @Success      201   {object}  response.Response{data=taxcode.LookupResult}
// @Failure      400   {object}  response.Response
// @Router       /api/tax-codes/manual [post]
func (h *TaxCodeHandler) RegisterManual(c *gin.Context) {
	var req service.ManualTaxCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.taxCodes.RegisterManual(c.Request.Context(), req, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}
