package handler

import (
	"net/http"

	"taxcore/internal/middleware"
	"taxcore/internal/service"
	"taxcore/pkg/pagination"
	"taxcore/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaxHandler struct {
	taxService service.TaxService
}

func NewTaxHandler(taxService service.TaxService) *TaxHandler {
	return &TaxHandler{taxService: taxService}
}

func (h *TaxHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	tax := router.Group("/api/tax-rules")
	{
		read := auth.RequireRole(middleware.RoleAdmin, middleware.RoleAccountant, middleware.RoleViewer)
		write := auth.RequireRole(middleware.RoleAdmin)

		tax.GET("", read, h.GetTaxRules)
		tax.GET("/:id", read, h.GetTaxRule)
		tax.POST("", write, h.CreateTaxRule)
		tax.PUT("/:id", write, h.UpdateTaxRule)
		tax.DELETE("/:id", write, h.DeleteTaxRule)
	}
}

// GetTaxRules pages through the rule store
// @Summary      List tax rules
// @Tags         tax-rules
// @Security     BearerAuth
// @Produce      json
// @Param        rule_type  query     string  false  "VAT, VAT_CONFIG, CIT_ADDBACK, CIT_CONFIG or PIT_CONFIG"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Success      200        {object}  response.Response{data=response.Page{items=[]service.TaxRuleResponse}}
// @Router       /api/tax-rules [get]
func (h *TaxHandler) GetTaxRules(c *gin.Context) {
	p := pagination.Parse(c)

	rules, total, err := h.taxService.ListTaxRules(c.Request.Context(), c.Query("rule_type"), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(rules, total, p))
}

// GetTaxRule
// @Summary      Get a tax rule
// @Tags         tax-rules
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  response.Response{data=service.TaxRuleResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/tax-rules/{id} [get]
func (h *TaxHandler) GetTaxRule(c *gin.Context) {
	rule, err := h.taxService.GetTaxRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// CreateTaxRule creates a new tax rule entry
// @Summary      Create a tax rule
// @Description  The condition tree is validated before the rule is stored.
// @Tags         tax-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      service.TaxRuleRequest  true  "Rule"
// @Success      201   {object}  response.Response{data=service.TaxRuleResponse}
// @Failure      400   {object}  response.Response
// @Router       /api/tax-rules [post]
func (h *TaxHandler) CreateTaxRule(c *gin.Context) {
	var req service.TaxRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	rule, err := h.taxService.CreateTaxRule(c.Request.Context(), req, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// UpdateTaxRule
// @Summary      Replace a tax rule
// @Tags         tax-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string                  true  "Rule ID"
// @Param        body  body      service.TaxRuleRequest  true  "Rule"
// @Success      200   {object}  response.Response{data=service.TaxRuleResponse}
// @Failure      400   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Router       /api/tax-rules/{id} [put]
func (h *TaxHandler) UpdateTaxRule(c *gin.Context) {
	var req service.TaxRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	rule, err := h.taxService.UpdateTaxRule(c.Request.Context(), c.Param("id"), req, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// DeleteTaxRule
// @Summary      Delete a tax rule
// @Tags         tax-rules
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/tax-rules/{id} [delete]
func (h *TaxHandler) DeleteTaxRule(c *gin.Context) {
	if err := h.taxService.DeleteTaxRule(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": c.Param("id")}))
}
