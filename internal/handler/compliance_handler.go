package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"taxcore/internal/middleware"
	"taxcore/internal/service"
	"taxcore/pkg/response"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ComplianceHandler struct {
	compliance service.ComplianceService
}

func NewComplianceHandler(compliance service.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{compliance: compliance}
}

func (h *ComplianceHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	api := router.Group("/api")
	api.Use(auth.RequireRole(middleware.RoleAdmin, middleware.RoleAccountant))
	{
		api.POST("/vat/validate", h.ValidateVAT)
		api.GET("/vat/issues", h.VATIssues)

		api.POST("/cit/calculate", h.CalculateCIT)
		api.POST("/cit/period", h.PeriodCIT)

		api.POST("/pit/calculate", h.CalculatePIT)
		api.POST("/pit/batch", h.CalculatePITBatch)
		api.GET("/pit/payroll/:period", h.PayrollPIT)
	}
}

// ValidateVAT decides whether the input VAT of one purchase is creditable
// @Summary      Validate input VAT deductibility
// @Tags         vat
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      service.VATTransactionRequest  true  "Purchase"
// @Success      200   {object}  response.Response{data=vat.Result}
// @Failure      400   {object}  response.Response
// @Router       /api/vat/validate [post]
func (h *ComplianceHandler) ValidateVAT(c *gin.Context) {
	var req service.VATTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tx, err := req.Transaction()
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := h.compliance.ValidateVAT(c.Request.Context(), tx)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// VATIssues validates every purchase invoice in a date range
// @Summary      VAT issues report
// @Description  Returns JSON, or an XLSX workbook when format=xlsx.
// @Tags         vat
// @Security     BearerAuth
// @Produce      json
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        from    query     string  true   "Start date (YYYY-MM-DD)"
// @Param        to      query     string  true   "End date (YYYY-MM-DD)"
// @Param        format  query     string  false  "json (default) or xlsx"
// @Success      200     {object}  response.Response{data=vat.IssuesReport}
// @Failure      400     {object}  response.Response
// @Router       /api/vat/issues [get]
func (h *ComplianceHandler) VATIssues(c *gin.Context) {
	from, to, err := service.ParseRange(c.Query("from"), c.Query("to"))
	if err != nil {
		writeError(c, err)
		return
	}

	report, err := h.compliance.VATIssues(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, err)
		return
	}

	if c.Query("format") != "xlsx" {
		c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
		return
	}

	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf); err != nil {
		writeError(c, fmt.Errorf("failed to render issues workbook: %w", err))
		return
	}
	filename := fmt.Sprintf("vat-issues-%s-%s.xlsx", from.Format(time.DateOnly), to.Format(time.DateOnly))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// CalculateCIT
// @Summary      Calculate CIT with add-backs
// @Tags         cit
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      service.CITRequest  true  "Period, profit and expense lines"
// @Success      200   {object}  response.Response{data=cit.Result}
// @Failure      400   {object}  response.Response
// @Router       /api/cit/calculate [post]
func (h *ComplianceHandler) CalculateCIT(c *gin.Context) {
	var req service.CITRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	in, err := req.Input()
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := h.compliance.CalculateCIT(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// PeriodCIT runs the add-back calculation over stored expense lines
// @Summary      CIT for a stored period
// @Tags         cit
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      service.CITPeriodRequest  true  "Period and accounting profit"
// @Success      200   {object}  response.Response{data=cit.Result}
// @Failure      400   {object}  response.Response
// @Router       /api/cit/period [post]
func (h *ComplianceHandler) PeriodCIT(c *gin.Context) {
	var req service.CITPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	from, to, err := req.Range()
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := h.compliance.PeriodCIT(c.Request.Context(), from, to, req.AccountingProfit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// CalculatePIT
// @Summary      Calculate monthly PIT for one employee
// @Tags         pit
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      service.PITRequest  true  "Employee income"
// @Success      200   {object}  response.Response{data=pit.Result}
// @Failure      400   {object}  response.Response
// @Failure      422   {object}  response.Response
// @Router       /api/pit/calculate [post]
func (h *ComplianceHandler) CalculatePIT(c *gin.Context) {
	var req service.PITRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	in, err := req.Input()
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := h.compliance.CalculatePIT(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// CalculatePITBatch computes every employee independently
// @Summary      Calculate PIT for a batch of employees
// @Description  Employees that cannot be computed are listed under errors and excluded from total_tax.
// @Tags         pit
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      service.PITBatchRequest  true  "Employees"
// @Success      200   {object}  response.Response{data=pit.BatchResult}
// @Failure      400   {object}  response.Response
// @Router       /api/pit/batch [post]
func (h *ComplianceHandler) CalculatePITBatch(c *gin.Context) {
	var req service.PITBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	inputs, err := req.Inputs()
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.compliance.CalculatePITBatch(c.Request.Context(), inputs)))
}

// PayrollPIT
// @Summary      PIT for a stored payroll period
// @Tags         pit
// @Security     BearerAuth
// @Produce      json
// @Param        period  path      string  true  "Payroll period (YYYY-MM)"
// @Success      200     {object}  response.Response{data=pit.BatchResult}
// @Failure      400     {object}  response.Response
// @Router       /api/pit/payroll/{period} [get]
func (h *ComplianceHandler) PayrollPIT(c *gin.Context) {
	res, err := h.compliance.PayrollPIT(c.Request.Context(), c.Param("period"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
