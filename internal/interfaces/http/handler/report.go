package handler

import (
	"github.com/gin-gonic/gin"
	reportapp "github.com/opentoworkprojects/bill-sub001/internal/application/report"
)

// ReportHandler handles reporting and dashboard endpoints
type ReportHandler struct {
	BaseHandler
	reports *reportapp.Service
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService *reportapp.Service) *ReportHandler {
	return &ReportHandler{reports: reportService}
}

// RegisterRoutes registers the report routes
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reports := rg.Group("/reports")
	reports.GET("/daily", h.Daily)
	reports.GET("/customer-balances", h.CustomerBalances)
	reports.GET("/customer-balances/:phone", h.CustomerLedger)

	rg.GET("/dashboard", h.Dashboard)
}

// Daily returns the sales of ?date=yyyy-mm-dd, today by default
func (h *ReportHandler) Daily(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	resp, err := h.reports.DailyReport(c.Request.Context(), actor.TenantID, c.Query("date"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}

// CustomerBalances returns every customer with an outstanding balance
func (h *ReportHandler) CustomerBalances(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	resp, err := h.reports.CustomerBalances(c.Request.Context(), actor.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}

// CustomerLedger returns the open credit orders of one customer
func (h *ReportHandler) CustomerLedger(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	resp, err := h.reports.CustomerLedger(c.Request.Context(), actor.TenantID, c.Param("phone"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}

// Dashboard returns the combined snapshot for the home screen
func (h *ReportHandler) Dashboard(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	resp, err := h.reports.Dashboard(c.Request.Context(), actor.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}
