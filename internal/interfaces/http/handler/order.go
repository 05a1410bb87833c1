package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/opentoworkprojects/bill-sub001/internal/application/billing"
	reportapp "github.com/opentoworkprojects/bill-sub001/internal/application/report"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/order"
)

// OrderHandler handles the order lifecycle endpoints
type OrderHandler struct {
	BaseHandler
	billing *billing.Service
	reports *reportapp.Service
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(billingService *billing.Service, reportService *reportapp.Service) *OrderHandler {
	return &OrderHandler{billing: billingService, reports: reportService}
}

// RegisterRoutes registers the order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	orders.POST("", h.Create)
	orders.GET("", h.ListActive)
	orders.GET("/today-bills", h.TodaysBills)
	orders.GET("/history", h.History)
	orders.GET("/:id", h.Get)
	orders.PUT("/:id", h.Edit)
	orders.DELETE("/:id", h.Cancel)
	orders.PUT("/:id/status", h.UpdateStatus)
	orders.POST("/:id/payment", h.ApplyPayment)
	orders.PUT("/:id/complete", h.Complete)
	orders.POST("/:id/settle-credit", h.SettleCredit)
}

// Create places a new order
func (h *OrderHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req billing.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.billing.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListActive returns the orders that are not yet billed or cancelled
func (h *OrderHandler) ListActive(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	resp, err := h.reports.ActiveOrders(c.Request.Context(), actor.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}

// TodaysBills returns today's billed orders
func (h *OrderHandler) TodaysBills(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	resp, err := h.reports.TodaysBills(c.Request.Context(), actor.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}

// History lists orders between two dates
func (h *OrderHandler) History(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var f billing.HistoryFilter
	if !h.bindQuery(c, &f) {
		return
	}
	resp, err := h.billing.History(c.Request.Context(), actor, f)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}

// Get returns one order
func (h *OrderHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	resp, err := h.billing.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}

// Edit changes a pending order
func (h *OrderHandler) Edit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req billing.EditOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.billing.Edit(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}

// UpdateStatus moves an order to preparing or ready
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req billing.UpdateStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.billing.UpdateStatus(c.Request.Context(), actor, c.Param("id"), order.Status(req.Status))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}

// ApplyPayment records a payment against an order
func (h *OrderHandler) ApplyPayment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req billing.PaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.billing.ApplyPayment(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}

// Complete bills an order, optionally on credit
func (h *OrderHandler) Complete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req billing.CompleteOrderRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	resp, err := h.billing.Complete(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}

// SettleCredit reduces the balance of a credit order
func (h *OrderHandler) SettleCredit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req billing.SettleCreditRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.billing.SettleCredit(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}

// Cancel cancels an order. The body with a reason is optional.
func (h *OrderHandler) Cancel(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req billing.CancelOrderRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	resp, err := h.billing.Cancel(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}
