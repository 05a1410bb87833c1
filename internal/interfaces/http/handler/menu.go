package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/opentoworkprojects/bill-sub001/internal/application/catalog"
)

// MenuHandler handles the menu endpoints
type MenuHandler struct {
	BaseHandler
	catalog *catalog.Service
}

// NewMenuHandler creates a new MenuHandler
func NewMenuHandler(catalogService *catalog.Service) *MenuHandler {
	return &MenuHandler{catalog: catalogService}
}

// RegisterRoutes registers the menu routes
func (h *MenuHandler) RegisterRoutes(rg *gin.RouterGroup) {
	m := rg.Group("/menu")
	m.GET("", h.ListAvailable)
	m.GET("/all", h.ListAll)
	m.POST("", h.Create)
	m.GET("/:id", h.Get)
	m.PUT("/:id", h.Update)
	m.DELETE("/:id", h.Delete)
	m.PATCH("/:id/availability", h.SetAvailability)
}

// ListAvailable returns the items that can be ordered
func (h *MenuHandler) ListAvailable(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	resp, err := h.catalog.ListAvailable(c.Request.Context(), actor.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}

// ListAll returns every item including unavailable ones
func (h *MenuHandler) ListAll(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	resp, err := h.catalog.ListAll(c.Request.Context(), actor.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}

// Get returns one item
func (h *MenuHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	resp, err := h.catalog.Get(c.Request.Context(), actor.TenantID, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}

// Create adds an item
func (h *MenuHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req catalog.CreateMenuItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.catalog.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Update changes an item
func (h *MenuHandler) Update(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req catalog.UpdateMenuItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.catalog.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}

// SetAvailability toggles whether an item can be ordered
func (h *MenuHandler) SetAvailability(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req catalog.SetAvailabilityRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.catalog.SetAvailability(c.Request.Context(), actor, c.Param("id"), *req.Available)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}

// Delete removes an item
func (h *MenuHandler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.catalog.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
