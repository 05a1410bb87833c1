package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentoworkprojects/bill-sub001/internal/application/floor"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
)

// TableHandler handles the floor plan endpoints
type TableHandler struct {
	BaseHandler
	floor *floor.Service
}

// NewTableHandler creates a new TableHandler
func NewTableHandler(floorService *floor.Service) *TableHandler {
	return &TableHandler{floor: floorService}
}

// RegisterRoutes registers the table routes
func (h *TableHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tables := rg.Group("/tables")
	tables.GET("", h.List)
	tables.POST("", h.Create)
	tables.GET("/:id", h.Get)
	tables.PUT("/:id", h.Update)
	tables.DELETE("/:id", h.Delete)
	tables.POST("/:id/reserve", h.Reserve)
	tables.POST("/:id/clean", h.Clean)
	tables.POST("/:id/release", h.Release)
}

// List returns the table map with derived occupancy
func (h *TableHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	resp, err := h.floor.TableMap(c.Request.Context(), actor.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}

// Get returns one table
func (h *TableHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	resp, err := h.floor.Get(c.Request.Context(), actor.TenantID, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}

// Create adds a table
func (h *TableHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req floor.CreateTableRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.floor.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Update renumbers or resizes a table
func (h *TableHandler) Update(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req floor.UpdateTableRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.floor.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}

// Delete removes a table that has no active orders
func (h *TableHandler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.floor.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Reserve marks a table reserved
func (h *TableHandler) Reserve(c *gin.Context) {
	h.mark(c, h.floor.Reserve)
}

// Clean marks a table as being cleaned
func (h *TableHandler) Clean(c *gin.Context) {
	h.mark(c, h.floor.MarkCleaning)
}

// Release clears a reserved or cleaning mark
func (h *TableHandler) Release(c *gin.Context) {
	h.mark(c, h.floor.Release)
}

func (h *TableHandler) mark(c *gin.Context, op func(ctx context.Context, actor shared.Actor, id string) (*floor.TableResponse, error)) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	resp, err := op(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}
