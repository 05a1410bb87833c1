package handler

import (
	"github.com/gin-gonic/gin"
	settingsapp "github.com/opentoworkprojects/bill-sub001/internal/application/settings"
)

// SettingsHandler handles the business profile endpoints
type SettingsHandler struct {
	BaseHandler
	settings *settingsapp.Service
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settingsService *settingsapp.Service) *SettingsHandler {
	return &SettingsHandler{settings: settingsService}
}

// RegisterRoutes registers the settings routes
func (h *SettingsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/business/settings", h.Get)
	rg.PUT("/business/settings", h.Update)
}

// Get returns the business profile
func (h *SettingsHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	resp, err := h.settings.Get(c.Request.Context(), actor.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}

// Update replaces the business profile
func (h *SettingsHandler) Update(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req settingsapp.UpdateProfileRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.settings.Update(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, resp)
}
