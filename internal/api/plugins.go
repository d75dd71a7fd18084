package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aetherframe/orchestrator/internal/apierr"
	"github.com/aetherframe/orchestrator/internal/models"
)

// CreatePlugin registers a catalogue row; 422 on empty name/version.
// This is purely informational bookkeeping, not a live plugin
// registration (see models.Plugin's doc comment).
func (h *Handler) CreatePlugin(c *gin.Context) {
	var in models.PluginCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		respondErr(c, apierr.BadRequest("invalid request body"))
		return
	}
	if in.Name == "" || in.Version == "" {
		c.JSON(http.StatusUnprocessableEntity, apierr.ValidationFailed("name and version are required").ToResponse())
		return
	}

	p, err := h.deps.Plugins.Create(c.Request.Context(), in)
	if err != nil {
		respondErr(c, apierr.DatabaseError(err))
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListPlugins(c *gin.Context) {
	rows, err := h.deps.Plugins.List(c.Request.Context())
	if err != nil {
		respondErr(c, apierr.DatabaseError(err))
		return
	}
	c.JSON(http.StatusOK, rows)
}
