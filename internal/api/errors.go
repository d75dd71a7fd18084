package api

import (
	"github.com/gin-gonic/gin"

	"github.com/aetherframe/orchestrator/internal/apierr"
)

// respondErr writes an AppError as JSON at its designated status code —
// the one place an *apierr.AppError crosses into an HTTP response.
func respondErr(c *gin.Context, err *apierr.AppError) {
	c.JSON(err.StatusCode, err.ToResponse())
}
