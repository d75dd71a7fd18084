package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aetherframe/orchestrator/internal/apierr"
	"github.com/aetherframe/orchestrator/internal/models"
)

// createEventRequest is the POST /events body shape
// ({event_type, payload, job_id?}), which differs from the column
// names models.EventCreate binds to JSON (type/data) — those column
// names are shared with the worker's internal job_failed emission, so
// the request/response naming is translated here rather than renaming
// the model.
type createEventRequest struct {
	EventType string                 `json:"event_type" binding:"required"`
	Payload   map[string]interface{} `json:"payload"`
	JobID     *int64                 `json:"job_id,omitempty"`
}

func (h *Handler) CreateEvent(c *gin.Context) {
	var in createEventRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		respondErr(c, apierr.BadRequest("invalid request body"))
		return
	}

	event, err := h.deps.Events.Create(c.Request.Context(), models.EventCreate{
		Type:  in.EventType,
		JobID: in.JobID,
		Data:  in.Payload,
	})
	if err != nil {
		respondErr(c, apierr.DatabaseError(err))
		return
	}
	c.JSON(http.StatusCreated, event)
}

func (h *Handler) ListEvents(c *gin.Context) {
	events, err := h.deps.Events.List(c.Request.Context(), 500)
	if err != nil {
		respondErr(c, apierr.DatabaseError(err))
		return
	}
	c.JSON(http.StatusOK, events)
}
