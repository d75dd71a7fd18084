package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aetherframe/orchestrator/internal/apierr"
	"github.com/aetherframe/orchestrator/internal/pipeline"
)

type pipelineSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StageCount  int    `json:"stage_count"`
}

func (h *Handler) ListPipelines(c *gin.Context) {
	pipelines := h.deps.Catalogue.List()
	out := make([]pipelineSummary, 0, len(pipelines))
	for _, p := range pipelines {
		out = append(out, pipelineSummary{ID: p.ID, Name: p.Name, Description: p.Description, StageCount: len(p.Stages)})
	}
	c.JSON(http.StatusOK, out)
}

type stageView struct {
	Name           string `json:"name"`
	PluginID       string `json:"plugin_id"`
	Condition      string `json:"condition"`
	ConditionExpr  string `json:"condition_expr,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	Optional       bool   `json:"optional"`
}

type pipelineView struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Tags        []string    `json:"tags"`
	Stages      []stageView `json:"stages"`
}

func (h *Handler) GetPipeline(c *gin.Context) {
	id := c.Param("id")
	p, err := h.deps.Catalogue.Lookup(id)
	if err != nil {
		if _, ok := err.(pipeline.ErrPipelineNotFound); ok {
			respondErr(c, apierr.PipelineNotFound(id))
			return
		}
		respondErr(c, apierr.Internal(err.Error()))
		return
	}

	view := pipelineView{ID: p.ID, Name: p.Name, Description: p.Description, Tags: p.Tags}
	for _, s := range p.Stages {
		view.Stages = append(view.Stages, stageView{
			Name:           s.Name,
			PluginID:       s.PluginID,
			Condition:      string(s.Condition),
			ConditionExpr:  s.ConditionExpr,
			TimeoutSeconds: s.TimeoutSeconds,
			Optional:       s.Optional,
		})
	}
	c.JSON(http.StatusOK, view)
}
