// Package api implements the HTTP API: stateless handlers over the
// store and task queue. A single Handler struct holds every
// dependency; routes are registered per resource group.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aetherframe/orchestrator/internal/config"
	"github.com/aetherframe/orchestrator/internal/db"
	"github.com/aetherframe/orchestrator/internal/middleware"
	"github.com/aetherframe/orchestrator/internal/pipeline"
	"github.com/aetherframe/orchestrator/internal/plugins"
	"github.com/aetherframe/orchestrator/internal/queue"
)

// Deps bundles everything the API's handlers read from. Passed once at
// startup rather than threaded through every handler's constructor
// individually.
type Deps struct {
	Jobs        *db.JobStore
	Findings    *db.FindingStore
	Artifacts   *db.ArtifactStore
	TraceEvents *db.TraceEventStore
	Events      *db.EventStore
	Plugins     *db.PluginStore
	Registry    *plugins.Registry
	Catalogue   *pipeline.Catalogue
	Queue       queue.Queue
	Config      config.Config
	StartedAt   time.Time
}

// NewRouter builds the gin engine with every middleware and route
// group wired.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(gin.Recovery())
	r.Use(middleware.StructuredLogger())
	r.Use(middleware.CORS(deps.Config.CORSOrigins))
	r.Use(middleware.Timeout())
	r.Use(middleware.DefaultSizeLimiter())

	h := &Handler{deps: deps}

	r.GET("/health", h.Health)
	r.GET("/status", h.Status)
	r.GET("/metrics", h.Metrics)

	r.POST("/plugins", middleware.JSONSizeLimiter(), h.CreatePlugin)
	r.GET("/plugins", h.ListPlugins)

	r.POST("/jobs", middleware.JSONSizeLimiter(), h.CreateJob)
	r.GET("/jobs", h.ListJobs)
	r.GET("/jobs/:id", h.GetJob)
	r.POST("/jobs/:id/cancel", h.CancelJob)
	r.GET("/jobs/:id/findings", h.ListJobFindings)
	r.GET("/jobs/:id/artifacts", h.ListJobArtifacts)
	r.GET("/jobs/:id/events", h.ListJobTraceEvents)

	r.POST("/events", middleware.JSONSizeLimiter(), h.CreateEvent)
	r.GET("/events", h.ListEvents)

	r.GET("/pipelines", h.ListPipelines)
	r.GET("/pipelines/:id", h.GetPipeline)

	return r
}

// Handler holds every dependency route handlers need. One instance is
// shared across all routes; it carries no per-request state.
type Handler struct {
	deps Deps
}
