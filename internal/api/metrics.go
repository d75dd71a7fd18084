package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aetherframe/orchestrator/internal/db"
)

// jobsCollector is a prometheus.Collector that queries the job store on
// every scrape instead of keeping counters updated on the write path —
// simplest correct option given jobs already live in the store, and
// scrape frequency is low enough that the extra query is cheap. It
// emits two gauge families: aether_jobs_total and
// aether_jobs_status_total{status="…"}.
type jobsCollector struct {
	jobs *db.JobStore

	total       *prometheus.Desc
	statusTotal *prometheus.Desc
}

func newJobsCollector(jobs *db.JobStore) *jobsCollector {
	return &jobsCollector{
		jobs:        jobs,
		total:       prometheus.NewDesc("aether_jobs_total", "Total number of jobs known to the store", nil, nil),
		statusTotal: prometheus.NewDesc("aether_jobs_status_total", "Number of jobs currently in each status", []string{"status"}, nil),
	}
}

func (c *jobsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.statusTotal
}

func (c *jobsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	jobs, err := c.jobs.List(ctx, "", 100000)
	if err != nil {
		return
	}

	byStatus := map[string]int{}
	for _, j := range jobs {
		byStatus[string(j.Status)]++
	}

	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(len(jobs)))
	for status, n := range byStatus {
		ch <- prometheus.MustNewConstMetric(c.statusTotal, prometheus.GaugeValue, float64(n), status)
	}
}

// Metrics serves the Prometheus exposition format. Each request builds
// a fresh registry holding only the jobs collector, so no registry has
// to be wired at startup.
func (h *Handler) Metrics(c *gin.Context) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(newJobsCollector(h.deps.Jobs))
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(c.Writer, c.Request)
}
