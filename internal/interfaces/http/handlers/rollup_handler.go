package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orbitsec/spacerisk/internal/application/rollup"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/prometheus"
)

// RollupHandler serves per-threat rollups and the all-threat summary.
// Rollups recompute from the live store, so reads take the engine mutex too.
type RollupHandler struct {
	svc     *rollup.Service
	mu      *sync.Mutex
	metrics *prometheus.AppMetrics
}

// NewRollupHandler creates a rollup handler sharing the engine mutex.
func NewRollupHandler(svc *rollup.Service, mu *sync.Mutex) *RollupHandler {
	return &RollupHandler{svc: svc, mu: mu}
}

// WithMetrics attaches the application metrics; nil disables recording.
func (h *RollupHandler) WithMetrics(m *prometheus.AppMetrics) *RollupHandler {
	h.metrics = m
	return h
}

// ForThreat handles GET /rollup/threats/:name.
func (h *RollupHandler) ForThreat(c *gin.Context) {
	start := time.Now()
	h.mu.Lock()
	result, err := h.svc.ForThreat(c.Request.Context(), c.Param("name"))
	h.mu.Unlock()
	if err != nil {
		respondError(c, err)
		return
	}
	prometheus.RecordRollup(h.metrics, "threat", time.Since(start))
	c.JSON(http.StatusOK, result)
}

// Summary handles GET /rollup/summary: one row per catalog threat, empty
// rows included.
func (h *RollupHandler) Summary(c *gin.Context) {
	start := time.Now()
	h.mu.Lock()
	results, err := h.svc.Summary(c.Request.Context())
	h.mu.Unlock()
	if err != nil {
		respondError(c, err)
		return
	}
	prometheus.RecordRollup(h.metrics, "summary", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"threats": results, "total": len(results)})
}
