package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/orbitsec/spacerisk/internal/application/controls"
	"github.com/orbitsec/spacerisk/internal/domain/catalog"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/prometheus"
)

// ControlHandler serves the control catalog and the apply/remove engine.
type ControlHandler struct {
	engine  *controls.Engine
	catalog catalog.ControlRepository
	mu      *sync.Mutex
	metrics *prometheus.AppMetrics
}

// NewControlHandler creates a control handler sharing the engine mutex.
func NewControlHandler(engine *controls.Engine, repo catalog.ControlRepository, mu *sync.Mutex) *ControlHandler {
	return &ControlHandler{engine: engine, catalog: repo, mu: mu}
}

// WithMetrics attaches the application metrics; nil disables recording.
func (h *ControlHandler) WithMetrics(m *prometheus.AppMetrics) *ControlHandler {
	h.metrics = m
	return h
}

func touchedCount(effect *controls.Effect) int {
	if effect == nil {
		return 0
	}
	return effect.Touched
}

// List handles GET /controls.
func (h *ControlHandler) List(c *gin.Context) {
	items, err := h.catalog.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"controls": items, "total": len(items)})
}

// Get handles GET /controls/:id.
func (h *ControlHandler) Get(c *gin.Context) {
	ctl, err := h.catalog.ByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctl)
}

// Applied handles GET /controls/applied.
func (h *ControlHandler) Applied(c *gin.Context) {
	h.mu.Lock()
	ids := h.engine.Applied()
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"applied": ids, "total": len(ids)})
}

// Apply handles POST /controls/:id/apply.
func (h *ControlHandler) Apply(c *gin.Context) {
	h.mu.Lock()
	effect, err := h.engine.Apply(c.Request.Context(), c.Param("id"))
	h.mu.Unlock()

	prometheus.RecordControlApply(h.metrics, touchedCount(effect), err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, effect)
}

// Remove handles POST /controls/:id/remove.
func (h *ControlHandler) Remove(c *gin.Context) {
	h.mu.Lock()
	effect, err := h.engine.Remove(c.Request.Context(), c.Param("id"))
	h.mu.Unlock()

	prometheus.RecordControlRemove(h.metrics, touchedCount(effect), err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, effect)
}

// Clear handles POST /controls/clear, removing every applied control in
// reverse application order.
func (h *ControlHandler) Clear(c *gin.Context) {
	h.mu.Lock()
	err := h.engine.ClearAll(c.Request.Context())
	remaining := len(h.engine.Applied())
	h.mu.Unlock()

	prometheus.RecordControlsApplied(h.metrics, remaining)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ForThreat handles GET /threats/:name/controls: the catalog controls whose
// declared threats cover the named one.
func (h *ControlHandler) ForThreat(c *gin.Context) {
	items, err := h.catalog.ForThreat(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"controls": items, "total": len(items)})
}
