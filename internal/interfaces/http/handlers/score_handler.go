package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	appassessment "github.com/orbitsec/spacerisk/internal/application/assessment"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/prometheus"
)

// ScoreHandler serves criterion score reads and writes.  An empty threat
// selects the asset-assessment context.
type ScoreHandler struct {
	svc     *appassessment.Service
	mu      *sync.Mutex
	metrics *prometheus.AppMetrics
}

// NewScoreHandler creates a score handler sharing the engine mutex.
func NewScoreHandler(svc *appassessment.Service, mu *sync.Mutex) *ScoreHandler {
	return &ScoreHandler{svc: svc, mu: mu}
}

// WithMetrics attaches the application metrics; nil disables recording.
func (h *ScoreHandler) WithMetrics(m *prometheus.AppMetrics) *ScoreHandler {
	h.metrics = m
	return h
}

// SetScoreRequest is the PUT /scores body.
type SetScoreRequest struct {
	Threat    string `json:"threat"`
	Asset     int    `json:"asset"`
	Criterion int    `json:"criterion"`
	Score     int    `json:"score"`
}

// Set handles PUT /scores.
func (h *ScoreHandler) Set(c *gin.Context) {
	var req SetScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	h.mu.Lock()
	err := h.svc.SetScore(c.Request.Context(), req.Threat, req.Asset, req.Criterion, req.Score)
	stored := h.svc.Store().Len()
	h.mu.Unlock()

	prometheus.RecordScoreWrite(h.metrics, req.Threat != "", err)
	prometheus.RecordScoresStored(h.metrics, stored)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Remove handles DELETE /scores.  Parameters arrive as query values so the
// request carries no body.
func (h *ScoreHandler) Remove(c *gin.Context) {
	asset, ok := intQuery(c, "asset")
	if !ok {
		return
	}
	criterion, ok := intQuery(c, "criterion")
	if !ok {
		return
	}
	threat := c.Query("threat")

	h.mu.Lock()
	removed := h.svc.RemoveScore(c.Request.Context(), threat, asset, criterion)
	stored := h.svc.Store().Len()
	h.mu.Unlock()

	prometheus.RecordScoresStored(h.metrics, stored)
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// Get handles GET /scores.
func (h *ScoreHandler) Get(c *gin.Context) {
	asset, ok := intQuery(c, "asset")
	if !ok {
		return
	}
	criterion, ok := intQuery(c, "criterion")
	if !ok {
		return
	}
	threat := c.Query("threat")

	h.mu.Lock()
	score, present := h.svc.Score(threat, asset, criterion)
	h.mu.Unlock()

	if !present {
		c.JSON(http.StatusOK, gin.H{"present": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"present": true, "score": score})
}

// Aggregate handles GET /scores/aggregate.  Undefined aggregates come back
// with defined=false, never as an error.
func (h *ScoreHandler) Aggregate(c *gin.Context) {
	asset, ok := intQuery(c, "asset")
	if !ok {
		return
	}
	threat := c.Query("threat")

	h.mu.Lock()
	agg := h.svc.Aggregate(threat, asset)
	h.mu.Unlock()

	prometheus.RecordAggregateQuery(h.metrics, threat != "")
	c.JSON(http.StatusOK, agg)
}

// AnalyzedAssets handles GET /analyzed/assets.
func (h *ScoreHandler) AnalyzedAssets(c *gin.Context) {
	threat := c.Query("threat")

	h.mu.Lock()
	ordinals := h.svc.AnalyzedAssets(threat)
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"assets": ordinals})
}

// AnalyzedThreats handles GET /analyzed/threats.
func (h *ScoreHandler) AnalyzedThreats(c *gin.Context) {
	h.mu.Lock()
	names := h.svc.AnalyzedThreats()
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"threats": names})
}

// Clear handles POST /scores/clear.  Applied controls are unaffected; callers
// that want a clean slate remove controls first.
func (h *ScoreHandler) Clear(c *gin.Context) {
	h.mu.Lock()
	h.svc.Clear(c.Request.Context())
	h.mu.Unlock()

	prometheus.RecordScoresStored(h.metrics, 0)
	c.Status(http.StatusNoContent)
}
