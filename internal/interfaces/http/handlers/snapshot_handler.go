package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	appassessment "github.com/orbitsec/spacerisk/internal/application/assessment"
	"github.com/orbitsec/spacerisk/internal/application/controls"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/prometheus"
)

// SnapshotHandler saves and restores named assessment snapshots.  A snapshot
// couples the exported scores with the applied-control set, so loading one
// must restore both sides under the same lock.
type SnapshotHandler struct {
	svc     *appassessment.Service
	engine  *controls.Engine
	mu      *sync.Mutex
	metrics *prometheus.AppMetrics
}

func NewSnapshotHandler(svc *appassessment.Service, engine *controls.Engine, mu *sync.Mutex) *SnapshotHandler {
	return &SnapshotHandler{svc: svc, engine: engine, mu: mu}
}

// WithMetrics attaches the application metrics; nil disables recording.
func (h *SnapshotHandler) WithMetrics(m *prometheus.AppMetrics) *SnapshotHandler {
	h.metrics = m
	return h
}

// SaveSnapshotRequest is the POST /snapshots body.  Name is optional; a
// timestamped default is assigned when empty.
type SaveSnapshotRequest struct {
	Name string `json:"name"`
}

// Save handles POST /snapshots.
func (h *SnapshotHandler) Save(c *gin.Context) {
	var req SaveSnapshotRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	start := time.Now()
	h.mu.Lock()
	snap, err := h.svc.SaveSnapshot(c.Request.Context(), req.Name, h.engine.Applied())
	h.mu.Unlock()

	prometheus.RecordSnapshotOp(h.metrics, "save", time.Since(start), err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":         snap.ID,
		"name":       snap.Name,
		"created_at": snap.CreatedAt,
		"scores":     len(snap.Scores),
		"applied":    len(snap.Applied),
	})
}

// Load handles POST /snapshots/:name/load, replacing the live scores and the
// applied-control set with the snapshot's.
func (h *SnapshotHandler) Load(c *gin.Context) {
	start := time.Now()
	h.mu.Lock()
	snap, err := h.svc.LoadSnapshot(c.Request.Context(), c.Param("name"))
	if err == nil {
		h.engine.RestoreApplied(snap.Applied)
	}
	h.mu.Unlock()

	prometheus.RecordSnapshotOp(h.metrics, "load", time.Since(start), err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":    snap.Name,
		"scores":  len(snap.Scores),
		"applied": len(snap.Applied),
	})
}

// List handles GET /snapshots.
func (h *SnapshotHandler) List(c *gin.Context) {
	start := time.Now()
	infos, err := h.svc.ListSnapshots(c.Request.Context())
	prometheus.RecordSnapshotOp(h.metrics, "list", time.Since(start), err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": infos, "total": len(infos)})
}
