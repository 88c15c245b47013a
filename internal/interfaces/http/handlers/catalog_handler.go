package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitsec/spacerisk/internal/domain/assessment"
	"github.com/orbitsec/spacerisk/internal/domain/catalog"
)

// CatalogHandler serves the immutable asset and threat catalogs and the
// criterion tables.
type CatalogHandler struct {
	assets  catalog.AssetRepository
	threats catalog.ThreatRepository
}

func NewCatalogHandler(assets catalog.AssetRepository, threats catalog.ThreatRepository) *CatalogHandler {
	return &CatalogHandler{assets: assets, threats: threats}
}

// assetView adds the display label to the catalog entry.
type assetView struct {
	Ordinal     int    `json:"ordinal"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Component   string `json:"component"`
	Label       string `json:"label"`
}

// Assets handles GET /catalog/assets.
func (h *CatalogHandler) Assets(c *gin.Context) {
	items, err := h.assets.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]assetView, len(items))
	for i, a := range items {
		views[i] = assetView{
			Ordinal:     a.Ordinal,
			Category:    a.Category,
			Subcategory: a.Subcategory,
			Component:   a.Component,
			Label:       a.Label(),
		}
	}
	c.JSON(http.StatusOK, gin.H{"assets": views, "total": len(views)})
}

// Threats handles GET /catalog/threats.
func (h *CatalogHandler) Threats(c *gin.Context) {
	items, err := h.threats.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	names := make([]string, len(items))
	for i, t := range items {
		names[i] = t.Name
	}
	c.JSON(http.StatusOK, gin.H{"threats": names, "total": len(names)})
}

// criterionView names one criterion and its aggregate kind.
type criterionView struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
}

// Criteria handles GET /catalog/criteria.  The context query selects the
// threat or asset table; anything else is rejected.
func (h *CatalogHandler) Criteria(c *gin.Context) {
	var names []string
	var likelihood map[int]bool

	switch c.DefaultQuery("context", "threat") {
	case "threat":
		names = assessment.ThreatCriteria
		likelihood = indexSet(assessment.ThreatLikelihoodIndexes)
	case "asset":
		names = assessment.AssetCriteria
		likelihood = indexSet(assessment.AssetLikelihoodIndexes)
	default:
		respondBadRequest(c, `context must be "threat" or "asset"`)
		return
	}

	views := make([]criterionView, len(names))
	for i, name := range names {
		kind := "impact"
		if likelihood[i] {
			kind = "likelihood"
		}
		views[i] = criterionView{Index: i, Name: name, Kind: kind}
	}
	c.JSON(http.StatusOK, gin.H{"criteria": views, "total": len(views)})
}

func indexSet(indexes []int) map[int]bool {
	set := make(map[int]bool, len(indexes))
	for _, i := range indexes {
		set[i] = true
	}
	return set
}
