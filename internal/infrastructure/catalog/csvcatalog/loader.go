// Package csvcatalog loads the asset, threat, and control catalogs from
// semicolon-delimited CSV files, falling back to the built-in catalogs when a
// file is absent.
package csvcatalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/orbitsec/spacerisk/internal/domain/catalog"
	"github.com/orbitsec/spacerisk/pkg/errors"
)

// DefaultDelimiter matches the catalog files shipped with the original
// datasets.
const DefaultDelimiter = ';'

// asset file columns
const (
	colAssetCategory    = "categories"
	colAssetSubcategory = "subCategories"
	colAssetComponent   = "asset"
)

// threat file column
const colThreatName = "THREAT"

// control file columns
const (
	colControlID          = "Control"
	colControlCluster     = "Cluster"
	colControlTitle       = "Control title"
	colControlCriteria    = "Criteria"
	colControlThreats     = "Threats addressed"
	colControlSegment     = "Segment"
	colControlDescription = "Control description"
	colControlReference   = "Reference frameworks"
	colControlLifecycle   = "Lifecycle phase"
)

// header maps column names to indices, trimming a UTF-8 BOM on the first
// column.
type header map[string]int

func readHeader(r *csv.Reader) (header, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	h := make(header, len(row))
	for i, name := range row {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		h[strings.TrimSpace(name)] = i
	}
	return h, nil
}

func (h header) get(row []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func newReader(f io.Reader, delimiter rune) *csv.Reader {
	r := csv.NewReader(f)
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r
}

// LoadAssets parses an asset catalog file.  Rows with any blank column are
// skipped, matching the original loader.
func LoadAssets(path string, delimiter rune) ([]catalog.Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := newReader(f, delimiter)
	h, err := readHeader(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCatalogParseFailed,
			fmt.Sprintf("unreadable asset catalog header in %s", path))
	}

	var assets []catalog.Asset
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCatalogParseFailed,
				fmt.Sprintf("malformed row in asset catalog %s", path))
		}
		category := h.get(row, colAssetCategory)
		subcategory := h.get(row, colAssetSubcategory)
		component := h.get(row, colAssetComponent)
		if category == "" || subcategory == "" || component == "" {
			continue
		}
		assets = append(assets, catalog.Asset{
			Ordinal:     len(assets),
			Category:    category,
			Subcategory: subcategory,
			Component:   component,
		})
	}
	return assets, nil
}

// LoadThreats parses a threat catalog file.  Names are deduplicated and
// sorted, matching the original loader.
func LoadThreats(path string, delimiter rune) ([]catalog.Threat, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := newReader(f, delimiter)
	h, err := readHeader(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCatalogParseFailed,
			fmt.Sprintf("unreadable threat catalog header in %s", path))
	}

	seen := make(map[string]struct{})
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCatalogParseFailed,
				fmt.Sprintf("malformed row in threat catalog %s", path))
		}
		if name := h.get(row, colThreatName); name != "" {
			seen[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	threats := make([]catalog.Threat, len(names))
	for i, name := range names {
		threats[i] = catalog.Threat{Name: name}
	}
	return threats, nil
}

// LoadControls parses a control catalog file.  A file whose header carries
// neither a control identifier nor a threats-addressed column is rejected as
// corrupt rather than silently yielding inert controls.
func LoadControls(path string, delimiter rune) ([]catalog.Control, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := newReader(f, delimiter)
	h, err := readHeader(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCatalogParseFailed,
			fmt.Sprintf("unreadable control catalog header in %s", path))
	}
	if _, hasID := h[colControlID]; !hasID {
		return nil, errors.New(errors.ErrCodeControlCatalogCorrupt,
			fmt.Sprintf("control catalog %s has no %q column", path, colControlID))
	}
	if _, hasThreats := h[colControlThreats]; !hasThreats {
		return nil, errors.New(errors.ErrCodeControlCatalogCorrupt,
			fmt.Sprintf("control catalog %s has no %q column", path, colControlThreats))
	}

	var controls []catalog.Control
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCatalogParseFailed,
				fmt.Sprintf("malformed row in control catalog %s", path))
		}
		id := h.get(row, colControlID)
		if id == "" {
			continue
		}
		controls = append(controls, catalog.Control{
			ID:               id,
			Cluster:          h.get(row, colControlCluster),
			Title:            h.get(row, colControlTitle),
			Criteria:         h.get(row, colControlCriteria),
			ThreatsAddressed: h.get(row, colControlThreats),
			Segment:          h.get(row, colControlSegment),
			Description:      h.get(row, colControlDescription),
			Reference:        h.get(row, colControlReference),
			Lifecycle:        h.get(row, colControlLifecycle),
		})
	}
	return controls, nil
}
