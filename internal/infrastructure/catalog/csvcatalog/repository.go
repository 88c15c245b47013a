package csvcatalog

import (
	"context"
	"fmt"
	"os"

	"github.com/orbitsec/spacerisk/internal/config"
	"github.com/orbitsec/spacerisk/internal/domain/catalog"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/logging"
	"github.com/orbitsec/spacerisk/pkg/errors"
)

// Catalogs bundles the three in-memory repositories loaded at startup.  The
// catalogs are immutable for the process lifetime.
type Catalogs struct {
	assets   *AssetRepository
	threats  *ThreatRepository
	controls *ControlRepository
}

// Load reads the catalog files named in cfg.  A missing asset or threat file
// falls back to the built-in catalogs with a warning; a missing control file
// yields an empty control catalog.  Parse failures are returned, never
// papered over.
func Load(cfg config.CatalogConfig, logger logging.Logger) (*Catalogs, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.Named("catalog")

	delimiter := DefaultDelimiter
	if cfg.CSVDelimiter != "" {
		delimiter = rune(cfg.CSVDelimiter[0])
	}

	assets, err := LoadAssets(cfg.AssetsCSVPath, delimiter)
	switch {
	case err == nil:
		logger.Info("asset catalog loaded",
			logging.String("path", cfg.AssetsCSVPath),
			logging.Int("assets", len(assets)))
	case os.IsNotExist(err):
		assets = catalog.DefaultAssets()
		logger.Warn("asset catalog file missing, using built-in catalog",
			logging.String("path", cfg.AssetsCSVPath))
	default:
		return nil, errors.Wrap(err, errors.ErrCodeCatalogLoadFailed,
			fmt.Sprintf("failed to load asset catalog %s", cfg.AssetsCSVPath))
	}

	threats, err := LoadThreats(cfg.ThreatsCSVPath, delimiter)
	switch {
	case err == nil:
		logger.Info("threat catalog loaded",
			logging.String("path", cfg.ThreatsCSVPath),
			logging.Int("threats", len(threats)))
	case os.IsNotExist(err):
		threats = catalog.DefaultThreats()
		logger.Warn("threat catalog file missing, using built-in catalog",
			logging.String("path", cfg.ThreatsCSVPath))
	default:
		return nil, errors.Wrap(err, errors.ErrCodeCatalogLoadFailed,
			fmt.Sprintf("failed to load threat catalog %s", cfg.ThreatsCSVPath))
	}

	controls, err := LoadControls(cfg.ControlsCSVPath, delimiter)
	switch {
	case err == nil:
		logger.Info("control catalog loaded",
			logging.String("path", cfg.ControlsCSVPath),
			logging.Int("controls", len(controls)))
	case os.IsNotExist(err):
		controls = nil
		logger.Warn("control catalog file missing, no controls available",
			logging.String("path", cfg.ControlsCSVPath))
	default:
		return nil, errors.Wrap(err, errors.ErrCodeCatalogLoadFailed,
			fmt.Sprintf("failed to load control catalog %s", cfg.ControlsCSVPath))
	}

	return NewCatalogs(assets, threats, controls), nil
}

// NewCatalogs wraps already-loaded catalog slices in repositories.
func NewCatalogs(assets []catalog.Asset, threats []catalog.Threat, controls []catalog.Control) *Catalogs {
	return &Catalogs{
		assets:   &AssetRepository{assets: assets},
		threats:  &ThreatRepository{threats: threats},
		controls: &ControlRepository{controls: controls},
	}
}

func (c *Catalogs) Assets() catalog.AssetRepository     { return c.assets }
func (c *Catalogs) Threats() catalog.ThreatRepository   { return c.threats }
func (c *Catalogs) Controls() catalog.ControlRepository { return c.controls }

// AssetRepository serves the in-memory asset catalog.
type AssetRepository struct {
	assets []catalog.Asset
}

func (r *AssetRepository) List(context.Context) ([]catalog.Asset, error) {
	out := make([]catalog.Asset, len(r.assets))
	copy(out, r.assets)
	return out, nil
}

func (r *AssetRepository) ByOrdinal(_ context.Context, ordinal int) (catalog.Asset, error) {
	if ordinal < 0 || ordinal >= len(r.assets) {
		return catalog.Asset{}, errors.New(errors.ErrCodeAssetNotFound,
			fmt.Sprintf("asset ordinal %d outside catalog of %d", ordinal, len(r.assets)))
	}
	return r.assets[ordinal], nil
}

// ThreatRepository serves the in-memory threat catalog.
type ThreatRepository struct {
	threats []catalog.Threat
}

func (r *ThreatRepository) List(context.Context) ([]catalog.Threat, error) {
	out := make([]catalog.Threat, len(r.threats))
	copy(out, r.threats)
	return out, nil
}

func (r *ThreatRepository) ByName(_ context.Context, name string) (catalog.Threat, error) {
	for _, th := range r.threats {
		if th.Name == name {
			return th, nil
		}
	}
	return catalog.Threat{}, errors.New(errors.ErrCodeThreatNotFound,
		fmt.Sprintf("threat %q not in catalog", name))
}

// ControlRepository serves the in-memory control catalog.
type ControlRepository struct {
	controls []catalog.Control
}

func (r *ControlRepository) List(context.Context) ([]catalog.Control, error) {
	out := make([]catalog.Control, len(r.controls))
	copy(out, r.controls)
	return out, nil
}

func (r *ControlRepository) ByID(_ context.Context, id string) (catalog.Control, error) {
	for _, c := range r.controls {
		if c.ID == id {
			return c, nil
		}
	}
	return catalog.Control{}, errors.New(errors.ErrCodeControlNotFound,
		fmt.Sprintf("control %q not in catalog", id))
}

func (r *ControlRepository) ForThreat(_ context.Context, threatName string) ([]catalog.Control, error) {
	var out []catalog.Control
	for _, c := range r.controls {
		if c.Addresses(threatName) {
			out = append(out, c)
		}
	}
	return out, nil
}
