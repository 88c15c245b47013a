package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/orbitsec/spacerisk/internal/domain/catalog"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/logging"
	"github.com/orbitsec/spacerisk/pkg/errors"
)

// CatalogRepository serves the asset, threat, and control catalogs from the
// database and seeds them from the CSV-loaded slices at startup.  It backs
// the same domain repository interfaces as the in-memory CSV repositories, so
// deployments choose either source through wiring alone.
type CatalogRepository struct {
	db     queryExecutor
	logger logging.Logger
}

// NewCatalogRepository builds a catalog repository over the given executor.
func NewCatalogRepository(db queryExecutor, logger logging.Logger) *CatalogRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CatalogRepository{db: db, logger: logger.Named("catalog_repo")}
}

// Seed replaces the stored catalogs with the given slices.  Run once at
// startup after migrations; the catalogs are immutable afterwards.
func (r *CatalogRepository) Seed(ctx context.Context, assets []catalog.Asset, threats []catalog.Threat, controls []catalog.Control) error {
	for _, stmt := range []string{`DELETE FROM controls`, `DELETE FROM threats`, `DELETE FROM assets`} {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to clear catalog tables")
		}
	}

	for _, a := range assets {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO assets (ordinal, category, subcategory, component) VALUES ($1, $2, $3, $4)`,
			a.Ordinal, a.Category, a.Subcategory, a.Component)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError,
				fmt.Sprintf("failed to seed asset %d", a.Ordinal))
		}
	}
	for _, th := range threats {
		if _, err := r.db.ExecContext(ctx, `INSERT INTO threats (name) VALUES ($1)`, th.Name); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError,
				fmt.Sprintf("failed to seed threat %q", th.Name))
		}
	}
	for _, c := range controls {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO controls
				(id, cluster, title, criteria, threats_addressed, segment, description, reference, lifecycle)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			c.ID, c.Cluster, c.Title, c.Criteria, c.ThreatsAddressed,
			c.Segment, c.Description, c.Reference, c.Lifecycle)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError,
				fmt.Sprintf("failed to seed control %q", c.ID))
		}
	}

	r.logger.Info("catalogs seeded",
		logging.Int("assets", len(assets)),
		logging.Int("threats", len(threats)),
		logging.Int("controls", len(controls)))
	return nil
}

// Assets returns the asset repository view.
func (r *CatalogRepository) Assets() catalog.AssetRepository { return (*dbAssetRepo)(r) }

// Threats returns the threat repository view.
func (r *CatalogRepository) Threats() catalog.ThreatRepository { return (*dbThreatRepo)(r) }

// Controls returns the control repository view.
func (r *CatalogRepository) Controls() catalog.ControlRepository { return (*dbControlRepo)(r) }

type dbAssetRepo CatalogRepository

func (r *dbAssetRepo) List(ctx context.Context) ([]catalog.Asset, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ordinal, category, subcategory, component FROM assets ORDER BY ordinal`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list assets")
	}
	defer rows.Close()

	var out []catalog.Asset
	for rows.Next() {
		var a catalog.Asset
		if err := rows.Scan(&a.Ordinal, &a.Category, &a.Subcategory, &a.Component); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan asset row")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *dbAssetRepo) ByOrdinal(ctx context.Context, ordinal int) (catalog.Asset, error) {
	var a catalog.Asset
	err := r.db.QueryRowContext(ctx,
		`SELECT ordinal, category, subcategory, component FROM assets WHERE ordinal = $1`, ordinal).
		Scan(&a.Ordinal, &a.Category, &a.Subcategory, &a.Component)
	if err == sql.ErrNoRows {
		return catalog.Asset{}, errors.New(errors.ErrCodeAssetNotFound,
			fmt.Sprintf("asset ordinal %d not in catalog", ordinal))
	}
	if err != nil {
		return catalog.Asset{}, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load asset")
	}
	return a, nil
}

type dbThreatRepo CatalogRepository

func (r *dbThreatRepo) List(ctx context.Context) ([]catalog.Threat, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM threats ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list threats")
	}
	defer rows.Close()

	var out []catalog.Threat
	for rows.Next() {
		var th catalog.Threat
		if err := rows.Scan(&th.Name); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan threat row")
		}
		out = append(out, th)
	}
	return out, rows.Err()
}

func (r *dbThreatRepo) ByName(ctx context.Context, name string) (catalog.Threat, error) {
	var th catalog.Threat
	err := r.db.QueryRowContext(ctx, `SELECT name FROM threats WHERE name = $1`, name).Scan(&th.Name)
	if err == sql.ErrNoRows {
		return catalog.Threat{}, errors.New(errors.ErrCodeThreatNotFound,
			fmt.Sprintf("threat %q not in catalog", name))
	}
	if err != nil {
		return catalog.Threat{}, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load threat")
	}
	return th, nil
}

type dbControlRepo CatalogRepository

const controlColumns = `id, cluster, title, criteria, threats_addressed, segment, description, reference, lifecycle`

func scanControl(row scanner) (catalog.Control, error) {
	var c catalog.Control
	err := row.Scan(&c.ID, &c.Cluster, &c.Title, &c.Criteria, &c.ThreatsAddressed,
		&c.Segment, &c.Description, &c.Reference, &c.Lifecycle)
	return c, err
}

func (r *dbControlRepo) List(ctx context.Context) ([]catalog.Control, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+controlColumns+` FROM controls ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list controls")
	}
	defer rows.Close()

	var out []catalog.Control
	for rows.Next() {
		c, err := scanControl(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan control row")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *dbControlRepo) ByID(ctx context.Context, id string) (catalog.Control, error) {
	c, err := scanControl(r.db.QueryRowContext(ctx,
		`SELECT `+controlColumns+` FROM controls WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return catalog.Control{}, errors.New(errors.ErrCodeControlNotFound,
			fmt.Sprintf("control %q not in catalog", id))
	}
	if err != nil {
		return catalog.Control{}, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load control")
	}
	return c, nil
}

// ForThreat filters in Go rather than SQL: the containment rules live in
// catalog.Control.Addresses and the catalog is small.
func (r *dbControlRepo) ForThreat(ctx context.Context, threatName string) ([]catalog.Control, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []catalog.Control
	for _, c := range all {
		if c.Addresses(threatName) {
			out = append(out, c)
		}
	}
	return out, nil
}
