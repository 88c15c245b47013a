package catalog

import "context"

// AssetRepository defines the read contract for the asset catalog.
// Implementations load from CSV or PostgreSQL; the catalog is immutable at
// runtime so there are no write operations.
type AssetRepository interface {
	// List returns every asset ordered by ordinal.
	List(ctx context.Context) ([]Asset, error)

	// ByOrdinal returns the asset at the given catalog position.
	// Returns a CAT_001 not-found error for out-of-range ordinals.
	ByOrdinal(ctx context.Context, ordinal int) (Asset, error)
}

// ThreatRepository defines the read contract for the threat catalog.
type ThreatRepository interface {
	// List returns every threat, sorted by name.
	List(ctx context.Context) ([]Threat, error)

	// ByName returns the threat with the exact given name.
	// Returns a CAT_002 not-found error when absent.
	ByName(ctx context.Context, name string) (Threat, error)
}

// ControlRepository defines the read contract for the control catalog.
type ControlRepository interface {
	// List returns every control in catalog order.
	List(ctx context.Context) ([]Control, error)

	// ByID returns the control with the given id.
	// Returns a CTL_001 not-found error when absent.
	ByID(ctx context.Context, id string) (Control, error)

	// ForThreat returns the controls whose threats-addressed text covers the
	// named threat, in catalog order.
	ForThreat(ctx context.Context, threatName string) ([]Control, error)
}
