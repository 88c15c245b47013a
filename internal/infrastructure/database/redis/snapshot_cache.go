package redis

import (
	"context"
	"time"

	appassessment "github.com/orbitsec/spacerisk/internal/application/assessment"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/logging"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/prometheus"
)

// CachedSnapshotRepository decorates a snapshot repository with a
// read-through cache on Load.  Saves write through to the inner repository
// and invalidate the cached entry; List always hits the inner repository so
// the listing never shows stale rows.
type CachedSnapshotRepository struct {
	inner   appassessment.SnapshotRepository
	cache   Cache
	ttl     time.Duration
	logger  logging.Logger
	metrics *prometheus.AppMetrics
}

// NewCachedSnapshotRepository wraps inner with the cache.  ttl <= 0 uses the
// cache default.
func NewCachedSnapshotRepository(
	inner appassessment.SnapshotRepository,
	cache Cache,
	ttl time.Duration,
	logger logging.Logger,
) *CachedSnapshotRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CachedSnapshotRepository{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger.Named("snapshot_cache"),
	}
}

// WithMetrics attaches the application metrics; nil disables recording.
func (r *CachedSnapshotRepository) WithMetrics(m *prometheus.AppMetrics) *CachedSnapshotRepository {
	r.metrics = m
	return r
}

func snapshotKey(name string) string { return "snapshot:" + name }

func (r *CachedSnapshotRepository) Save(ctx context.Context, snap *appassessment.Snapshot) error {
	if err := r.inner.Save(ctx, snap); err != nil {
		return err
	}
	if err := r.cache.Delete(ctx, snapshotKey(snap.Name)); err != nil {
		r.logger.Warn("failed to invalidate cached snapshot",
			logging.String("name", snap.Name), logging.Err(err))
	}
	return nil
}

func (r *CachedSnapshotRepository) Load(ctx context.Context, name string) (*appassessment.Snapshot, error) {
	var snap appassessment.Snapshot
	// GetOrSet only invokes the loader on a miss, so the flag doubles as
	// the hit/miss verdict.
	fetched := false
	err := r.cache.GetOrSet(ctx, snapshotKey(name), &snap, r.ttl,
		func(ctx context.Context) (interface{}, error) {
			fetched = true
			return r.inner.Load(ctx, name)
		})
	if err != nil {
		return nil, err
	}
	prometheus.RecordCacheAccess(r.metrics, "snapshot", !fetched)
	return &snap, nil
}

func (r *CachedSnapshotRepository) List(ctx context.Context) ([]appassessment.SnapshotInfo, error) {
	return r.inner.List(ctx)
}
