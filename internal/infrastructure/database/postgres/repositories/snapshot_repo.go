package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	appassessment "github.com/orbitsec/spacerisk/internal/application/assessment"
	"github.com/orbitsec/spacerisk/internal/domain/assessment"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/logging"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/prometheus"
	"github.com/orbitsec/spacerisk/pkg/errors"
)

// SnapshotRepository persists assessment snapshots in the snapshots table.
// Scores and applied-control ids are stored as JSONB; a snapshot name is
// unique and saving again under the same name replaces the stored state.
type SnapshotRepository struct {
	db      queryExecutor
	logger  logging.Logger
	metrics *prometheus.AppMetrics
}

// NewSnapshotRepository builds a snapshot repository over the given executor.
func NewSnapshotRepository(db queryExecutor, logger logging.Logger) *SnapshotRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SnapshotRepository{db: db, logger: logger.Named("snapshot_repo")}
}

// WithMetrics attaches the application metrics; nil disables recording.
func (r *SnapshotRepository) WithMetrics(m *prometheus.AppMetrics) *SnapshotRepository {
	r.metrics = m
	return r
}

// Save upserts the snapshot by name.
func (r *SnapshotRepository) Save(ctx context.Context, snap *appassessment.Snapshot) error {
	defer func(start time.Time) {
		prometheus.RecordDBQuery(r.metrics, "snapshot_save", time.Since(start))
	}(time.Now())

	scores, applied, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO snapshots (id, name, created_at, scores, applied)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE
		SET id = EXCLUDED.id,
		    created_at = EXCLUDED.created_at,
		    scores = EXCLUDED.scores,
		    applied = EXCLUDED.applied`

	if _, err := r.db.ExecContext(ctx, q, snap.ID, snap.Name, snap.CreatedAt, scores, applied); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError,
			fmt.Sprintf("failed to save snapshot %q", snap.Name))
	}
	r.logger.Debug("snapshot persisted", logging.String("name", snap.Name))
	return nil
}

// Load returns the named snapshot.
func (r *SnapshotRepository) Load(ctx context.Context, name string) (*appassessment.Snapshot, error) {
	defer func(start time.Time) {
		prometheus.RecordDBQuery(r.metrics, "snapshot_load", time.Since(start))
	}(time.Now())

	const q = `SELECT id, name, created_at, scores, applied FROM snapshots WHERE name = $1`
	snap, err := scanSnapshot(r.db.QueryRowContext(ctx, q, name))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(fmt.Sprintf("snapshot %q", name))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError,
			fmt.Sprintf("failed to load snapshot %q", name))
	}
	return snap, nil
}

// List returns snapshot metadata, newest first.
func (r *SnapshotRepository) List(ctx context.Context) ([]appassessment.SnapshotInfo, error) {
	defer func(start time.Time) {
		prometheus.RecordDBQuery(r.metrics, "snapshot_list", time.Since(start))
	}(time.Now())

	const q = `
		SELECT id, name, created_at, jsonb_array_length(scores)
		FROM snapshots ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list snapshots")
	}
	defer rows.Close()

	var out []appassessment.SnapshotInfo
	for rows.Next() {
		var info appassessment.SnapshotInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.CreatedAt, &info.Count); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan snapshot row")
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate snapshots")
	}
	return out, nil
}

// Delete removes the named snapshot, reporting whether one existed.
func (r *SnapshotRepository) Delete(ctx context.Context, name string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE name = $1`, name)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError,
			fmt.Sprintf("failed to delete snapshot %q", name))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read delete result")
	}
	return n > 0, nil
}

// encodeSnapshot marshals the score and applied payloads for storage.
func encodeSnapshot(snap *appassessment.Snapshot) (scores, applied []byte, err error) {
	records := snap.Scores
	if records == nil {
		records = []assessment.ScoreRecord{}
	}
	scores, err = json.Marshal(records)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode snapshot scores")
	}

	ids := snap.Applied
	if ids == nil {
		ids = []string{}
	}
	applied, err = json.Marshal(ids)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode applied controls")
	}
	return scores, applied, nil
}

// scanSnapshot decodes one snapshot row.
func scanSnapshot(row scanner) (*appassessment.Snapshot, error) {
	var (
		snap    appassessment.Snapshot
		created time.Time
		scores  []byte
		applied []byte
	)
	if err := row.Scan(&snap.ID, &snap.Name, &created, &scores, &applied); err != nil {
		return nil, err
	}
	snap.CreatedAt = created

	if err := json.Unmarshal(scores, &snap.Scores); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode snapshot scores")
	}
	if err := json.Unmarshal(applied, &snap.Applied); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode applied controls")
	}
	return &snap, nil
}
