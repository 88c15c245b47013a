package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appassessment "github.com/orbitsec/spacerisk/internal/application/assessment"
	"github.com/orbitsec/spacerisk/internal/domain/assessment"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/prometheus"
)

// fakeRow replays canned column values through the scanner interface.
type fakeRow struct {
	values []interface{}
}

func (r *fakeRow) Scan(dest ...interface{}) error {
	for i, d := range dest {
		switch v := r.values[i].(type) {
		case string:
			*d.(*string) = v
		case time.Time:
			*d.(*time.Time) = v
		case []byte:
			*d.(*[]byte) = v
		}
	}
	return nil
}

func TestEncodeSnapshot(t *testing.T) {
	snap := &appassessment.Snapshot{
		ID:   "id-1",
		Name: "baseline",
		Scores: []assessment.ScoreRecord{
			{Threat: "Jamming", Asset: 7, Criterion: 1, Score: 3},
			{Asset: 2, Criterion: 4, Score: 5},
		},
		Applied: []string{"C-01"},
	}

	scores, applied, err := encodeSnapshot(snap)
	require.NoError(t, err)

	var records []assessment.ScoreRecord
	require.NoError(t, json.Unmarshal(scores, &records))
	assert.Equal(t, snap.Scores, records)

	var ids []string
	require.NoError(t, json.Unmarshal(applied, &ids))
	assert.Equal(t, []string{"C-01"}, ids)
}

func TestEncodeSnapshot_NilSlices(t *testing.T) {
	scores, applied, err := encodeSnapshot(&appassessment.Snapshot{ID: "id", Name: "empty"})
	require.NoError(t, err)

	assert.Equal(t, "[]", string(scores), "nil scores encode as an empty array, not null")
	assert.Equal(t, "[]", string(applied))
}

func TestScanSnapshot(t *testing.T) {
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	row := &fakeRow{values: []interface{}{
		"id-1",
		"baseline",
		created,
		[]byte(`[{"threat":"Jamming","asset":7,"criterion":1,"score":3}]`),
		[]byte(`["C-01","C-02"]`),
	}}

	snap, err := scanSnapshot(row)
	require.NoError(t, err)

	assert.Equal(t, "id-1", snap.ID)
	assert.Equal(t, "baseline", snap.Name)
	assert.Equal(t, created, snap.CreatedAt)
	require.Len(t, snap.Scores, 1)
	assert.Equal(t, assessment.ScoreRecord{Threat: "Jamming", Asset: 7, Criterion: 1, Score: 3}, snap.Scores[0])
	assert.Equal(t, []string{"C-01", "C-02"}, snap.Applied)
}

func TestScanSnapshot_MalformedScores(t *testing.T) {
	row := &fakeRow{values: []interface{}{
		"id-1", "bad", time.Now(), []byte(`{not json`), []byte(`[]`),
	}}

	_, err := scanSnapshot(row)
	require.Error(t, err)
}

func TestEncodeScanRoundTrip(t *testing.T) {
	orig := &appassessment.Snapshot{
		ID:        "id-2",
		Name:      "rt",
		CreatedAt: time.Date(2026, 8, 2, 9, 30, 0, 0, time.UTC),
		Scores:    []assessment.ScoreRecord{{Asset: 1, Criterion: 2, Score: 4}},
		Applied:   []string{},
	}

	scores, applied, err := encodeSnapshot(orig)
	require.NoError(t, err)

	row := &fakeRow{values: []interface{}{orig.ID, orig.Name, orig.CreatedAt, scores, applied}}
	got, err := scanSnapshot(row)
	require.NoError(t, err)

	assert.Equal(t, orig.ID, got.ID)
	assert.Equal(t, orig.Scores, got.Scores)
	assert.Equal(t, orig.Applied, got.Applied)
}

// fakeExecutor satisfies queryExecutor for paths that only exec.
type fakeExecutor struct{ execs int }

func (e *fakeExecutor) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, sql.ErrConnDone
}

func (e *fakeExecutor) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

func (e *fakeExecutor) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	e.execs++
	return nil, nil
}

func TestSnapshotRepository_SaveRecordsQueryDuration(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(
		prometheus.CollectorConfig{Namespace: "spacerisk"}, nil)
	require.NoError(t, err)
	metrics := prometheus.NewAppMetrics(collector)

	exec := &fakeExecutor{}
	repo := NewSnapshotRepository(exec, nil).WithMetrics(metrics)

	snap := &appassessment.Snapshot{
		ID:        "id-1",
		Name:      "baseline",
		CreatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Save(context.Background(), snap))
	assert.Equal(t, 1, exec.execs)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(),
		`spacerisk_db_query_duration_seconds_count{operation="snapshot_save"} 1`)
}
