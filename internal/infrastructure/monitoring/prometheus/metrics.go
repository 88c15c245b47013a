package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every application metric.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Assessment layer
	ScoreWritesTotal   CounterVec
	ScoresStored       GaugeVec
	AggregateQueries   CounterVec
	SnapshotOpsTotal   CounterVec
	SnapshotOpDuration HistogramVec

	// Control layer
	ControlAppliesTotal CounterVec
	ControlRemovesTotal CounterVec
	ControlsApplied     GaugeVec
	TriplesTouched      HistogramVec

	// Rollup layer
	RollupRequestsTotal CounterVec
	RollupDuration      HistogramVec

	// Infrastructure
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec
	EventsPublished  CounterVec
	DBQueryDuration  HistogramVec

	// System health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default buckets.
var (
	DefaultHTTPDurationBuckets   = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultRollupDurationBuckets = []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1}
	DefaultTouchedBuckets        = []float64{0, 1, 5, 10, 25, 50, 100, 250, 500}
	DefaultDBDurationBuckets     = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewAppMetrics registers every metric against the collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	m.ScoreWritesTotal = collector.RegisterCounter("score_writes_total", "Criterion score writes", "context", "result")
	m.ScoresStored = collector.RegisterGauge("scores_stored", "Criterion scores currently stored")
	m.AggregateQueries = collector.RegisterCounter("aggregate_queries_total", "Aggregate queries served", "context")
	m.SnapshotOpsTotal = collector.RegisterCounter("snapshot_ops_total", "Snapshot operations", "op", "result")
	m.SnapshotOpDuration = collector.RegisterHistogram("snapshot_op_duration_seconds", "Snapshot operation duration", DefaultDBDurationBuckets, "op")

	m.ControlAppliesTotal = collector.RegisterCounter("control_applies_total", "Control apply attempts", "result")
	m.ControlRemovesTotal = collector.RegisterCounter("control_removes_total", "Control remove attempts", "result")
	m.ControlsApplied = collector.RegisterGauge("controls_applied", "Controls currently applied")
	m.TriplesTouched = collector.RegisterHistogram("control_triples_touched", "Score triples touched per control operation", DefaultTouchedBuckets, "op")

	m.RollupRequestsTotal = collector.RegisterCounter("rollup_requests_total", "Rollup computations", "kind")
	m.RollupDuration = collector.RegisterHistogram("rollup_duration_seconds", "Rollup computation duration", DefaultRollupDurationBuckets, "kind")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.EventsPublished = collector.RegisterCounter("events_published_total", "Events published", "topic", "result")
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "operation")

	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "code")

	return m
}

// Helpers. All of them tolerate a nil AppMetrics so callers without a
// collector can skip the guard.

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(m *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordScoreWrite records a score write attempt per context kind.
func RecordScoreWrite(m *AppMetrics, threatContext bool, err error) {
	if m == nil {
		return
	}
	ctx := "asset"
	if threatContext {
		ctx = "threat"
	}
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	m.ScoreWritesTotal.WithLabelValues(ctx, result).Inc()
}

// RecordControlApply records an apply attempt and, on success, the triples it
// touched.
func RecordControlApply(m *AppMetrics, touched int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ControlAppliesTotal.WithLabelValues("error").Inc()
		return
	}
	m.ControlAppliesTotal.WithLabelValues("ok").Inc()
	m.ControlsApplied.WithLabelValues().Inc()
	m.TriplesTouched.WithLabelValues("apply").Observe(float64(touched))
}

// RecordControlRemove mirrors RecordControlApply for removals.
func RecordControlRemove(m *AppMetrics, touched int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ControlRemovesTotal.WithLabelValues("error").Inc()
		return
	}
	m.ControlRemovesTotal.WithLabelValues("ok").Inc()
	m.ControlsApplied.WithLabelValues().Dec()
	m.TriplesTouched.WithLabelValues("remove").Observe(float64(touched))
}

// RecordControlsApplied sets the applied-control gauge to the live count.
func RecordControlsApplied(m *AppMetrics, n int) {
	if m == nil {
		return
	}
	m.ControlsApplied.WithLabelValues().Set(float64(n))
}

// RecordAggregateQuery counts an aggregate read per context kind.
func RecordAggregateQuery(m *AppMetrics, threatContext bool) {
	if m == nil {
		return
	}
	ctx := "asset"
	if threatContext {
		ctx = "threat"
	}
	m.AggregateQueries.WithLabelValues(ctx).Inc()
}

// RecordScoresStored tracks the live score count.
func RecordScoresStored(m *AppMetrics, n int) {
	if m == nil {
		return
	}
	m.ScoresStored.WithLabelValues().Set(float64(n))
}

// RecordSnapshotOp records one snapshot save, load, or list.
func RecordSnapshotOp(m *AppMetrics, op string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SnapshotOpsTotal.WithLabelValues(op, result).Inc()
	m.SnapshotOpDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordHealthCheck sets a component's readiness gauge.
func RecordHealthCheck(m *AppMetrics, component string, healthy bool) {
	if m == nil {
		return
	}
	v := 0.0
	if healthy {
		v = 1.0
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(v)
}

// RecordEventPublished records one event publish attempt per topic.
func RecordEventPublished(m *AppMetrics, topic string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EventsPublished.WithLabelValues(topic, result).Inc()
}

// RecordDBQuery records one database query's duration.
func RecordDBQuery(m *AppMetrics, operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRollup records one rollup computation.
func RecordRollup(m *AppMetrics, kind string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RollupRequestsTotal.WithLabelValues(kind).Inc()
	m.RollupDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordCacheAccess counts a cache hit or miss.
func RecordCacheAccess(m *AppMetrics, cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

// RecordError counts an error by component and code.
func RecordError(m *AppMetrics, component, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}
