// Package metrics exports session, cache and HTTP activity to Prometheus.
//
// A [Recorder] implements the observability hook interfaces. Register it at
// startup and mount promhttp on /metrics:
//
//	m := metrics.New(prometheus.DefaultRegisterer)
//	observability.SetSessionHooks(m)
//	observability.SetCacheHooks(m)
//	observability.SetHTTPHooks(m)
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/webgraph/pkg/observability"
)

var (
	_ observability.SessionHooks = (*Recorder)(nil)
	_ observability.CacheHooks   = (*Recorder)(nil)
	_ observability.HTTPHooks    = (*Recorder)(nil)
)

// Recorder holds the collectors.
type Recorder struct {
	Actions         *prometheus.CounterVec
	Replays         *prometheus.CounterVec
	Rejections      *prometheus.CounterVec
	LayoutDuration  *prometheus.HistogramVec
	LayoutErrors    *prometheus.CounterVec
	WorkersActive   prometheus.Gauge
	WorkerRuntime   prometheus.Histogram
	WorkerIters     prometheus.Histogram
	CacheOps        *prometheus.CounterVec
	CacheBytes      prometheus.Counter
	RequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		Actions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "webgraph_actions_total",
			Help: "Mutations appended to the history log, labelled by action type.",
		}, []string{"type"}),

		Replays: f.NewCounterVec(prometheus.CounterOpts{
			Name: "webgraph_history_replays_total",
			Help: "Undo and redo operations, labelled by direction, action type and outcome.",
		}, []string{"direction", "type", "ok"}),

		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "webgraph_rejections_total",
			Help: "Operations refused by the session, labelled by operation and reason.",
		}, []string{"op", "reason"}),

		LayoutDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "webgraph_layout_duration_seconds",
			Help:    "Synchronous layout computation time.",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"kind"}),

		LayoutErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "webgraph_layout_errors_total",
			Help: "Synchronous layouts that failed, labelled by kind.",
		}, []string{"kind"}),

		WorkersActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "webgraph_workers_active",
			Help: "Background layout workers currently running.",
		}),

		WorkerRuntime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "webgraph_worker_runtime_seconds",
			Help:    "Wall time of background layout worker runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),

		WorkerIters: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "webgraph_worker_iterations",
			Help:    "Iterations published per background layout worker run.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),

		CacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "webgraph_cache_operations_total",
			Help: "Layout cache lookups and writes, labelled by key type and result.",
		}, []string{"key_type", "result"}),

		CacheBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "webgraph_cache_written_bytes_total",
			Help: "Bytes written to the layout cache.",
		}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "webgraph_http_request_duration_seconds",
			Help:    "HTTP API latency, labelled by method, route and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
}

func (r *Recorder) OnAction(_ context.Context, actionType string) {
	r.Actions.WithLabelValues(actionType).Inc()
}

func (r *Recorder) OnUndo(_ context.Context, actionType string, ok bool) {
	r.Replays.WithLabelValues("undo", actionType, strconv.FormatBool(ok)).Inc()
}

func (r *Recorder) OnRedo(_ context.Context, actionType string, ok bool) {
	r.Replays.WithLabelValues("redo", actionType, strconv.FormatBool(ok)).Inc()
}

func (r *Recorder) OnRejected(_ context.Context, op, reason string) {
	r.Rejections.WithLabelValues(op, reason).Inc()
}

func (r *Recorder) OnLayoutStart(context.Context, string, int) {}

func (r *Recorder) OnLayoutComplete(_ context.Context, kind string, d time.Duration, err error) {
	if err != nil {
		r.LayoutErrors.WithLabelValues(kind).Inc()
		return
	}
	r.LayoutDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (r *Recorder) OnWorkerStart(context.Context, int) {
	r.WorkersActive.Inc()
}

func (r *Recorder) OnWorkerStop(_ context.Context, runtime time.Duration, iterations int) {
	r.WorkersActive.Dec()
	r.WorkerRuntime.Observe(runtime.Seconds())
	r.WorkerIters.Observe(float64(iterations))
}

func (r *Recorder) OnCacheHit(_ context.Context, keyType string) {
	r.CacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (r *Recorder) OnCacheMiss(_ context.Context, keyType string) {
	r.CacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (r *Recorder) OnCacheSet(_ context.Context, keyType string, size int) {
	r.CacheOps.WithLabelValues(keyType, "set").Inc()
	r.CacheBytes.Add(float64(size))
}

func (r *Recorder) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	r.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
