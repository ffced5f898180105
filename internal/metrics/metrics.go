package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pool universe metrics
	PoolCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swapengine_pool_count",
		Help: "Total number of pools in the routing graph",
	})

	ReadyPoolCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swapengine_ready_pool_count",
		Help: "Number of pools with usable state for quoting",
	})

	GraphSnapshotRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapengine_graph_snapshot_rebuilds_total",
		Help: "Total number of graph snapshot rebuilds",
	})

	// Quote metrics
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapengine_quote_requests_total",
			Help: "Total number of quote requests",
		},
		[]string{"trade_type", "status"},
	)

	QuoteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swapengine_quote_duration_seconds",
			Help:    "Quote request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"trade_type"},
	)

	RouteEvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swapengine_route_evaluation_duration_seconds",
		Help:    "Local route enumeration and evaluation duration in seconds",
		Buckets: []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1},
	})

	// Remote quoting service metrics
	RemoteQuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapengine_remote_quote_requests_total",
			Help: "Total number of remote routing-api requests",
		},
		[]string{"status"},
	)

	RemoteFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapengine_remote_fallbacks_total",
		Help: "Times the engine fell back to the local route search",
	})

	// On-chain data cache metrics
	MulticallBatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapengine_multicall_batches_total",
		Help: "Total number of multicall round trips dispatched",
	})

	MulticallBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swapengine_multicall_batch_size",
		Help:    "Number of calls per multicall batch",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapengine_datacache_hits_total",
		Help: "On-chain data cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapengine_datacache_misses_total",
		Help: "On-chain data cache misses",
	})

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapengine_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swapengine_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
