// Package telemetry exposes gtstore's Prometheus metrics and a side
// HTTP listener for /metrics and /healthz, grounded on
// froz-husain-PairDB/storage-node/internal/metrics/prometheus.go and
// .../internal/server/metrics_server.go. Host stats are gathered with
// shirou/gopsutil/v4 rather than PairDB's syscall.Statfs — gopsutil works
// the same way on every GOOS gtstore's three binaries might run on,
// where a raw syscall.Statfs_t read does not.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus instrument gtstore records. Role-specific
// fields (e.g. RebalanceBatchesTotal) are simply left at zero by roles
// that never touch them.
type Metrics struct {
	PutsTotal    prometheus.Counter
	GetsTotal    prometheus.Counter
	DeletesTotal prometheus.Counter
	ErrorsTotal  prometheus.CounterVec

	LockContentionTotal prometheus.Counter
	LockTableSize        prometheus.Gauge

	NodePaused prometheus.Gauge

	ReplicationFanoutTotal prometheus.Counter
	ReplicationFailedTotal prometheus.Counter

	HeartbeatsSentTotal   prometheus.Counter
	HeartbeatMissesTotal  prometheus.Counter
	ClusterNodesAlive     prometheus.Gauge

	RebalanceBatchesTotal prometheus.Counter
	RebalanceKeysMoved    prometheus.Counter
	TablePushesTotal      prometheus.Counter

	DiskUsagePercent prometheus.Gauge
	MemoryUsedBytes  prometheus.Gauge
	GoroutinesTotal  prometheus.Gauge
}

// New creates and registers gtstore's metrics. role distinguishes a
// manager process from a storage node in the exported labels so a single
// scrape target list can tell them apart.
func New(role, nodeID string) *Metrics {
	labels := prometheus.Labels{"role": role, "node_id": nodeID}

	return &Metrics{
		PutsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace:   "gtstore",
			Name:        "puts_total",
			Help:        "Total number of PUT operations served.",
			ConstLabels: labels,
		}),
		GetsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace:   "gtstore",
			Name:        "gets_total",
			Help:        "Total number of GET operations served.",
			ConstLabels: labels,
		}),
		DeletesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace:   "gtstore",
			Name:        "deletes_total",
			Help:        "Total number of DELETE operations served.",
			ConstLabels: labels,
		}),
		ErrorsTotal: *promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "gtstore",
			Name:        "errors_total",
			Help:        "Total number of ERROR replies sent, by kind.",
			ConstLabels: labels,
		}, []string{"kind"}),
		LockContentionTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace:   "gtstore",
			Subsystem:   "locks",
			Name:        "contention_total",
			Help:        "Total number of writes rejected because a key was already locked.",
			ConstLabels: labels,
		}),
		LockTableSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "gtstore",
			Subsystem:   "locks",
			Name:        "table_size",
			Help:        "Current number of held key locks.",
			ConstLabels: labels,
		}),
		NodePaused: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "gtstore",
			Name:        "paused",
			Help:        "1 if this storage node is currently paused, 0 otherwise.",
			ConstLabels: labels,
		}),
		ReplicationFanoutTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace:   "gtstore",
			Subsystem:   "replication",
			Name:        "fanout_total",
			Help:        "Total number of REPL_PUT sends issued to replicas by a primary.",
			ConstLabels: labels,
		}),
		ReplicationFailedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace:   "gtstore",
			Subsystem:   "replication",
			Name:        "failed_total",
			Help:        "Total number of REPL_PUT sends that did not succeed.",
			ConstLabels: labels,
		}),
		HeartbeatsSentTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace:   "gtstore",
			Subsystem:   "heartbeat",
			Name:        "sent_total",
			Help:        "Total number of heartbeats sent to the manager.",
			ConstLabels: labels,
		}),
		HeartbeatMissesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace:   "gtstore",
			Subsystem:   "heartbeat",
			Name:        "misses_total",
			Help:        "Total number of heartbeat deadlines the manager found expired.",
			ConstLabels: labels,
		}),
		ClusterNodesAlive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "gtstore",
			Subsystem:   "cluster",
			Name:        "nodes_alive",
			Help:        "Current number of storage nodes the manager considers alive.",
			ConstLabels: labels,
		}),
		RebalanceBatchesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace:   "gtstore",
			Subsystem:   "rebalance",
			Name:        "batches_total",
			Help:        "Total number of rebalance operations run (join or failure triggered).",
			ConstLabels: labels,
		}),
		RebalanceKeysMoved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace:   "gtstore",
			Subsystem:   "rebalance",
			Name:        "keys_moved_total",
			Help:        "Total number of keys moved across all rebalances.",
			ConstLabels: labels,
		}),
		TablePushesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace:   "gtstore",
			Subsystem:   "rebalance",
			Name:        "table_pushes_total",
			Help:        "Total number of TABLE_PUSH broadcasts sent.",
			ConstLabels: labels,
		}),
		DiskUsagePercent: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "gtstore",
			Subsystem:   "host",
			Name:        "disk_usage_percent",
			Help:        "Disk usage percentage of the host's root filesystem.",
			ConstLabels: labels,
		}),
		MemoryUsedBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "gtstore",
			Subsystem:   "host",
			Name:        "memory_used_bytes",
			Help:        "Host memory currently in use, in bytes.",
			ConstLabels: labels,
		}),
		GoroutinesTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "gtstore",
			Subsystem:   "host",
			Name:        "goroutines_total",
			Help:        "Current number of goroutines in this process.",
			ConstLabels: labels,
		}),
	}
}
