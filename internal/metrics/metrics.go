package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// ConnectionUp reports whether the feed session is connected and logged in.
	ConnectionUp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "archiver",
		Subsystem: "feed",
		Name:      "connection_up",
		Help:      "Whether the feed session is connected and logged in (1/0)",
	})

	FramesRead = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "archiver",
		Subsystem: "feed",
		Name:      "frames_read",
		Help:      "Frames read from the feed connection since startup",
	})

	MessagesRouted = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "archiver",
		Subsystem: "feed",
		Name:      "messages_routed",
		Help:      "Messages dispatched to handlers since startup",
	})

	PingsAnswered = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "archiver",
		Subsystem: "feed",
		Name:      "pings_answered",
		Help:      "Server pings answered with a pong since startup",
	})

	// FrameFaults counts frames aborted mid-dispatch. A nonzero rate here
	// means the feed sent something the archiver could not process.
	FrameFaults = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "archiver",
		Subsystem: "feed",
		Name:      "frame_faults",
		Help:      "Frames aborted because a message failed to process",
	})

	MessagesDropped = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "archiver",
		Subsystem: "feed",
		Name:      "messages_dropped",
		Help:      "Data messages that arrived for no live stream",
	})

	OpenStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "archiver",
		Subsystem: "feed",
		Name:      "open_streams",
		Help:      "Currently open item streams",
	})

	PendingStories = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "archiver",
		Subsystem: "feed",
		Name:      "pending_stories",
		Help:      "News stories mid-assembly awaiting fragments",
	})

	// Writer metrics are labeled by writer name (stories, quotes).
	RowsInserted = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "archiver",
		Subsystem: "writer",
		Name:      "rows_inserted",
		Help:      "Rows inserted since startup",
	}, []string{"writer"})

	InsertConflicts = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "archiver",
		Subsystem: "writer",
		Name:      "insert_conflicts",
		Help:      "Rows skipped as duplicates since startup",
	}, []string{"writer"})

	InsertErrors = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "archiver",
		Subsystem: "writer",
		Name:      "insert_errors",
		Help:      "Failed batch inserts since startup",
	}, []string{"writer"})

	Flushes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "archiver",
		Subsystem: "writer",
		Name:      "flushes",
		Help:      "Batch flushes since startup",
	}, []string{"writer"})

	BufferLen = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "archiver",
		Subsystem: "writer",
		Name:      "buffer_len",
		Help:      "Items queued in the writer's input buffer",
	}, []string{"writer"})

	BufferCapacity = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "archiver",
		Subsystem: "writer",
		Name:      "buffer_capacity",
		Help:      "Current capacity of the writer's input buffer",
	}, []string{"writer"})

	PoolTotalConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "archiver",
		Subsystem: "db",
		Name:      "pool_total_conns",
		Help:      "Total connections in the archive pool",
	})

	PoolIdleConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "archiver",
		Subsystem: "db",
		Name:      "pool_idle_conns",
		Help:      "Idle connections in the archive pool",
	})

	PoolAcquiredConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "archiver",
		Subsystem: "db",
		Name:      "pool_acquired_conns",
		Help:      "Connections currently checked out of the archive pool",
	})
)

// Register registers all instruments with the given registry, or with
// prometheus.DefaultRegisterer when called without arguments.
func Register(registerers ...prometheus.Registerer) {
	once.Do(func() {
		var reg prometheus.Registerer
		if len(registerers) > 0 && registerers[0] != nil {
			reg = registerers[0]
		} else {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(
			ConnectionUp,
			FramesRead,
			MessagesRouted,
			PingsAnswered,
			FrameFaults,
			MessagesDropped,
			OpenStreams,
			PendingStories,
			RowsInserted,
			InsertConflicts,
			InsertErrors,
			Flushes,
			BufferLen,
			BufferCapacity,
			PoolTotalConns,
			PoolIdleConns,
			PoolAcquiredConns,
		)
	})
}
