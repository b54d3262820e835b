package pool

import (
	"sort"
	"sync"

	"github.com/go-i2p/meshrpc/lib/metrics"
)

// Aggregate pool metrics, exposed in Prometheus format by lib/metrics.
var (
	// WritesAttempted counts writes handed to a connection. It is
	// incremented when the write is issued, before the outcome is known.
	WritesAttempted = metrics.NewCounter(
		"meshrpc_pool_writes_attempted_total",
		"Total writes handed to a connection, counted before completion",
	)
	// WriteFailures counts writes that failed in the transport.
	WriteFailures = metrics.NewCounter(
		"meshrpc_pool_write_failures_total",
		"Total transport-level write failures",
	)
	// Timeouts counts requests that aged out in the pending queue.
	Timeouts = metrics.NewCounter(
		"meshrpc_pool_timeouts_total",
		"Total requests failed because they aged past the write timeout",
	)
	// ConnectsTotal counts successful connection opens.
	ConnectsTotal = metrics.NewCounter(
		"meshrpc_pool_connects_total",
		"Total successful connection opens",
	)
	// ConnectFailures counts failed connection opens.
	ConnectFailures = metrics.NewCounter(
		"meshrpc_pool_connect_failures_total",
		"Total failed connection opens",
	)
	// OpensRejected counts opens aborted at the connection limit.
	OpensRejected = metrics.NewCounter(
		"meshrpc_pool_open_rejected_total",
		"Total connection opens aborted because the pool was at its limit",
	)
	// ConnectionsScavenged counts idle connections discarded at checkout
	// because they had disconnected.
	ConnectionsScavenged = metrics.NewCounter(
		"meshrpc_pool_connections_scavenged_total",
		"Total idle connections discarded after disconnecting",
	)
)

// Stats is an eventually consistent snapshot of one pool's counters, read
// from independent atomics with no cross-field transaction.
type Stats struct {
	// Endpoint is the remote address the pool serves.
	Endpoint string
	// OpenCount is the number of connections currently owned (idle,
	// connecting or draining).
	OpenCount int
	// MaxConnections is the configured connection limit.
	MaxConnections int
	// PendingWrites is the current pending-queue depth.
	PendingWrites int
	// SentCount is the cumulative attempted-write count.
	SentCount uint64
}

// StatsSource provides a point-in-time snapshot of pool counters. It is the
// read-only surface handed to an external monitoring collaborator.
type StatsSource interface {
	Stats() Stats
}

var (
	sourcesMu sync.RWMutex
	sources   = make(map[string]StatsSource)
)

// RegisterStatsSource makes a pool's counters visible to Snapshot under the
// given name. A later registration with the same name replaces the earlier
// one.
func RegisterStatsSource(name string, s StatsSource) {
	sourcesMu.Lock()
	sources[name] = s
	sourcesMu.Unlock()
}

// UnregisterStatsSource removes a previously registered source. Pools call
// this on Close.
func UnregisterStatsSource(name string) {
	sourcesMu.Lock()
	delete(sources, name)
	sourcesMu.Unlock()
}

// Snapshot returns the stats of every registered pool, sorted by name.
func Snapshot() []Stats {
	sourcesMu.RLock()
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Stats, 0, len(names))
	for _, name := range names {
		out = append(out, sources[name].Stats())
	}
	sourcesMu.RUnlock()
	return out
}
