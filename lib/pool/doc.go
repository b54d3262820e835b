// Package pool provides per-endpoint connection pooling for outgoing RPC
// writes. Each remote endpoint owns one Pool, which maintains a bounded set
// of live transport connections, multiplexes submitted requests onto them,
// queues requests when no connection is free, and feeds write failures into
// an exponential-backoff admission strategy consulted by the load balancer
// above.
//
// The pool supports:
//   - Bounded concurrent connections per endpoint
//   - Asynchronous connection establishment
//   - A pending-write queue drained whenever a connection frees up
//   - Lazy request timeouts evaluated at drain time
//   - Endpoint health via lib/backoff
//
// # Basic Usage
//
//	factory := pool.NewFactory(&transport.NetDialer{}, pool.DefaultConfig())
//	defer factory.ShutdownAll()
//
//	p := factory.NewPool("10.0.0.7:9042")
//
//	req := pool.NewRequest(payload, func(err error) {
//	    log.Printf("request failed: %v", err)
//	})
//	if err := p.Submit(req); err != nil {
//	    // pool closed; the failure sink is not used for this case
//	}
//
// Submit never blocks on connecting or writing. If an idle connection
// exists the request is handed to it before Submit returns; otherwise the
// request waits in the pending queue and a connection open is triggered in
// the background.
//
// # Health
//
// A load balancer decides whether to route to an endpoint by asking its
// pool:
//
//	if p.CanServe() {
//	    p.Submit(req)
//	}
//
// Every failed write doubles the endpoint's backoff (capped at 3.2s); an
// error-free quiet period heals it back to zero.
//
// # Metrics
//
// Aggregate pool metrics are registered with the metrics package:
//   - meshrpc_pool_writes_attempted_total: Writes handed to a connection
//   - meshrpc_pool_write_failures_total: Writes that failed in the transport
//   - meshrpc_pool_timeouts_total: Requests that aged out in the queue
//   - meshrpc_pool_connects_total: Successful connection opens
//   - meshrpc_pool_connect_failures_total: Failed connection opens
//   - meshrpc_pool_open_rejected_total: Opens aborted at the connection limit
//
// Per-pool snapshots are available through Stats and the RegisterStatsSource
// registry.
package pool
