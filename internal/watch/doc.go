// Package watch manages long-lived subscriptions against the control-plane
// watch API for one (resource kind, tenant scope) pair.
//
// # Overview
//
// A Session owns exactly one live subscription at a time and re-establishes
// it after every natural close or error. Events are delivered to a single
// handler callback in control-plane emission order; the handler is never
// invoked concurrently. The last observed resumption position seeds each
// re-subscription so no state transition is silently skipped. When the
// control plane reports the position as compacted, the session restarts
// with no seed and marks the replayed events as a resync so consumers
// replace rather than merge cached state.
//
// # Restart policy
//
// Restarts are governed by a Policy. The policy never restarts once the
// owning client stream is inactive; otherwise it restarts after a short
// fixed delay. The fixed delay is a deliberate tradeoff: re-establishing a
// watch is cheap and per-tenant subscription cardinality is low, so a
// missed transition costs more than a brief reconnect burst.
//
// # Usage
//
//	sess, err := watch.StartSession(ctx, watch.SessionOptions{
//	    API:          api,
//	    Scope:        watch.Scope{Namespace: ns, LabelSelector: sel, GVR: gvr},
//	    ClientActive: stream.IsActive,
//	    Handler:      func(ev watch.Event) { /* forward to client */ },
//	})
//	if err != nil {
//	    return err
//	}
//	defer sess.Stop()
//
// # Metrics
//
// The package exposes the following Prometheus metrics:
//   - dashboard_watch_reconnects_total (counter, labels: resource): watch re-subscription attempts
//   - dashboard_watch_compactions_total (counter, labels: resource): full resyncs forced by compaction
package watch
