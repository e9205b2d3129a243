// Package metrics exposes Prometheus collectors for request outcomes, stage
// latency, upload sizes and cleanup sweeps. All methods are safe on a nil
// *Metrics so metrics can be disabled without branching at call sites.
package metrics
