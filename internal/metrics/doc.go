// Package metrics defines the Prometheus instrumentation for the audiomh
// pipeline: capture queue pressure, segmentation outcomes, and export
// results.
package metrics
