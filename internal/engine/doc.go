// Package engine wires the capture source, segmenter, and dispatch
// coordinator into one live session and manages its lifecycle: startup
// ordering, the segmentation goroutine, and graceful shutdown with a
// bounded wait for in-flight exports.
package engine
