// Package dispatch coordinates segment exports. Each finalized segment is
// encoded, transcribed, post-filtered, and delivered on its own goroutine so
// network latency never delays segmentation. Concurrency is bounded by a
// weighted semaphore and in-flight exports are tracked so shutdown can wait
// for them.
package dispatch
