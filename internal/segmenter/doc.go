// Package segmenter implements the utterance segmentation state machine. It
// consumes a stream of PCM sample blocks, classifies each block by RMS
// energy against a fixed threshold, and emits bounded-duration speech
// segments delimited by sustained silence or a forced maximum length.
package segmenter
