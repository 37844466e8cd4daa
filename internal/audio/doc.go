// Package audio defines the canonical PCM sample representation shared by the
// capture and segmentation layers. It provides RMS energy estimation, sample
// format conversion from capture device formats to 16-bit PCM, and in-memory
// WAV encoding of finalized segments for transcription upload.
package audio
