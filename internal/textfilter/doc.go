// Package textfilter post-processes raw transcription text. It discards
// empty, too-short, and non-alphabetic results as well as the boilerplate
// phrases the transcription model hallucinates on near-silent audio.
package textfilter
