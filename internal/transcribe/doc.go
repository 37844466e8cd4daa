// Package transcribe implements the HTTP client for the Whisper
// transcription API. It uploads encoded audio segments as multipart form
// data with bearer authentication and extracts the transcription text from
// the JSON response.
package transcribe
