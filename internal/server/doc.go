// Package server implements the optional HTTP monitoring endpoint exposing
// health, pipeline status, and Prometheus metrics.
package server
