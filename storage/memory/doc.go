// Package memory provides in-memory implementations of the storage
// interfaces. Nothing survives process restart; intended for tests and
// short-lived pipelines.
package memory
