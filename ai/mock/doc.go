// Package mock provides deterministic test doubles for the ai package
// interfaces. The mock embedder produces stable hash-derived vectors;
// the mock chat model records requests and returns canned replies.
package mock
