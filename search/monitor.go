package search

import "github.com/poiesic/recall/core"

// Monitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps and results.
type Monitor interface {
	Start(cleanedQuery string)
	AfterVectorSearch(candidates []*core.RetrievedChunk)
	AfterFiltering(surviving []*core.RetrievedChunk)
	Finish(results []*core.RetrievedChunk)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                            {}
func (n *noopMonitor) AfterVectorSearch(_ []*core.RetrievedChunk) {}
func (n *noopMonitor) AfterFiltering(_ []*core.RetrievedChunk)    {}
func (n *noopMonitor) Finish(_ []*core.RetrievedChunk)            {}
