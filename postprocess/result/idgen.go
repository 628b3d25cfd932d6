package result

import "sync/atomic"

// IDGenerator hands out incremental detection IDs, safe for concurrent use
type IDGenerator struct {
	id atomic.Int64
}

// NewIDGenerator returns a generator starting at 1
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// GetNext returns the next incremental number
func (g *IDGenerator) GetNext() int64 {
	return g.id.Add(1)
}
