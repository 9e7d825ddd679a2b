// Package snowflake issues sortable 64-bit IDs for ledger entries and jobs.
// Layout: 41 bits millisecond timestamp, 10 bits node, 12 bits sequence.
package snowflake

import (
	"fmt"
	"sync"
	"time"
)

const (
	nodeBits     = 10
	sequenceBits = 12
	maxNode      = (1 << nodeBits) - 1
	maxSequence  = (1 << sequenceBits) - 1
	timeShift    = nodeBits + sequenceBits
	nodeShift    = sequenceBits
)

// epoch: 2024-01-01T00:00:00Z in milliseconds
const epoch int64 = 1704067200000

// Generator produces unique IDs. Safe for concurrent use.
type Generator struct {
	mu       sync.Mutex
	node     int64
	sequence int64
	lastMs   int64
}

// NewGenerator creates a generator for the given node ID.
func NewGenerator(node int64) (*Generator, error) {
	if node < 0 || node > maxNode {
		return nil, fmt.Errorf("snowflake: node %d out of range [0,%d]", node, maxNode)
	}
	return &Generator{node: node}, nil
}

// Next returns the next ID. Blocks if the sequence overflows within one ms.
func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < g.lastMs {
		// clock moved backwards; wait it out
		now = g.lastMs
	}
	if now == g.lastMs {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			for now <= g.lastMs {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastMs = now

	return (now-epoch)<<timeShift | g.node<<nodeShift | g.sequence
}

// Timestamp extracts the creation time from an ID.
func Timestamp(id int64) time.Time {
	ms := (id >> timeShift) + epoch
	return time.UnixMilli(ms)
}
