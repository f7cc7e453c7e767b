// Package cache provides byte-level caches for derived linkscope data.
//
// The main consumer is the layout [Runner] in pkg/layout, which stores
// computed positions keyed by a hash of the graph structure, the pinned
// nodes and the layout configuration. Recomputing an unchanged graph with
// an unchanged config is then a cache hit.
//
// Implementations:
//   - [FileCache]: JSON entry files under a directory, for the CLI
//   - [MemoryCache]: process-local map, for the server and tests
//   - [NullCache]: never stores anything
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache stores opaque byte values under string keys.
//
// A miss is reported as (nil, false, nil); errors are reserved for storage
// failures. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default time-to-live values.
const (
	TTLLayout    = 7 * 24 * time.Hour
	TTLNeighbors = 24 * time.Hour
)

// LayoutKeyOpts holds the layout settings that affect computed positions.
type LayoutKeyOpts struct {
	Algorithm  string  `json:"algorithm"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	NodeSize   float64 `json:"node_size"`
	Padding    float64 `json:"padding"`
	Seed       uint64  `json:"seed"`
	Iterations int     `json:"iterations"`
	Root       string  `json:"root,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// NeighborKey identifies a neighbor query against a backend.
	NeighborKey(source, nodeID string, limit int) string
	// LayoutKey identifies a layout of the graph with the given hash.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string
}

// DefaultKeyer is the standard [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer creates a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// NeighborKey returns "neighbors:<source>:<limit>:<nodeID>".
func (DefaultKeyer) NeighborKey(source, nodeID string, limit int) string {
	return fmt.Sprintf("neighbors:%s:%d:%s", source, limit, nodeID)
}

// LayoutKey returns "layout:<hash>" where the hash covers the graph hash and
// every option.
func (DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", graphHash, opts)
}
