package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Document - Node-Link Serialization
// =============================================================================

// Document is the node-link file format of a snapshot:
//
//	{
//	  "nodes": [{"id": "P:alice", "label": "Alice", "type": "P"}],
//	  "edges": [{"id": "P:alice-knows-P:bob", "source": "P:alice", ...}]
//	}
//
// Nodes and edges are sorted by id for deterministic output.
type Document struct {
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
}

// ToDocument converts a snapshot to its node-link form.
func ToDocument(s Snapshot) Document {
	return Document{Nodes: s.SortedNodes(), Edges: s.SortedEdges()}
}

// FromDocument converts a node-link document into a snapshot.
// Edges referencing nodes missing from the document get stub nodes, and
// edge ids are recomputed with [EdgeID].
func FromDocument(d Document) Snapshot {
	s := NewStore()
	_, _ = s.UpsertNodes(d.Nodes)
	s.UpsertEdges(d.Edges)
	return s.Snapshot()
}

// =============================================================================
// Snapshot Serialization API
// =============================================================================

// MarshalSnapshot converts a snapshot to indented JSON bytes.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeSnapshotTo(s, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteSnapshot writes a snapshot as JSON to an io.Writer.
func WriteSnapshot(s Snapshot, w io.Writer) error {
	return writeSnapshotTo(s, w)
}

// WriteSnapshotFile writes a snapshot to a JSON file.
// The file is created with 0644 permissions.
func WriteSnapshotFile(s Snapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeSnapshotTo(s, f)
}

// ReadSnapshot decodes a node-link JSON document from an io.Reader.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	return readSnapshotFrom(r)
}

// ReadSnapshotFile reads a node-link JSON file.
func ReadSnapshotFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readSnapshotFrom(f)
}

// =============================================================================
// Internal Implementation
// =============================================================================

func writeSnapshotTo(s Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ToDocument(s)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func readSnapshotFrom(r io.Reader) (Snapshot, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Snapshot{}, fmt.Errorf("decode: %w", err)
	}
	return FromDocument(doc), nil
}
