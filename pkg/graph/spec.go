package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Spec is the backend's graph description, as received on the wire.
type Spec struct {
	Nodes         []NodeSpec `json:"nodes"`
	Edges         []EdgeSpec `json:"edges"`
	EntryNodes    []string   `json:"entry_nodes"`
	TerminalNodes []string   `json:"terminal_nodes"`
}

// NodeSpec describes one declared node.
type NodeSpec struct {
	ID    string `json:"node_id"`
	Label string `json:"label,omitempty"`
}

// EdgeSpec describes one declared edge. An empty Target means the target is
// chosen at runtime.
type EdgeSpec struct {
	Source  string `json:"source_node_id"`
	Target  string `json:"target_node_id,omitempty"`
	Dynamic bool   `json:"dynamic,omitempty"`
}

// Empty reports whether the spec declares no nodes.
func (s Spec) Empty() bool { return len(s.Nodes) == 0 }

// Decode reads a graph description from r.
//
// An error is returned only when the body is not a JSON object. Malformed
// fields are replaced by empty lists, and a missing or malformed "nodes" field
// yields an empty Spec.
func Decode(r io.Reader) (Spec, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Spec{}, fmt.Errorf("decode graph: %w", err)
	}
	var s Spec
	if !decodeList(raw["nodes"], &s.Nodes) {
		return Spec{}, nil
	}
	decodeList(raw["edges"], &s.Edges)
	decodeList(raw["entry_nodes"], &s.EntryNodes)
	decodeList(raw["terminal_nodes"], &s.TerminalNodes)
	return s, nil
}

// DecodeBytes is [Decode] over an in-memory body.
func DecodeBytes(data []byte) (Spec, error) {
	return Decode(bytes.NewReader(data))
}

// ReadFile decodes a graph description from a file.
func ReadFile(path string) (Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return Spec{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// decodeList decodes a JSON array into dst, element by element, skipping
// elements that do not decode. It reports false if data is not an array.
func decodeList[T any](data json.RawMessage, dst *[]T) bool {
	var items []json.RawMessage
	if len(data) == 0 || json.Unmarshal(data, &items) != nil || items == nil {
		return false
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	*dst = out
	return true
}
