// Package graph decodes workflow graph descriptions and normalizes them into
// the closed node/edge model used by layout and run visualization.
//
// # Wire Format
//
// The backend describes a workflow as:
//
//	{
//	  "nodes": [{"node_id": "start", "label": "Start"}, {"node_id": "plan"}],
//	  "edges": [
//	    {"source_node_id": "start", "target_node_id": "plan"},
//	    {"source_node_id": "plan", "target_node_id": null, "dynamic": true}
//	  ],
//	  "entry_nodes": ["start"],
//	  "terminal_nodes": ["plan"]
//	}
//
// [Decode] is tolerant: a missing or malformed "nodes" field yields an empty
// [Spec], and malformed "edges", "entry_nodes" or "terminal_nodes" fields are
// treated as empty lists.
//
// # Normalization
//
// [Normalize] turns a [Spec] into a [Graph]:
//
//   - Every edge with no target becomes an edge into a synthetic dynamic node
//     with ID "dynamic-<source>" and label "Dynamic target". At most one
//     dynamic node exists per source.
//   - Edges whose source is not a declared node are skipped and counted
//     ([Graph.SkippedEdges]). Undeclared targets are materialized as implicit
//     nodes, so every edge refers to a node of the graph.
//   - Entry and terminal lists are resolved against declared nodes; unknown
//     IDs are ignored.
//
// Edges keep their input order. Each edge gets a key of the form
// "e-<source>-<target>-<index>" where index is the edge's input position.
//
// # Concurrency
//
// A [Graph] is immutable once [Normalize] returns and may be shared between
// goroutines for reading.
package graph
