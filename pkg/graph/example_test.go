package graph_test

import (
	"fmt"
	"strings"

	"github.com/matzehuels/graphstudio/pkg/graph"
)

func ExampleLoad() {
	body := `{
	  "nodes": [{"node_id": "start"}, {"node_id": "route", "label": "Router"}],
	  "edges": [
	    {"source_node_id": "start", "target_node_id": "route"},
	    {"source_node_id": "route", "target_node_id": null, "dynamic": true}
	  ],
	  "entry_nodes": ["start"]
	}`

	g, err := graph.Load(strings.NewReader(body))
	if err != nil {
		panic(err)
	}
	for _, n := range g.Nodes() {
		fmt.Println(n.ID, "=", n.DisplayLabel())
	}
	for _, e := range g.Edges() {
		fmt.Println(e.Key())
	}
	// Output:
	// start = start
	// route = Router
	// dynamic-route = Dynamic target
	// e-start-route-0
	// e-route-dynamic-route-1
}
