package layout

// Result is the render model: positioned nodes and routed edges, derived
// from a graph and never persisted.
type Result struct {
	Strategy  string         `json:"strategy"`
	Nodes     []PlacedNode   `json:"nodes"`
	Edges     []RoutedEdge   `json:"edges"`
	Rows      [][]string     `json:"rows"`
	Levels    map[string]int `json:"levels"`
	Crossings int            `json:"crossings"`
	Width     float64        `json:"width"`
	Height    float64        `json:"height"`
}

// PlacedNode is a node with its position. X and Y are the node's anchor; Y
// grows downward.
type PlacedNode struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Level    int     `json:"level"`
	Entry    bool    `json:"entry,omitempty"`
	Terminal bool    `json:"terminal,omitempty"`
	Dynamic  bool    `json:"dynamic,omitempty"`
}

// RoutedEdge is an edge with its optional side lane. A nil RouteX means the
// edge is drawn directly.
type RoutedEdge struct {
	Key    string   `json:"key"`
	Index  int      `json:"index"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Dashed bool     `json:"dashed,omitempty"`
	RouteX *float64 `json:"route_x,omitempty"`
}

// Node returns the placed node with the given ID.
func (r *Result) Node(id string) (PlacedNode, bool) {
	for _, n := range r.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return PlacedNode{}, false
}

// Edge returns the routed edge with the given key.
func (r *Result) Edge(key string) (RoutedEdge, bool) {
	for _, e := range r.Edges {
		if e.Key == key {
			return e, true
		}
	}
	return RoutedEdge{}, false
}

// Detours returns the number of edges routed through a side lane.
func (r *Result) Detours() int {
	n := 0
	for _, e := range r.Edges {
		if e.RouteX != nil {
			n++
		}
	}
	return n
}
