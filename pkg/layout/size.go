package layout

import (
	"unicode/utf8"

	"github.com/matzehuels/graphstudio/pkg/graph"
)

// Node size estimation, in pixels.
const (
	charWidth    = 8.0
	labelPadding = 48.0
	badgeWidth   = 72.0
	baseHeight   = 56.0
	badgeHeight  = 28.0
)

// EstimateNodeSize returns the rendered size of a node from its label length
// and the number of badges (entry, terminal, dynamic) it carries. The width
// is never below minWidth.
func EstimateNodeSize(n graph.Node, minWidth float64) (width, height float64) {
	badges := 0
	for _, b := range []bool{n.Entry, n.Terminal, n.Dynamic} {
		if b {
			badges++
		}
	}
	width = float64(utf8.RuneCountInString(n.DisplayLabel()))*charWidth + labelPadding
	width = max(width, float64(badges)*badgeWidth+labelPadding, minWidth)
	height = baseHeight
	if badges > 0 {
		height += badgeHeight
	}
	return width, height
}
