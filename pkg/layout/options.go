package layout

import (
	"github.com/charmbracelet/log"
)

// Default spacing, in pixels.
const (
	DefaultGapX      = 260.0
	DefaultGapY      = 190.0
	DefaultNodeWidth = 160.0
)

// Dynamic nodes sit beside their source, offset by these fractions of the gaps.
const (
	dynamicOffsetX = 0.7
	dynamicOffsetY = 0.4
)

// Side lanes start this many horizontal gaps outside the widest row and are
// spaced by laneSpacing gaps.
const (
	laneMargin  = 1.1
	laneSpacing = 0.35
)

// Options configures layout strategies. Zero fields take their defaults.
type Options struct {
	GapX      float64
	GapY      float64
	NodeWidth float64
	Leveler   Leveler
	Orderer   Orderer
	Logger    *log.Logger
}

// DefaultOptions returns options with longest-path leveling and barycenter
// ordering.
func DefaultOptions() Options {
	o := Options{}
	o.setDefaults()
	return o
}

func (o *Options) setDefaults() {
	if o.GapX <= 0 {
		o.GapX = DefaultGapX
	}
	if o.GapY <= 0 {
		o.GapY = DefaultGapY
	}
	if o.NodeWidth <= 0 {
		o.NodeWidth = DefaultNodeWidth
	}
	if o.Leveler == nil {
		o.Leveler = LongestPath{}
	}
	if o.Orderer == nil {
		o.Orderer = Barycenter{Passes: DefaultPasses}
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
}

// LevelerByName returns the leveler for "longest" or "shortest".
func LevelerByName(name string) (Leveler, bool) {
	switch name {
	case "", "longest":
		return LongestPath{}, true
	case "shortest":
		return ShortestPath{}, true
	}
	return nil, false
}
