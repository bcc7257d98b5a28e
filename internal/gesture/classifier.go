// Package gesture classifies a hand observation as open or pinched and
// computes the on-screen region enclosing it.
package gesture

import (
	"math"

	"github.com/ayusman/handdistance/internal/detector"
)

// Default classification constants.
const (
	// DefaultConfidenceThreshold is the confidence a landmark must exceed to be drawn.
	DefaultConfidenceThreshold = 0.3
	// DefaultPinchThreshold is the normalized thumb-index distance below which the hand is pinched.
	DefaultPinchThreshold = 0.1
	// DefaultPadding is added to each side of the bounding region, in surface units.
	DefaultPadding = 50
)

// Label is the per-frame gesture classification.
type Label int

const (
	NoHand Label = iota
	Open
	Pinch
)

func (l Label) String() string {
	switch l {
	case NoHand:
		return "No Hand"
	case Open:
		return "Open"
	case Pinch:
		return "Pinch"
	default:
		return "Unknown"
	}
}

// SurfacePoint is a position in rendering surface coordinates.
type SurfacePoint struct {
	X float64
	Y float64
}

// Mapper converts a normalized image point into surface coordinates.
type Mapper func(detector.Point) SurfacePoint

// Identity maps normalized coordinates onto themselves.
func Identity(p detector.Point) SurfacePoint {
	return SurfacePoint{X: p.X, Y: p.Y}
}

// Region is an axis-aligned rectangle in surface coordinates.
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Config holds the classifier thresholds.
type Config struct {
	ConfidenceThreshold float64
	PinchThreshold      float64
	Padding             float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		PinchThreshold:      DefaultPinchThreshold,
		Padding:             DefaultPadding,
	}
}

// Classifier turns one frame's observation into a region and a label.
// It holds no per-frame state and is safe for concurrent use.
type Classifier struct {
	config Config
}

// NewClassifier creates a Classifier with the given thresholds.
func NewClassifier(config Config) *Classifier {
	return &Classifier{config: config}
}

// Config returns the classifier thresholds.
func (c *Classifier) Config() Config {
	return c.config
}

// Classify returns the bounding region of the confident landmarks and the gesture label.
//
// A nil observation yields (nil, NoHand). When thumb tip or index tip is missing
// the label is prev unchanged. The region is nil when no landmark exceeds the
// confidence threshold. A nil toSurface uses Identity.
func (c *Classifier) Classify(obs *detector.Observation, prev Label, toSurface Mapper) (*Region, Label) {
	if obs == nil {
		return nil, NoHand
	}
	if toSurface == nil {
		toSurface = Identity
	}

	return c.region(*obs, toSurface), c.label(*obs, prev)
}

// label compares raw normalized tip positions, not surface positions.
func (c *Classifier) label(obs detector.Observation, prev Label) Label {
	thumb, ok := obs.Get(detector.ThumbTip)
	if !ok {
		return prev
	}
	index, ok := obs.Get(detector.IndexTip)
	if !ok {
		return prev
	}

	if detector.Distance(thumb.Position, index.Position) < c.config.PinchThreshold {
		return Pinch
	}
	return Open
}

func (c *Classifier) region(obs detector.Observation, toSurface Mapper) *Region {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	found := false

	for _, l := range obs {
		if !(l.Confidence > c.config.ConfidenceThreshold) {
			continue
		}
		p := toSurface(l.Position)
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
		found = true
	}

	if !found {
		return nil
	}

	pad := c.config.Padding
	return &Region{
		X:      minX - pad,
		Y:      minY - pad,
		Width:  (maxX - minX) + 2*pad,
		Height: (maxY - minY) + 2*pad,
	}
}

var defaultClassifier = NewClassifier(DefaultConfig())

// Classify runs the default classifier.
func Classify(obs *detector.Observation, prev Label, toSurface Mapper) (*Region, Label) {
	return defaultClassifier.Classify(obs, prev, toSurface)
}
