// Package detector provides the hand landmark source used by the classifier.
package detector

import (
	"math"
	"strings"
)

// Joint identifies one of the 21 hand landmarks, following the MediaPipe ordering.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
type Joint int

const (
	Wrist Joint = iota
	ThumbCMC
	ThumbMCP
	ThumbIP
	ThumbTip
	IndexMCP
	IndexPIP
	IndexDIP
	IndexTip
	MiddleMCP
	MiddlePIP
	MiddleDIP
	MiddleTip
	RingMCP
	RingPIP
	RingDIP
	RingTip
	PinkyMCP
	PinkyPIP
	PinkyDIP
	PinkyTip
	NumJoints = 21
)

var jointNames = [NumJoints]string{
	"wrist",
	"thumbCMC", "thumbMCP", "thumbIP", "thumbTip",
	"indexMCP", "indexPIP", "indexDIP", "indexTip",
	"middleMCP", "middlePIP", "middleDIP", "middleTip",
	"ringMCP", "ringPIP", "ringDIP", "ringTip",
	"pinkyMCP", "pinkyPIP", "pinkyDIP", "pinkyTip",
}

func (j Joint) String() string {
	if !j.Valid() {
		return "unknown"
	}
	return jointNames[j]
}

// Valid reports whether j belongs to the joint vocabulary.
func (j Joint) Valid() bool {
	return j >= 0 && j < NumJoints
}

// ParseJoint looks up a joint by name, ignoring case.
func ParseJoint(name string) (Joint, bool) {
	for i, n := range jointNames {
		if strings.EqualFold(n, name) {
			return Joint(i), true
		}
	}
	return 0, false
}

// Point is a position in normalized image coordinates, both axes in [0,1]
// with the origin at the top-left corner.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Landmark is a single detected joint for one frame.
type Landmark struct {
	Joint      Joint   `json:"joint"`
	Position   Point   `json:"position"`
	Confidence float64 `json:"confidence"`
}

// Observation holds the landmarks detected for one hand in one frame.
// A joint missing from the map was not located in that frame.
type Observation map[Joint]Landmark

// Get returns the landmark for a joint, if present.
func (o Observation) Get(j Joint) (Landmark, bool) {
	l, ok := o[j]
	return l, ok
}

// Set stores a landmark under its joint.
func (o Observation) Set(l Landmark) {
	o[l.Joint] = l
}
