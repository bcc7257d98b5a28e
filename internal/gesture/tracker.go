package gesture

import (
	"sync"

	"github.com/ayusman/handdistance/internal/detector"
)

// State is what the presentation layer shows for one frame.
type State struct {
	Label  Label   `json:"label"`
	Count  int     `json:"count"`
	Region *Region `json:"region,omitempty"`
}

// Step applies one frame's classification to s. The count grows by one
// only when the label enters Pinch from another label.
func Step(s State, region *Region, label Label) State {
	next := State{
		Label:  label,
		Count:  s.Count,
		Region: region,
	}
	if label == Pinch && s.Label != Pinch {
		next.Count++
	}
	return next
}

// Tracker owns the running gesture state: the current label and the pinch count.
type Tracker struct {
	classifier *Classifier

	// maxHeld is how many consecutive partial observations may hold the
	// previous label before it decays to NoHand. Zero holds indefinitely.
	maxHeld int

	mu    sync.Mutex
	state State
	held  int
}

// NewTracker creates a Tracker starting in NoHand with a zero count.
func NewTracker(classifier *Classifier, maxHeld int) *Tracker {
	if classifier == nil {
		classifier = defaultClassifier
	}
	if maxHeld < 0 {
		maxHeld = 0
	}
	return &Tracker{
		classifier: classifier,
		maxHeld:    maxHeld,
	}
}

// Observe classifies one frame and advances the state.
func (t *Tracker) Observe(obs *detector.Observation, toSurface Mapper) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	region, label := t.classifier.Classify(obs, t.state.Label, toSurface)

	if obs != nil && !hasTips(*obs) {
		t.held++
		if t.maxHeld > 0 && t.held > t.maxHeld {
			label = NoHand
		}
	} else {
		t.held = 0
	}

	t.state = Step(t.state, region, label)
	return t.state
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Reset returns the tracker to NoHand with a zero count.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = State{}
	t.held = 0
}

func hasTips(obs detector.Observation) bool {
	_, thumb := obs.Get(detector.ThumbTip)
	_, index := obs.Get(detector.IndexTip)
	return thumb && index
}
