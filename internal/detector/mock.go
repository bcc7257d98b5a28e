package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a Source whose results are set by the test.
// Queued observations are returned one per Detect call; once the
// queue is drained the fixed observation is returned.
type MockDetector struct {
	mu     sync.Mutex
	obs    *Observation
	queue  []*Observation
	err    error
	calls  int
	closed bool
}

// NewMockDetector creates a new MockDetector that reports no hand.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetObservation sets the observation returned by every Detect call.
func (m *MockDetector) SetObservation(obs *Observation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.obs = obs
}

// Queue appends observations to be returned in order, one per frame.
// A nil entry reports a frame with no hand.
func (m *MockDetector) Queue(obs ...*Observation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, obs...)
}

// SetError sets the error returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next queued observation, the fixed observation, or the configured error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		obs := m.queue[0]
		m.queue = m.queue[1:]
		return obs, nil
	}
	return m.obs, nil
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// openPalm holds a right hand, palm facing the camera, fingers spread.
var openPalm = [NumJoints]Point{
	Wrist:     {X: 0.50, Y: 0.80},
	ThumbCMC:  {X: 0.55, Y: 0.75},
	ThumbMCP:  {X: 0.62, Y: 0.70},
	ThumbIP:   {X: 0.68, Y: 0.65},
	ThumbTip:  {X: 0.73, Y: 0.60},
	IndexMCP:  {X: 0.55, Y: 0.68},
	IndexPIP:  {X: 0.57, Y: 0.55},
	IndexDIP:  {X: 0.58, Y: 0.45},
	IndexTip:  {X: 0.58, Y: 0.35},
	MiddleMCP: {X: 0.50, Y: 0.66},
	MiddlePIP: {X: 0.50, Y: 0.52},
	MiddleDIP: {X: 0.50, Y: 0.40},
	MiddleTip: {X: 0.50, Y: 0.28},
	RingMCP:   {X: 0.45, Y: 0.68},
	RingPIP:   {X: 0.43, Y: 0.55},
	RingDIP:   {X: 0.42, Y: 0.45},
	RingTip:   {X: 0.42, Y: 0.35},
	PinkyMCP:  {X: 0.40, Y: 0.70},
	PinkyPIP:  {X: 0.37, Y: 0.60},
	PinkyDIP:  {X: 0.35, Y: 0.50},
	PinkyTip:  {X: 0.34, Y: 0.42},
}

func handFrom(points [NumJoints]Point, conf float64) *Observation {
	obs := make(Observation, NumJoints)
	for i, p := range points {
		obs.Set(Landmark{Joint: Joint(i), Position: p, Confidence: conf})
	}
	return &obs
}

// OpenLandmarks returns an open hand with every joint at confidence 0.9.
// Thumb and index tips are about 0.29 apart.
func OpenLandmarks() *Observation {
	return handFrom(openPalm, 0.9)
}

// PinchLandmarks returns a hand whose thumb tip touches the index tip.
func PinchLandmarks() *Observation {
	points := openPalm
	points[ThumbIP] = Point{X: 0.62, Y: 0.45}
	points[ThumbTip] = Point{X: 0.59, Y: 0.37}
	return handFrom(points, 0.9)
}

// WithTipDistance returns an open hand whose thumb tip is placed exactly
// d to the right of the index tip.
func WithTipDistance(d float64) *Observation {
	points := openPalm
	points[ThumbTip] = Point{X: points[IndexTip].X + d, Y: points[IndexTip].Y}
	return handFrom(points, 0.9)
}
