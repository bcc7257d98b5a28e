package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Frame differencing parameters.
const (
	blurKernel       = 21
	pixelDiffCut     = 25
	DefaultIdleFPS   = 5
	DefaultActiveFPS = 15
	// DefaultIdleAfter is how long the scene must stay still before dropping to the idle rate.
	DefaultIdleAfter = 2 * time.Second
)

// Activity is the capture rate mode.
type Activity int

const (
	Idle Activity = iota
	Active
)

func (a Activity) String() string {
	if a == Active {
		return "active"
	}
	return "idle"
}

// ActivityMonitor watches consecutive frames for movement and decides whether
// the camera should run at its idle or its active frame rate. It never drops
// frames itself; it only changes how often they are delivered.
type ActivityMonitor struct {
	// threshold is the percentage of changed pixels that counts as motion.
	threshold float64
	idleAfter time.Duration
	now       func() time.Time

	mu         sync.Mutex
	prev       gocv.Mat
	hasPrev    bool
	mode       Activity
	lastMotion time.Time
}

// NewActivityMonitor creates a monitor that starts in Idle. threshold is the
// percentage of pixels that must change between frames to count as motion.
func NewActivityMonitor(threshold float64, idleAfter time.Duration) *ActivityMonitor {
	if threshold <= 0 {
		threshold = 1.0
	}
	if idleAfter <= 0 {
		idleAfter = DefaultIdleAfter
	}
	return &ActivityMonitor{
		threshold: threshold,
		idleAfter: idleAfter,
		now:       time.Now,
		prev:      gocv.NewMat(),
	}
}

// Observe compares frame with the previous one and returns the resulting mode
// and whether it differs from the mode before this frame.
func (m *ActivityMonitor) Observe(frame *gocv.Mat) (Activity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := m.mode
	now := m.now()

	if m.changedPercent(frame) > m.threshold {
		m.lastMotion = now
		m.mode = Active
	} else if m.mode == Active && now.Sub(m.lastMotion) > m.idleAfter {
		m.mode = Idle
	}

	return m.mode, m.mode != before
}

// changedPercent returns the share of pixels, in percent, that moved since the
// previous frame. The first frame only seeds the baseline.
func (m *ActivityMonitor) changedPercent(frame *gocv.Mat) float64 {
	if frame == nil || frame.Empty() {
		return 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}
	gocv.GaussianBlur(gray, &gray, image.Pt(blurKernel, blurKernel), 0, 0, gocv.BorderDefault)

	if !m.hasPrev {
		gray.CopyTo(&m.prev)
		m.hasPrev = true
		return 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(gray, m.prev, &diff)
	gocv.Threshold(diff, &diff, pixelDiffCut, 255, gocv.ThresholdBinary)

	gray.CopyTo(&m.prev)

	total := diff.Rows() * diff.Cols()
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(diff)) / float64(total) * 100
}

// Mode returns the current mode.
func (m *ActivityMonitor) Mode() Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Close releases the baseline frame.
func (m *ActivityMonitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prev.Close()
	m.prev = gocv.NewMat()
	m.hasPrev = false
	m.mode = Idle
}
