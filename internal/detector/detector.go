package detector

import "gocv.io/x/gocv"

// Source yields at most one hand observation per video frame.
type Source interface {
	// Detect analyzes a frame. It returns nil with a nil error when no hand is found.
	Detect(frame *gocv.Mat) (*Observation, error)

	// Close releases any resources held by the source.
	Close() error
}

// Config holds configuration options for the landmark service.
type Config struct {
	// MinConfidence is the minimum hand detection confidence the service should report (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// FlipY converts service coordinates (origin bottom-left) into image
	// coordinates (origin top-left) by replacing y with 1-y.
	FlipY bool
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		FlipY:           true,
	}
}
