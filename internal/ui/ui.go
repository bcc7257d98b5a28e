// Package ui presents the gesture state: an OpenCV overlay window, a system
// tray menu, or plain log lines.
package ui

import (
	"context"
	"fmt"

	"github.com/ayusman/handdistance/internal/app"
	"github.com/ayusman/handdistance/internal/gesture"
)

// Presenter shows updates. Run must be called from the goroutine that owns
// the UI and returns when ctx is done or the user quits.
type Presenter interface {
	Run(ctx context.Context, updates <-chan app.Update) error
}

// CountText is the pinch counter caption.
func CountText(n int) string {
	return fmt.Sprintf("Pinch Count: %d", n)
}

// GestureText is the gesture caption.
func GestureText(l gesture.Label) string {
	return "Detected Gesture: " + l.String()
}

// StatusText describes the session for the operator.
func StatusText(u app.Update) string {
	if u.Err != nil {
		return "Camera error: " + u.Err.Error()
	}
	return "Camera: " + string(u.Status)
}
