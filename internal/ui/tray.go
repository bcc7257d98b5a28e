package ui

import (
	"context"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/handdistance/internal/app"
	"github.com/ayusman/handdistance/internal/gesture"
)

// Tray presents the counter and gesture as system tray menu items.
type Tray struct {
	onQuit func()

	mu          sync.Mutex
	menuCount   *systray.MenuItem
	menuGesture *systray.MenuItem
	menuStatus  *systray.MenuItem
}

// NewTray creates a tray presenter. onQuit, if set, runs when Quit is chosen.
func NewTray(onQuit func()) *Tray {
	return &Tray{onQuit: onQuit}
}

// Run starts the tray and blocks until ctx is done or Quit is chosen.
// It must be called from the main goroutine.
func (t *Tray) Run(ctx context.Context, updates <-chan app.Update) error {
	systray.Run(func() { t.onReady(ctx, updates) }, func() {})
	return nil
}

func (t *Tray) onReady(ctx context.Context, updates <-chan app.Update) {
	systray.SetTitle("Pinch 0")
	systray.SetTooltip("Hand Distance")

	t.mu.Lock()
	t.menuCount = systray.AddMenuItem(CountText(0), "Pinches this session")
	t.menuCount.Disable()
	t.menuGesture = systray.AddMenuItem(GestureText(gesture.NoHand), "Current gesture")
	t.menuGesture.Disable()
	systray.AddSeparator()
	t.menuStatus = systray.AddMenuItem("Camera: starting", "Capture session")
	t.menuStatus.Disable()
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit Hand Distance")
	t.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				systray.Quit()
				return
			case u := <-updates:
				u.Release()
				t.show(u)
			case <-menuQuit.ClickedCh:
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) show(u app.Update) {
	t.mu.Lock()
	defer t.mu.Unlock()

	systray.SetTitle(trayTitle(u.State))
	t.menuCount.SetTitle(CountText(u.State.Count))
	t.menuGesture.SetTitle(GestureText(u.State.Label))
	t.menuStatus.SetTitle(StatusText(u))
}

func trayTitle(s gesture.State) string {
	if s.Label == gesture.Pinch {
		return "● Pinch " + itoa(s.Count)
	}
	return "Pinch " + itoa(s.Count)
}
