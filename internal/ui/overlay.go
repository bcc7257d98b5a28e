package ui

import (
	"context"
	"image"
	"image/color"
	"math"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handdistance/internal/app"
	"github.com/ayusman/handdistance/internal/capture"
	"github.com/ayusman/handdistance/internal/gesture"
)

var (
	boxColor     = color.RGBA{G: 255}
	textColor    = color.RGBA{R: 255, G: 255, B: 255}
	pinchColor   = color.RGBA{G: 255}
	errorColor   = color.RGBA{R: 255, G: 80, B: 80}
	captionColor = color.RGBA{}
)

const (
	boxThickness = 3
	// pumpInterval keeps the window responsive when no update arrives.
	pumpInterval = 30 * time.Millisecond
)

// Overlay shows camera frames in an OpenCV window with the hand region
// outlined and the count and gesture captions drawn on top.
type Overlay struct {
	title  string
	mirror bool
	width  int
	height int
}

// NewOverlay creates an overlay window presenter. Frames are flipped
// horizontally when mirror is set; regions are expected in mirrored coordinates.
func NewOverlay(title string, mirror bool, width, height int) *Overlay {
	return &Overlay{title: title, mirror: mirror, width: width, height: height}
}

// Run shows updates until ctx is done or a key is pressed in the window.
func (o *Overlay) Run(ctx context.Context, updates <-chan app.Update) error {
	window := gocv.NewWindow(o.title)
	defer window.Close()

	canvas := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), o.height, o.width, gocv.MatTypeCV8UC3)
	defer canvas.Close()

	pump := time.NewTicker(pumpInterval)
	defer pump.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-updates:
			o.compose(&canvas, u)
			window.IMShow(canvas)
		case <-pump.C:
		}

		if window.WaitKey(1) >= 0 {
			return nil
		}
	}
}

// compose fills canvas with the update's frame, or blanks it, and draws the state on it.
func (o *Overlay) compose(canvas *gocv.Mat, u app.Update) {
	defer u.Release()

	if u.Frame != nil && !u.Frame.Empty() {
		o.fill(canvas, *u.Frame)
	} else {
		canvas.SetTo(gocv.NewScalar(0, 0, 0, 0))
	}
	Draw(canvas, u)
}

// fill scales frame to cover the canvas and crops the overflow evenly, the
// same aspect-fill that capture.Surface applies to regions.
func (o *Overlay) fill(canvas *gocv.Mat, frame gocv.Mat) {
	width, height := o.width, o.height
	if width <= 0 || height <= 0 {
		width, height = frame.Cols(), frame.Rows()
	}

	surface := capture.NewSurface(frame.Cols(), frame.Rows(), width, height, false)
	scale := surface.Scale()
	w := max(width, int(math.Round(surface.FrameWidth*scale)))
	h := max(height, int(math.Round(surface.FrameHeight*scale)))

	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Resize(frame, &scaled, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)

	x0, y0 := (w-width)/2, (h-height)/2
	visible := scaled.Region(image.Rect(x0, y0, x0+width, y0+height))
	defer visible.Close()

	if o.mirror {
		gocv.Flip(visible, canvas, 1)
	} else {
		visible.CopyTo(canvas)
	}
}

// Draw paints the region outline and the captions for u onto img.
func Draw(img *gocv.Mat, u app.Update) {
	if r := u.State.Region; r != nil {
		gocv.Rectangle(img, toRect(*r), boxColor, boxThickness)
	}

	bottom := img.Rows()
	if u.Err != nil {
		caption(img, StatusText(u), image.Pt(20, 40), errorColor)
	}
	caption(img, CountText(u.State.Count), image.Pt(20, bottom-90), textColor)

	gestureColor := textColor
	if u.State.Label == gesture.Pinch {
		gestureColor = pinchColor
	}
	caption(img, GestureText(u.State.Label), image.Pt(20, bottom-40), gestureColor)
}

func caption(img *gocv.Mat, text string, at image.Point, c color.RGBA) {
	const (
		font      = gocv.FontHersheySimplex
		scale     = 1.0
		thickness = 2
	)
	size := gocv.GetTextSize(text, font, scale, thickness)
	bg := image.Rect(at.X-10, at.Y-size.Y-10, at.X+size.X+10, at.Y+10)
	gocv.Rectangle(img, bg, captionColor, -1)
	gocv.PutText(img, text, at, font, scale, c, thickness)
}

func toRect(r gesture.Region) image.Rectangle {
	x0 := int(math.Round(r.X))
	y0 := int(math.Round(r.Y))
	x1 := int(math.Round(r.X + r.Width))
	y1 := int(math.Round(r.Y + r.Height))
	return image.Rect(x0, y0, x1, y1)
}
