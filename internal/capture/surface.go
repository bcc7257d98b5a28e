package capture

import (
	"math"

	"github.com/ayusman/handdistance/internal/detector"
	"github.com/ayusman/handdistance/internal/gesture"
)

// Surface maps normalized frame coordinates onto a preview surface that shows
// the frame scaled to fill it, cropping whichever axis overflows.
type Surface struct {
	FrameWidth    float64
	FrameHeight   float64
	SurfaceWidth  float64
	SurfaceHeight float64
	// Mirror flips the x axis, as a front camera preview does.
	Mirror bool
}

// NewSurface creates a Surface for a frame of fw×fh pixels shown on a sw×sh surface.
func NewSurface(fw, fh, sw, sh int, mirror bool) Surface {
	return Surface{
		FrameWidth:    float64(fw),
		FrameHeight:   float64(fh),
		SurfaceWidth:  float64(sw),
		SurfaceHeight: float64(sh),
		Mirror:        mirror,
	}
}

// Scale returns the frame-to-surface scale factor.
func (s Surface) Scale() float64 {
	if s.FrameWidth <= 0 || s.FrameHeight <= 0 {
		return 0
	}
	return math.Max(s.SurfaceWidth/s.FrameWidth, s.SurfaceHeight/s.FrameHeight)
}

// Map converts a normalized frame point into surface coordinates.
func (s Surface) Map(p detector.Point) gesture.SurfacePoint {
	scale := s.Scale()
	offX := (s.SurfaceWidth - s.FrameWidth*scale) / 2
	offY := (s.SurfaceHeight - s.FrameHeight*scale) / 2

	x := p.X
	if s.Mirror {
		x = 1 - x
	}

	return gesture.SurfacePoint{
		X: x*s.FrameWidth*scale + offX,
		Y: p.Y*s.FrameHeight*scale + offY,
	}
}
