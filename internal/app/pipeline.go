package app

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/handdistance/internal/capture"
	"github.com/ayusman/handdistance/internal/logger"
)

// run opens the camera and drives the pipeline until ctx is cancelled:
//
//  1. the reader pulls frames at the current frame rate into the frame mailbox,
//     adjusting the rate when the activity monitor changes mode
//  2. the classifier takes the newest frame, asks the landmark source for a
//     hand, and advances the tracker
//  3. each result is put in the update mailbox for the UI goroutine
//
// A camera that cannot be opened fails the session without retrying; the
// failure is reported through a final Update.
func (a *App) run(ctx context.Context) error {
	log := logger.Entry(ctx)

	if a.config.Sessions != nil {
		sess, err := a.config.Sessions.Start(a.cameraID())
		if err != nil {
			log.WithError(err).Warn("session journal unavailable")
		} else {
			a.mu.Lock()
			a.sessionID = sess.ID
			a.mu.Unlock()
			log = log.WithField("session", sess.ID)
			ctx = logger.WithLogEntry(ctx, log)
		}
	}

	err := a.config.Camera.Open()
	if err != nil {
		err = errors.Wrap(err, "open camera")
		log.WithError(err).Error("capture session failed")
		a.shutdown(log)
		a.event(log, eventFail)
		a.finishJournal(log, err)
		a.updates.Put(Update{State: a.State(), Status: StatusFailed, Err: err})
		return err
	}
	a.config.Camera.SetFPS(a.config.IdleFPS)

	a.event(log, eventOpened)
	a.updates.Put(Update{State: a.State(), Status: StatusRunning})

	w, h := a.config.Camera.Size()
	log.WithFields(logrus.Fields{"width": w, "height": h}).Info("capture started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.read(gctx) })
	g.Go(func() error { return a.classify(gctx, a.surface(w, h)) })
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	a.frames.Drain()
	a.shutdown(log)

	if err != nil {
		a.event(log, eventFail)
		a.updates.Put(Update{State: a.State(), Status: StatusFailed, Err: err})
	} else {
		a.event(log, eventStop)
	}
	a.finishJournal(log, err)
	log.Info("capture stopped")

	return err
}

func (a *App) read(ctx context.Context) error {
	log := logger.Entry(ctx)

	fps := a.config.Camera.FPS()
	if fps <= 0 {
		fps = a.config.IdleFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		frame, err := a.config.Camera.ReadFrame()
		if err != nil {
			log.WithError(err).Trace("frame read failed")
			continue
		}

		if a.config.Activity != nil {
			if mode, changed := a.config.Activity.Observe(frame); changed {
				fps = a.config.IdleFPS
				if mode == capture.Active {
					fps = a.config.ActiveFPS
				}
				a.config.Camera.SetFPS(fps)
				ticker.Reset(time.Second / time.Duration(fps))
				log.WithField("fps", fps).Debugf("switched to %s mode", mode)
			}
		}

		a.frames.Put(frame)
	}
}

func (a *App) classify(ctx context.Context, surface capture.Surface) error {
	log := logger.Entry(ctx)

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-a.frames.C():
			obs, err := a.config.Source.Detect(frame)
			if err != nil {
				log.WithError(err).Warn("landmark detection failed")
				frame.Close()
				continue
			}

			prev := a.config.Tracker.State()
			state := a.config.Tracker.Observe(obs, surface.Map)
			seq++

			if state.Label != prev.Label {
				log.WithFields(logrus.Fields{
					"from":  prev.Label,
					"to":    state.Label,
					"count": state.Count,
				}).Info("gesture changed")
			}

			u := Update{Seq: seq, State: state, Status: StatusRunning}
			if a.config.ForwardFrames {
				u.Frame = frame
			} else {
				frame.Close()
			}

			// The UI may already be gone; the result is simply dropped.
			if ctx.Err() != nil {
				u.Release()
				return ctx.Err()
			}
			a.updates.Put(u)
		}
	}
}

func (a *App) surface(frameW, frameH int) capture.Surface {
	sw, sh := a.config.SurfaceWidth, a.config.SurfaceHeight
	if sw <= 0 || sh <= 0 {
		sw, sh = frameW, frameH
	}
	return capture.NewSurface(frameW, frameH, sw, sh, a.config.Mirror)
}

func (a *App) shutdown(log logrus.FieldLogger) {
	if err := a.config.Camera.Close(); err != nil {
		log.WithError(err).Warn("error closing camera")
	}
	if a.config.Activity != nil {
		a.config.Activity.Close()
	}
	if a.config.Source != nil {
		if err := a.config.Source.Close(); err != nil {
			log.WithError(err).Warn("error closing landmark source")
		}
	}
}

func (a *App) finishJournal(log logrus.FieldLogger, cause error) {
	id := a.SessionID()
	if a.config.Sessions == nil || id == "" {
		return
	}
	if err := a.config.Sessions.Finish(id, cause); err != nil {
		log.WithError(err).Warn("could not close session journal")
	}
}

func (a *App) cameraID() int {
	if o, ok := a.config.Camera.(interface{ DeviceID() int }); ok {
		return o.DeviceID()
	}
	return -1
}
