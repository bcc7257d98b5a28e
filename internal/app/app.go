// Package app runs the capture session: frames flow from the camera through the
// landmark source and the gesture tracker to the presentation layer.
package app

import (
	"context"
	"sync"

	"github.com/looplab/fsm"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/handdistance/internal/capture"
	"github.com/ayusman/handdistance/internal/detector"
	"github.com/ayusman/handdistance/internal/gesture"
	"github.com/ayusman/handdistance/internal/logger"
	"github.com/ayusman/handdistance/internal/store"
)

// ErrAlreadyStarted is returned by Start on a session that has already run.
var ErrAlreadyStarted = errors.New("session already started")

// Update is one frame's result for the presentation layer.
type Update struct {
	Seq    uint64
	State  gesture.State
	Status Status
	// Err is set when the session failed.
	Err error
	// Frame is the camera frame the state was computed from, when frames are
	// forwarded. The receiver owns it and must call Release.
	Frame *gocv.Mat
}

// Release frees the attached frame, if any.
func (u Update) Release() {
	if u.Frame != nil {
		u.Frame.Close()
	}
}

// Config wires the session's collaborators.
type Config struct {
	Camera  capture.Camera
	Source  detector.Source
	Tracker *gesture.Tracker

	// Activity, when set, switches the camera between IdleFPS and ActiveFPS.
	Activity  *capture.ActivityMonitor
	IdleFPS   int
	ActiveFPS int

	// SurfaceWidth and SurfaceHeight size the preview surface. Zero uses the frame size.
	SurfaceWidth  int
	SurfaceHeight int
	Mirror        bool

	// ForwardFrames attaches each processed frame to its Update.
	ForwardFrames bool

	// Sessions, when set, journals the session start and end.
	Sessions *store.SessionRepository
}

// App owns one capture session.
type App struct {
	config  Config
	fsm     *fsm.FSM
	updates *Mailbox[Update]
	frames  *Mailbox[*gocv.Mat]

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	err       error
	sessionID string
}

// New creates an App. The session does not start until Start is called.
func New(config Config) *App {
	if config.Source == nil {
		config.Source = detector.NewMockDetector()
	}
	if config.Tracker == nil {
		config.Tracker = gesture.NewTracker(nil, 0)
	}
	if config.IdleFPS <= 0 {
		config.IdleFPS = capture.DefaultIdleFPS
	}
	if config.ActiveFPS <= 0 {
		config.ActiveFPS = capture.DefaultActiveFPS
	}

	return &App{
		config:  config,
		updates: NewMailbox(Update.Release),
		frames:  NewMailbox(func(m *gocv.Mat) { m.Close() }),
	}
}

// Updates delivers the latest result. Intermediate results the reader did
// not collect in time are dropped.
func (a *App) Updates() <-chan Update {
	return a.updates.C()
}

// Status returns the session lifecycle state.
func (a *App) Status() Status {
	a.mu.Lock()
	f := a.fsm
	a.mu.Unlock()

	if f == nil {
		return StatusIdle
	}
	return Status(f.Current())
}

// State returns the tracker's current state.
func (a *App) State() gesture.State {
	return a.config.Tracker.State()
}

// SessionID returns the journal id of the running session, if journaled.
func (a *App) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionID
}

// Start opens the camera and runs the pipeline in the background. A session
// can be started only once.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.fsm != nil {
		return ErrAlreadyStarted
	}

	log := logger.Entry(ctx)
	a.fsm = newSessionFSM(log)
	if err := a.fsm.Event(eventStart); err != nil {
		return errors.Wrap(err, "start session")
	}

	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})

	go func() {
		defer close(a.done)
		err := a.run(ctx)

		a.mu.Lock()
		a.err = err
		a.mu.Unlock()
	}()

	return nil
}

// Stop cancels the session and waits for the pipeline to finish.
func (a *App) Stop() error {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return a.Err()
}

// Done is closed once the pipeline has finished.
func (a *App) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

// Err returns the error that ended the session, if any.
func (a *App) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

func (a *App) event(log logrus.FieldLogger, name string) {
	err := a.fsm.Event(name)
	if _, ok := err.(fsm.NoTransitionError); err != nil && !ok {
		log.WithError(err).WithField("event", name).Warn("session transition rejected")
	}
}
