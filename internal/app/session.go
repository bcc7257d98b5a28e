package app

import (
	"io"

	"github.com/looplab/fsm"
	"github.com/sirupsen/logrus"
)

// Status is the capture session lifecycle state.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusFailed   Status = "failed"
	StatusStopped  Status = "stopped"
)

// Session lifecycle events.
const (
	eventStart  = "start"
	eventOpened = "opened"
	eventFail   = "fail"
	eventStop   = "stop"
)

// newSessionFSM builds the capture lifecycle. A session starts once; failed
// and stopped are final.
func newSessionFSM(log logrus.FieldLogger) *fsm.FSM {
	return fsm.NewFSM(
		string(StatusIdle),
		fsm.Events{
			{Name: eventStart, Src: []string{string(StatusIdle)}, Dst: string(StatusStarting)},
			{Name: eventOpened, Src: []string{string(StatusStarting)}, Dst: string(StatusRunning)},
			{Name: eventFail, Src: []string{string(StatusStarting), string(StatusRunning)}, Dst: string(StatusFailed)},
			{Name: eventStop, Src: []string{string(StatusStarting), string(StatusRunning)}, Dst: string(StatusStopped)},
		},
		fsm.Callbacks{
			"after_event": func(e *fsm.Event) {
				log.WithFields(logrus.Fields{"from": e.Src, "to": e.Dst}).Debug("session " + e.Event)
			},
		},
	)
}

// Visualize renders the session lifecycle as graphviz source.
func Visualize() string {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return fsm.Visualize(newSessionFSM(log))
}
