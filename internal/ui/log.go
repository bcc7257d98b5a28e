package ui

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/handdistance/internal/app"
	"github.com/ayusman/handdistance/internal/gesture"
)

// LogPresenter writes a line whenever the label, count or status changes.
type LogPresenter struct {
	log logrus.FieldLogger
}

// NewLogPresenter creates a headless presenter.
func NewLogPresenter(log logrus.FieldLogger) *LogPresenter {
	return &LogPresenter{log: log}
}

// Run logs updates until ctx is done.
func (p *LogPresenter) Run(ctx context.Context, updates <-chan app.Update) error {
	var (
		last    gesture.State
		status  app.Status
		started bool
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-updates:
			u.Release()

			if u.Err != nil {
				p.log.WithError(u.Err).Error(StatusText(u))
			} else if u.Status != status {
				p.log.Info(StatusText(u))
			}
			status = u.Status

			if started && u.State.Label == last.Label && u.State.Count == last.Count {
				continue
			}
			started = true
			last = u.State

			p.log.WithField("region", regionField(u.State.Region)).
				Info(GestureText(u.State.Label) + ", " + CountText(u.State.Count))
		}
	}
}

func regionField(r *gesture.Region) string {
	if r == nil {
		return "none"
	}
	return strconv.FormatFloat(r.X, 'f', 0, 64) + "," + strconv.FormatFloat(r.Y, 'f', 0, 64) +
		" " + strconv.FormatFloat(r.Width, 'f', 0, 64) + "x" + strconv.FormatFloat(r.Height, 'f', 0, 64)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
