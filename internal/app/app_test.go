package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/handdistance/internal/capture"
	"github.com/ayusman/handdistance/internal/detector"
	"github.com/ayusman/handdistance/internal/gesture"
	"github.com/ayusman/handdistance/internal/store"
)

func loopCamera(t *testing.T) *capture.MockCamera {
	t.Helper()
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	return capture.NewMockCamera([]*gocv.Mat{&frame}, true)
}

// waitFor reads updates until match accepts one or the timeout expires.
func waitFor(t *testing.T, a *App, match func(Update) bool) Update {
	t.Helper()

	timeout := time.After(3 * time.Second)
	for {
		select {
		case u := <-a.Updates():
			u.Release()
			if match(u) {
				return u
			}
		case <-timeout:
			t.Fatalf("no matching update; status=%s state=%+v", a.Status(), a.State())
		}
	}
}

func TestApp_PinchIsCountedOnce(t *testing.T) {
	source := detector.NewMockDetector()
	source.SetObservation(detector.PinchLandmarks())

	a := New(Config{
		Camera:  loopCamera(t),
		Source:  source,
		IdleFPS: 100,
	})
	assert.Equal(t, StatusIdle, a.Status())

	require.NoError(t, a.Start(context.Background()))

	u := waitFor(t, a, func(u Update) bool { return u.Seq >= 5 })
	assert.Equal(t, StatusRunning, u.Status)
	assert.Equal(t, gesture.Pinch, u.State.Label)
	assert.Equal(t, 1, u.State.Count)
	require.NotNil(t, u.State.Region)
	assert.Greater(t, u.State.Region.Width, 2*gesture.DefaultPadding)

	require.NoError(t, a.Stop())
	assert.Equal(t, StatusStopped, a.Status())
	assert.GreaterOrEqual(t, source.Calls(), 5)
}

func TestApp_NoHandClearsRegion(t *testing.T) {
	source := detector.NewMockDetector()
	source.Queue(detector.PinchLandmarks())

	a := New(Config{Camera: loopCamera(t), Source: source, IdleFPS: 100})
	require.NoError(t, a.Start(context.Background()))
	defer a.Stop()

	u := waitFor(t, a, func(u Update) bool { return u.Seq >= 3 })
	assert.Equal(t, gesture.NoHand, u.State.Label)
	assert.Equal(t, 1, u.State.Count)
	assert.Nil(t, u.State.Region)
}

func TestApp_DetectionErrorsSkipFrames(t *testing.T) {
	source := detector.NewMockDetector()
	source.SetError(errors.New("service crashed"))

	a := New(Config{Camera: loopCamera(t), Source: source, IdleFPS: 100})
	require.NoError(t, a.Start(context.Background()))

	require.Eventually(t, func() bool { return source.Calls() >= 3 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, StatusRunning, a.Status())
	assert.Equal(t, gesture.State{}, a.State())

	require.NoError(t, a.Stop())
}

func TestApp_ForwardFrames(t *testing.T) {
	a := New(Config{Camera: loopCamera(t), IdleFPS: 100, ForwardFrames: true})
	require.NoError(t, a.Start(context.Background()))
	defer a.Stop()

	timeout := time.After(3 * time.Second)
	for {
		select {
		case u := <-a.Updates():
			if u.Seq == 0 {
				continue
			}
			require.NotNil(t, u.Frame)
			assert.Equal(t, 640, u.Frame.Cols())
			u.Release()
			return
		case <-timeout:
			t.Fatal("no frame forwarded")
		}
	}
}

func TestApp_CameraUnavailable(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()

	cam := loopCamera(t)
	cam.FailOpen(errors.Wrap(capture.ErrCameraUnavailable, "permission denied"))

	source := detector.NewMockDetector()
	a := New(Config{Camera: cam, Source: source, Sessions: s.Sessions()})
	require.NoError(t, a.Start(context.Background()))

	u := waitFor(t, a, func(u Update) bool { return u.Status == StatusFailed })
	assert.ErrorIs(t, u.Err, capture.ErrCameraUnavailable)
	assert.Equal(t, gesture.NoHand, u.State.Label)

	<-a.Done()
	assert.Equal(t, StatusFailed, a.Status())
	assert.ErrorIs(t, a.Err(), capture.ErrCameraUnavailable)
	assert.True(t, source.Closed(), "landmark source left open")

	t.Run("failure is journaled", func(t *testing.T) {
		sess, err := s.Sessions().GetByID(a.SessionID())
		require.NoError(t, err)
		assert.NotNil(t, sess.EndedAt)
		assert.Contains(t, sess.Error, "permission denied")
	})

	t.Run("is not restarted", func(t *testing.T) {
		assert.ErrorIs(t, a.Start(context.Background()), ErrAlreadyStarted)
	})
}

func TestApp_StopBeforeStart(t *testing.T) {
	a := New(Config{Camera: loopCamera(t)})
	assert.NoError(t, a.Stop())
}

func TestApp_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := New(Config{Camera: loopCamera(t), IdleFPS: 100})
	require.NoError(t, a.Start(ctx))

	waitFor(t, a, func(u Update) bool { return u.Status == StatusRunning })
	cancel()

	select {
	case <-a.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("pipeline did not stop")
	}
	assert.Equal(t, StatusStopped, a.Status())
	assert.NoError(t, a.Err())
}
