package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/handdistance/internal/detector"
)

func TestStep(t *testing.T) {
	region := &Region{X: 1, Y: 2, Width: 3, Height: 4}

	tests := []struct {
		name      string
		from      Label
		to        Label
		wantCount int
	}{
		{"no hand to pinch", NoHand, Pinch, 1},
		{"open to pinch", Open, Pinch, 1},
		{"pinch held", Pinch, Pinch, 0},
		{"pinch to open", Pinch, Open, 0},
		{"pinch to no hand", Pinch, NoHand, 0},
		{"open held", Open, Open, 0},
		{"no hand to open", NoHand, Open, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := Step(State{Label: tt.from}, region, tt.to)
			assert.Equal(t, tt.to, next.Label)
			assert.Equal(t, tt.wantCount, next.Count)
			assert.Same(t, region, next.Region)
		})
	}
}

func TestTracker_CounterTrace(t *testing.T) {
	tracker := NewTracker(nil, 0)

	frames := []float64{0.2, 0.2, 0.05, 0.04, 0.2}
	wantLabels := []Label{Open, Open, Pinch, Pinch, Open}
	wantCounts := []int{0, 0, 1, 1, 1}

	for i, d := range frames {
		state := tracker.Observe(tips(d), nil)
		assert.Equal(t, wantLabels[i], state.Label, "frame %d", i+1)
		assert.Equal(t, wantCounts[i], state.Count, "frame %d", i+1)
	}
}

func TestTracker_NoHandAfterPinch(t *testing.T) {
	tracker := NewTracker(nil, 0)

	state := tracker.Observe(detector.PinchLandmarks(), nil)
	require.Equal(t, Pinch, state.Label)
	require.Equal(t, 1, state.Count)
	require.NotNil(t, state.Region)

	state = tracker.Observe(nil, nil)
	assert.Equal(t, NoHand, state.Label)
	assert.Equal(t, 1, state.Count)
	assert.Nil(t, state.Region)
}

func TestTracker_RepinchAfterNoHandCounts(t *testing.T) {
	tracker := NewTracker(nil, 0)

	tracker.Observe(detector.PinchLandmarks(), nil)
	tracker.Observe(nil, nil)
	state := tracker.Observe(detector.PinchLandmarks(), nil)

	assert.Equal(t, 2, state.Count)
}

func TestTracker_PartialObservation(t *testing.T) {
	partial := func() *detector.Observation {
		obs := detector.PinchLandmarks()
		delete(*obs, detector.ThumbTip)
		return obs
	}

	t.Run("holds the label indefinitely by default", func(t *testing.T) {
		tracker := NewTracker(nil, 0)
		tracker.Observe(detector.PinchLandmarks(), nil)

		var state State
		for i := 0; i < 100; i++ {
			state = tracker.Observe(partial(), nil)
		}
		assert.Equal(t, Pinch, state.Label)
		assert.Equal(t, 1, state.Count)
		assert.NotNil(t, state.Region, "region still tracks the visible landmarks")
	})

	t.Run("decays to no hand after max held frames", func(t *testing.T) {
		tracker := NewTracker(nil, 2)
		tracker.Observe(detector.PinchLandmarks(), nil)

		assert.Equal(t, Pinch, tracker.Observe(partial(), nil).Label)
		assert.Equal(t, Pinch, tracker.Observe(partial(), nil).Label)
		assert.Equal(t, NoHand, tracker.Observe(partial(), nil).Label)

		state := tracker.Observe(detector.PinchLandmarks(), nil)
		assert.Equal(t, Pinch, state.Label)
		assert.Equal(t, 2, state.Count, "re-entering pinch after decay counts")
	})

	t.Run("a full observation resets the held frames", func(t *testing.T) {
		tracker := NewTracker(nil, 2)
		tracker.Observe(detector.OpenLandmarks(), nil)

		tracker.Observe(partial(), nil)
		tracker.Observe(partial(), nil)
		tracker.Observe(detector.OpenLandmarks(), nil)
		state := tracker.Observe(partial(), nil)

		assert.Equal(t, Open, state.Label)
	})
}

func TestTracker_Reset(t *testing.T) {
	tracker := NewTracker(nil, 0)
	tracker.Observe(detector.PinchLandmarks(), nil)
	require.Equal(t, 1, tracker.State().Count)

	tracker.Reset()
	assert.Equal(t, State{}, tracker.State())
}
