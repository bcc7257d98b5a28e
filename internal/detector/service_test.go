package detector

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// writeScript creates a shell script standing in for the landmark service.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "service.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func testDetector(t *testing.T, script string) *ServiceDetector {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	d := newServiceDetector(DefaultConfig(), log, "/bin/sh", script)
	t.Cleanup(func() { d.Close() })
	return d
}

func testFrame(t *testing.T) *gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 80, 120, 0), 32, 32, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return &m
}

func TestServiceDetector_RestartsAfterCrash(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test")
	}

	d := testDetector(t, writeScript(t, "exit 1"))
	frame := testFrame(t)

	for i := 0; i < 2; i++ {
		_, err := d.Detect(frame)
		require.Error(t, err)
		assert.False(t, d.started, "dead service kept after frame %d", i)
	}

	// The next frame starts a fresh, healthy service.
	d.scriptPath = writeScript(t, `echo '{"hands":[]}'; cat > /dev/null`)
	obs, err := d.Detect(frame)
	require.NoError(t, err)
	assert.Nil(t, obs)
	assert.True(t, d.started)
}

func TestServiceDetector_BadResponseResets(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test")
	}

	d := testDetector(t, writeScript(t, `echo 'not json'; cat > /dev/null`))

	_, err := d.Detect(testFrame(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse response")
	assert.False(t, d.started)
}

func TestServiceDetector_FirstHand(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test")
	}

	d := testDetector(t, writeScript(t,
		`echo '{"hands":[{"points":[{"x":0.25,"y":0.75,"confidence":0.8}],"score":0.9}]}'; cat > /dev/null`))

	obs, err := d.Detect(testFrame(t))
	require.NoError(t, err)
	require.NotNil(t, obs)

	wrist, ok := obs.Get(Wrist)
	require.True(t, ok)
	assert.InDelta(t, 0.25, wrist.Position.X, 1e-9)
	assert.InDelta(t, 0.25, wrist.Position.Y, 1e-9)
	assert.InDelta(t, 0.8, wrist.Confidence, 1e-9)
}
