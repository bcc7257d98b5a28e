// Package config resolves runtime settings from defaults, stored settings,
// the environment and command-line flags, in increasing order of precedence.
package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/ayusman/handdistance/internal/capture"
	"github.com/ayusman/handdistance/internal/gesture"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "HANDDISTANCE_"

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// UI modes.
const (
	UIWindow = "window"
	UITray   = "tray"
	UILog    = "log"
)

// Config holds every runtime setting.
type Config struct {
	CameraID      int
	FrameWidth    int
	FrameHeight   int
	SurfaceWidth  int
	SurfaceHeight int
	Mirror        bool

	IdleFPS         int
	ActiveFPS       int
	MotionThreshold float64

	ConfidenceThreshold float64
	PinchThreshold      float64
	Padding             float64
	MaxHeldFrames       int

	UI           string
	DataDir      string
	LogLevel     string
	SaveSettings bool
	DumpFSM      bool

	// explicit records keys set by the environment or flags.
	explicit map[string]bool
}

// Default returns the built-in configuration.
func Default() Config {
	dataDir := ".handdistance"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".handdistance")
	}

	return Config{
		CameraID:            0,
		FrameWidth:          capture.DefaultWidth,
		FrameHeight:         capture.DefaultHeight,
		SurfaceWidth:        capture.DefaultWidth,
		SurfaceHeight:       capture.DefaultHeight,
		Mirror:              true,
		IdleFPS:             capture.DefaultIdleFPS,
		ActiveFPS:           capture.DefaultActiveFPS,
		MotionThreshold:     1.0,
		ConfidenceThreshold: gesture.DefaultConfidenceThreshold,
		PinchThreshold:      gesture.DefaultPinchThreshold,
		Padding:             gesture.DefaultPadding,
		MaxHeldFrames:       0,
		UI:                  UIWindow,
		DataDir:             dataDir,
		LogLevel:            "info",
		explicit:            map[string]bool{},
	}
}

// persisted lists the keys that may be stored as settings.
var persisted = []string{
	"camera", "width", "height", "surface-width", "surface-height", "mirror",
	"idle-fps", "active-fps", "motion-threshold",
	"confidence-threshold", "pinch-threshold", "padding", "max-held-frames",
	"ui",
}

func (c *Config) flagSet(output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("handdistance", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.IntVar(&c.CameraID, "camera", c.CameraID, "capture device index")
	fs.IntVar(&c.FrameWidth, "width", c.FrameWidth, "requested frame width")
	fs.IntVar(&c.FrameHeight, "height", c.FrameHeight, "requested frame height")
	fs.IntVar(&c.SurfaceWidth, "surface-width", c.SurfaceWidth, "preview surface width")
	fs.IntVar(&c.SurfaceHeight, "surface-height", c.SurfaceHeight, "preview surface height")
	fs.BoolVar(&c.Mirror, "mirror", c.Mirror, "mirror the preview like a front camera")
	fs.IntVar(&c.IdleFPS, "idle-fps", c.IdleFPS, "frame rate while the scene is still")
	fs.IntVar(&c.ActiveFPS, "active-fps", c.ActiveFPS, "frame rate while the scene moves")
	fs.Float64Var(&c.MotionThreshold, "motion-threshold", c.MotionThreshold, "percent of changed pixels that counts as motion")
	fs.Float64Var(&c.ConfidenceThreshold, "confidence-threshold", c.ConfidenceThreshold, "landmark confidence needed to be drawn")
	fs.Float64Var(&c.PinchThreshold, "pinch-threshold", c.PinchThreshold, "thumb-index distance below which the hand is pinched")
	fs.Float64Var(&c.Padding, "padding", c.Padding, "bounding box padding in surface units")
	fs.IntVar(&c.MaxHeldFrames, "max-held-frames", c.MaxHeldFrames, "frames without fingertips before the label falls back to No Hand (0 holds)")
	fs.StringVar(&c.UI, "ui", c.UI, "presentation: window, tray or log")
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "directory holding the settings database")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "trace, debug, info, warn or error")
	fs.BoolVar(&c.SaveSettings, "save-settings", c.SaveSettings, "store the effective settings as new defaults")
	fs.BoolVar(&c.DumpFSM, "dump-fsm", c.DumpFSM, "write the session state machine as graphviz and exit")

	return fs
}

// LoadDotEnv loads variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && os.IsNotExist(errors.Cause(err)) {
		return nil
	}
	return errors.Wrapf(err, "load %s", path)
}

// Load applies environment variables and then args on top of the defaults.
func Load(args []string, getenv func(string) string, output io.Writer) (Config, error) {
	cfg := Default()
	fs := cfg.flagSet(output)

	fs.VisitAll(func(f *flag.Flag) {
		if v := getenv(envName(f.Name)); v != "" {
			if err := fs.Set(f.Name, v); err == nil {
				cfg.explicit[f.Name] = true
			}
		}
	})

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	fs.Visit(func(f *flag.Flag) {
		cfg.explicit[f.Name] = true
	})

	return cfg, nil
}

func envName(flagName string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// MergeSettings applies stored settings for keys not set by the environment
// or flags. Unknown keys are ignored.
func (c *Config) MergeSettings(settings map[string]string) error {
	if c.explicit == nil {
		c.explicit = map[string]bool{}
	}
	fs := c.flagSet(io.Discard)

	for _, key := range persisted {
		v, ok := settings[key]
		if !ok || c.explicit[key] {
			continue
		}
		if err := fs.Set(key, v); err != nil {
			return errors.Wrapf(err, "stored setting %s=%q", key, v)
		}
	}
	return nil
}

// Settings returns the persistable keys and their current values.
func (c *Config) Settings() map[string]string {
	fs := c.flagSet(io.Discard)

	out := make(map[string]string, len(persisted))
	for _, key := range persisted {
		out[key] = fs.Lookup(key).Value.String()
	}
	return out
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.CameraID < 0:
		return errors.Wrapf(ErrInvalid, "camera %d", c.CameraID)
	case c.FrameWidth <= 0 || c.FrameHeight <= 0:
		return errors.Wrapf(ErrInvalid, "frame size %dx%d", c.FrameWidth, c.FrameHeight)
	case c.SurfaceWidth <= 0 || c.SurfaceHeight <= 0:
		return errors.Wrapf(ErrInvalid, "surface size %dx%d", c.SurfaceWidth, c.SurfaceHeight)
	case c.IdleFPS <= 0 || c.ActiveFPS <= 0:
		return errors.Wrapf(ErrInvalid, "fps idle=%d active=%d", c.IdleFPS, c.ActiveFPS)
	case c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1:
		return errors.Wrapf(ErrInvalid, "confidence threshold %v", c.ConfidenceThreshold)
	case c.PinchThreshold <= 0 || c.PinchThreshold > 1:
		return errors.Wrapf(ErrInvalid, "pinch threshold %v", c.PinchThreshold)
	case c.Padding < 0:
		return errors.Wrapf(ErrInvalid, "padding %v", c.Padding)
	case c.MaxHeldFrames < 0:
		return errors.Wrapf(ErrInvalid, "max held frames %d", c.MaxHeldFrames)
	}

	switch c.UI {
	case UIWindow, UITray, UILog:
	default:
		return errors.Wrapf(ErrInvalid, "ui %q", c.UI)
	}
	return nil
}

// Gesture returns the classifier thresholds.
func (c Config) Gesture() gesture.Config {
	return gesture.Config{
		ConfidenceThreshold: c.ConfidenceThreshold,
		PinchThreshold:      c.PinchThreshold,
		Padding:             c.Padding,
	}
}

// Camera returns the capture options.
func (c Config) Camera() capture.Options {
	return capture.Options{
		DeviceID: c.CameraID,
		Width:    c.FrameWidth,
		Height:   c.FrameHeight,
		FPS:      c.IdleFPS,
	}
}
