package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// ServiceIdleTimeout is how long the landmark service may sit unused before it is stopped.
const ServiceIdleTimeout = 30 * time.Second

const serviceScript = "landmark_service.py"

// ErrServiceNotFound is returned when the landmark service script cannot be located.
var ErrServiceNotFound = errors.New("landmark service not found")

// ServiceDetector implements Source on top of an external landmark service.
// Frames are written to the service's stdin as a 4-byte big-endian length followed
// by JPEG bytes; the service answers each frame with one JSON line on stdout.
type ServiceDetector struct {
	config     Config
	python     string
	scriptPath string
	log        logrus.FieldLogger

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	started   bool
	idleTimer *time.Timer
}

// NewServiceDetector locates the landmark service. The process itself is started
// lazily on the first call to Detect.
func NewServiceDetector(config Config, log logrus.FieldLogger) (*ServiceDetector, error) {
	scriptPath := findServiceScript()
	if scriptPath == "" {
		return nil, ErrServiceNotFound
	}

	python := findVenvPython()
	if python == "" {
		python = "python3"
	}
	return newServiceDetector(config, log, python, scriptPath), nil
}

func newServiceDetector(config Config, log logrus.FieldLogger, python, scriptPath string) *ServiceDetector {
	return &ServiceDetector{
		config:     config,
		python:     python,
		scriptPath: scriptPath,
		log:        log,
	}
}

// Detect sends a frame to the service and returns the first reported hand.
func (d *ServiceDetector) Detect(frame *gocv.Mat) (*Observation, error) {
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, errors.Wrap(err, "encode frame")
	}
	defer buf.Close()

	data := buf.GetBytes()

	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))

	if _, err := d.stdin.Write(length[:]); err != nil {
		return nil, d.reset(err, "write length")
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, d.reset(err, "write frame")
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		return nil, d.reset(err, "read response")
	}

	var resp serviceResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, d.reset(err, "parse response")
	}

	d.resetIdleTimer()

	if len(resp.Hands) == 0 {
		return nil, nil
	}
	return resp.Hands[0].observation(d.config.FlipY), nil
}

// Close stops the service process.
func (d *ServiceDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *ServiceDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	d.cmd = exec.Command(d.python, d.scriptPath,
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
		"--max-hands", "1",
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return errors.Wrap(err, "create stdin pipe")
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "create stdout pipe")
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		d.cmd = nil
		return errors.Wrap(err, "start landmark service")
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	d.log.WithField("script", d.scriptPath).Info("landmark service started")

	return nil
}

// reset stops a service that failed mid-frame so the next Detect starts a
// fresh one.
func (d *ServiceDetector) reset(cause error, msg string) error {
	if err := d.shutdown(); err != nil {
		d.log.WithError(err).Debug("landmark service exited")
	}
	return errors.Wrap(cause, msg)
}

func (d *ServiceDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	d.stdin.Close()

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	d.log.Debug("landmark service stopped")
	return err
}

func (d *ServiceDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(ServiceIdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.shutdown(); err != nil {
			d.log.WithError(err).Warn("landmark service exited uncleanly")
		}
	})
}

func findServiceScript() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", serviceScript),
		filepath.Join("..", "scripts", serviceScript),
		filepath.Join(execDir, "scripts", serviceScript),
		filepath.Join(os.Getenv("HOME"), ".handdistance", "scripts", serviceScript),
	}
	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment
// next to the working directory, the executable, or the data directory.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".handdistance/venv/bin/python"),
	}
	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}

type serviceResponse struct {
	Hands []serviceHand `json:"hands"`
}

// serviceHand is one hand as reported by the landmark service. Points are
// indexed by Joint; a null entry means the joint was not located.
type serviceHand struct {
	Points []*servicePoint `json:"points"`
	Score  float64         `json:"score"`
}

type servicePoint struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Confidence *float64 `json:"confidence,omitempty"`
}

func (h serviceHand) observation(flipY bool) *Observation {
	obs := make(Observation, len(h.Points))

	for i := 0; i < NumJoints && i < len(h.Points); i++ {
		p := h.Points[i]
		if p == nil {
			continue
		}

		conf := h.Score
		if p.Confidence != nil {
			conf = *p.Confidence
		}

		y := p.Y
		if flipY {
			y = 1 - y
		}

		obs.Set(Landmark{
			Joint:      Joint(i),
			Position:   Point{X: p.X, Y: y},
			Confidence: conf,
		})
	}

	return &obs
}
