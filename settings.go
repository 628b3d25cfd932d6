package wildwatch

import (
	"math"
	"sync"

	"github.com/pkg/errors"
)

// SourceKind selects where video frames are read from
type SourceKind string

const (
	// SourceWebcam reads from the default camera device
	SourceWebcam SourceKind = "webcam"
	// SourceVideo reads from the last uploaded video file
	SourceVideo SourceKind = "video"
)

// ParseSourceKind validates a source name received from the control panel
func ParseSourceKind(s string) (SourceKind, error) {
	switch SourceKind(s) {
	case SourceWebcam, SourceVideo:
		return SourceKind(s), nil
	default:
		return "", errors.Errorf("unknown video source %q", s)
	}
}

// Values is a point in time copy of the operator Settings
type Values struct {
	// Source is the active video source
	Source SourceKind `json:"source"`
	// Tracking is the "Enable Tracking?" toggle.  It is recorded and shown
	// on the control panel but inference does not use it.
	Tracking bool `json:"tracking"`
	// Confidence is the minimum detection score, 0.0 to 1.0
	Confidence float32 `json:"confidence"`
	// IoU is the NMS overlap threshold, 0.0 to 1.0
	IoU float32 `json:"iou"`
	// Presets are the names of the model preset checkboxes ticked
	Presets []string `json:"presets"`
	// Classes are the class indices detection is restricted to
	Classes []int `json:"classes"`
}

// Settings holds the control panel values shared between the HTTP handlers
// writing them and the inference loop reading them
type Settings struct {
	mu sync.RWMutex
	v  Values
}

// NewSettings returns Settings initialised to the given values
func NewSettings(v Values) *Settings {
	return &Settings{v: v.clone()}
}

// Snapshot returns a copy of the current values
func (s *Settings) Snapshot() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.clone()
}

// SetSource sets the active video source
func (s *Settings) SetSource(k SourceKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Source = k
}

// SetTracking sets the tracking toggle
func (s *Settings) SetTracking(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Tracking = on
}

// SetThresholds stores the confidence and IoU thresholds as given.  Values
// outside 0.0 to 1.0 are rejected and leave the settings untouched.
func (s *Settings) SetThresholds(conf, iou float32) error {

	if err := ValidateThresholds(conf, iou); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Confidence = conf
	s.v.IoU = iou

	return nil
}

// SetPresets records which model preset checkboxes are ticked
func (s *Settings) SetPresets(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Presets = append([]string(nil), names...)
}

// SetClasses stores the class selection.  Callers translate names through
// the loaded model Labels so indices are always valid.
func (s *Settings) SetClasses(indices []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Classes = append(make([]int, 0, len(indices)), indices...)
}

// ValidateThresholds checks confidence and IoU thresholds are within 0.0
// to 1.0
func ValidateThresholds(conf, iou float32) error {

	if err := checkUnit("confidence", conf); err != nil {
		return err
	}

	return checkUnit("iou", iou)
}

func (v Values) clone() Values {
	out := v
	out.Presets = append([]string(nil), v.Presets...)

	if v.Classes != nil {
		out.Classes = append(make([]int, 0, len(v.Classes)), v.Classes...)
	}

	return out
}

func checkUnit(name string, val float32) error {
	if math.IsNaN(float64(val)) || val < 0 || val > 1 {
		return errors.Errorf("%s threshold %v outside range 0.0 to 1.0", name, val)
	}

	return nil
}
