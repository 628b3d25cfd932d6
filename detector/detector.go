// Package detector resolves the model presets picked on the control panel,
// loads the selected model and runs inference on frames.
package detector

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/rangerlab/wildwatch"
	"github.com/rangerlab/wildwatch/postprocess"
	"github.com/rangerlab/wildwatch/postprocess/result"
)

var (
	// ErrMultiplePresets is returned when more than one preset is selected,
	// no model is loaded in that case
	ErrMultiplePresets = errors.New("select only one model at a time")
	// ErrUnknownPreset is returned for a preset name not in the config
	ErrUnknownPreset = errors.New("unknown model preset")
	// ErrNoPreset is returned when nothing is selected and no preset is
	// marked as the default
	ErrNoPreset = errors.New("no model preset selected")
	// ErrNoModel is returned when inference is requested before a model
	// has been loaded
	ErrNoModel = errors.New("no model loaded")
)

// Params are the per frame inference settings
type Params struct {
	// Confidence is the minimum detection score
	Confidence float32
	// IoU is the NMS overlap threshold
	IoU float32
	// Classes restricts detection to these class indices.  nil detects all
	// classes, an empty slice detects nothing.
	Classes []int
}

// Model is a loaded object detection model
type Model interface {
	// Name of the preset the model was loaded from
	Name() string
	// ClassNames the model was trained on, ordered by class index
	ClassNames() wildwatch.Labels
	// Detect runs inference on a BGR frame
	Detect(img gocv.Mat, p Params) ([]result.DetectResult, error)
	// Close frees the model
	Close() error
}

// Factory loads the model of a preset
type Factory func(p wildwatch.Preset) (Model, error)

// ResolvePreset picks the preset to load from the ticked preset names.
// Ticking more than one is an error.  Ticking none falls back to the
// default preset.
func ResolvePreset(presets []wildwatch.Preset, selected []string) (wildwatch.Preset, error) {

	if len(selected) > 1 {
		return wildwatch.Preset{}, ErrMultiplePresets
	}

	for _, p := range presets {
		if len(selected) == 1 && p.Name == selected[0] {
			return p, nil
		}

		if len(selected) == 0 && p.Default {
			return p, nil
		}
	}

	if len(selected) == 0 {
		return wildwatch.Preset{}, ErrNoPreset
	}

	return wildwatch.Preset{}, errors.Wrapf(ErrUnknownPreset, "%q", selected[0])
}

// decoderParams converts the inference settings into post processing
// parameters for a model with classNum classes
func decoderParams(p Params, classNum int) postprocess.YOLOv8Params {

	dp := postprocess.YOLOv8DefaultParams(classNum)
	dp.BoxThreshold = p.Confidence
	dp.NMSThreshold = p.IoU
	dp.Classes = p.Classes

	return dp
}

// NewFactory returns the Factory for the configured backend
func NewFactory(cfg wildwatch.ModelConfig) (Factory, error) {

	switch cfg.Backend {
	case wildwatch.BackendOpenCV:
		return NewOpenCVFactory(cfg.InputSize), nil

	case wildwatch.BackendONNXRuntime:
		return NewONNXRuntimeFactory(cfg.ONNXRuntimeLib, cfg.InputSize), nil

	default:
		return nil, errors.Errorf("unknown model backend %q", cfg.Backend)
	}
}
