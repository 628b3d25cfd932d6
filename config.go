package wildwatch

import (
	"bytes"
	"encoding/json"
	"io"
	"time"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
)

const (
	// DefaultListen is the address the control panel is served on
	DefaultListen = "localhost:8501"
	// DefaultUploadPath is the fixed file every uploaded video is written to
	DefaultUploadPath = "wildlife_video.mp4"
	// DefaultAlertImagePath is the fixed file every alert snapshot is written to
	DefaultAlertImagePath = "detected_frame.jpg"
	// DefaultTelegramAPI is the Telegram Bot API base URL
	DefaultTelegramAPI = "https://api.telegram.org"
	// DefaultAlertMessage is the text sent with every alert
	DefaultAlertMessage = "🚨 Urgent Alert! Hunter detected near wildlife!"
	// DefaultInputSize is the square input tensor size of the YOLO models
	DefaultInputSize = 640

	// BackendOpenCV runs models through the OpenCV DNN module
	BackendOpenCV = "opencv"
	// BackendONNXRuntime runs models through ONNX Runtime
	BackendONNXRuntime = "onnxruntime"
)

// Duration is a time.Duration read from a JSON string such as "10s"
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(b []byte) error {

	var s string

	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Wrap(err, "duration must be a string")
	}

	v, err := time.ParseDuration(s)

	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", s)
	}

	*d = Duration(v)

	return nil
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Preset is a named pretrained model the operator can pick on the
// control panel
type Preset struct {
	// Name identifies the preset, eg: "wild11"
	Name string `json:"name"`
	// Title is the checkbox caption
	Title string `json:"title"`
	// Weights is the ONNX model file
	Weights string `json:"weights"`
	// Labels is the text file of class names, one per line
	Labels string `json:"labels"`
	// Default marks the preset used when no checkbox is ticked
	Default bool `json:"default"`
}

// CaptureConfig configures the video sources
type CaptureConfig struct {
	WebcamIndex int    `json:"webcam_index"`
	UploadPath  string `json:"upload_path"`
}

// ModelConfig configures model loading
type ModelConfig struct {
	Backend        string   `json:"backend"`
	InputSize      int      `json:"input_size"`
	ONNXRuntimeLib string   `json:"onnxruntime_lib"`
	Presets        []Preset `json:"presets"`
}

// AlertConfig configures the alert channel.  Token and ChatID are expected
// to be supplied through environment variables, eg: "${TELEGRAM_BOT_TOKEN}".
type AlertConfig struct {
	APIURL    string   `json:"api_url"`
	Token     string   `json:"token"`
	ChatID    string   `json:"chat_id"`
	Message   string   `json:"message"`
	Predator  string   `json:"predator"`
	Protected string   `json:"protected"`
	ImagePath string   `json:"image_path"`
	Timeout   Duration `json:"timeout"`
}

// DefaultsConfig holds the initial control panel values
type DefaultsConfig struct {
	Source     SourceKind `json:"source"`
	Tracking   bool       `json:"tracking"`
	Confidence float32    `json:"confidence"`
	IoU        float32    `json:"iou"`
	// ClassCount is how many of the first model classes are selected after
	// a model is loaded
	ClassCount int `json:"class_count"`
}

// Config is the wildwatch configuration file
type Config struct {
	Listen   string         `json:"listen"`
	Capture  CaptureConfig  `json:"capture"`
	Model    ModelConfig    `json:"model"`
	Alert    AlertConfig    `json:"alert"`
	Defaults DefaultsConfig `json:"defaults"`
}

// DefaultPresets are the two wildlife models shipped with the application
func DefaultPresets() []Preset {
	return []Preset{
		{Name: "wild11", Title: "🐅 WILD 11", Weights: "wild11.onnx", Labels: "wild11.txt", Default: true},
		{Name: "wildv8", Title: "🐆 WILD 8", Weights: "wild8.onnx", Labels: "wild8.txt"},
	}
}

// DefaultConfig returns a Config with every field set to its default
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// ReadConfig reads the JSON configuration file, substituting environment
// variable references before decoding
func ReadConfig(path string) (*Config, error) {

	buf, err := envsubst.ReadFile(path)

	if err != nil {
		return nil, errors.Wrapf(err, "error reading config %s", path)
	}

	cfg, err := DecodeConfig(bytes.NewReader(buf))

	if err != nil {
		return nil, errors.Wrapf(err, "error in config %s", path)
	}

	return cfg, nil
}

// DecodeConfig decodes a JSON configuration, applies defaults and validates it
func DecodeConfig(r io.Reader) (*Config, error) {

	cfg := &Config{}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "error decoding config")
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {

	if c.Listen == "" {
		c.Listen = DefaultListen
	}

	if c.Capture.UploadPath == "" {
		c.Capture.UploadPath = DefaultUploadPath
	}

	if c.Model.Backend == "" {
		c.Model.Backend = BackendOpenCV
	}

	if c.Model.InputSize == 0 {
		c.Model.InputSize = DefaultInputSize
	}

	if len(c.Model.Presets) == 0 {
		c.Model.Presets = DefaultPresets()
	}

	if c.Alert.APIURL == "" {
		c.Alert.APIURL = DefaultTelegramAPI
	}

	if c.Alert.Message == "" {
		c.Alert.Message = DefaultAlertMessage
	}

	if c.Alert.Predator == "" {
		c.Alert.Predator = "hunter"
	}

	if c.Alert.Protected == "" {
		c.Alert.Protected = "animal"
	}

	if c.Alert.ImagePath == "" {
		c.Alert.ImagePath = DefaultAlertImagePath
	}

	if c.Alert.Timeout == 0 {
		c.Alert.Timeout = Duration(10 * time.Second)
	}

	if c.Defaults.Source == "" {
		c.Defaults.Source = SourceWebcam
	}

	// zero thresholds are legal slider values so only fill them when both
	// are unset
	if c.Defaults.Confidence == 0 && c.Defaults.IoU == 0 {
		c.Defaults.Confidence = 0.25
		c.Defaults.IoU = 0.45
	}

	if c.Defaults.ClassCount == 0 {
		c.Defaults.ClassCount = 3
	}
}

// Validate checks the configuration for values the application cannot run
// with
func (c *Config) Validate() error {

	switch c.Model.Backend {
	case BackendOpenCV, BackendONNXRuntime:
	default:
		return errors.Errorf("unknown model backend %q", c.Model.Backend)
	}

	if c.Model.InputSize < 32 || c.Model.InputSize%32 != 0 {
		return errors.Errorf("model input size %d must be a positive multiple of 32", c.Model.InputSize)
	}

	seen := make(map[string]bool)
	defaults := 0

	for _, p := range c.Model.Presets {
		if p.Name == "" || p.Weights == "" || p.Labels == "" {
			return errors.Errorf("preset %q needs a name, weights and labels file", p.Name)
		}

		if seen[p.Name] {
			return errors.Errorf("duplicate preset %q", p.Name)
		}

		seen[p.Name] = true

		if p.Default {
			defaults++
		}
	}

	if defaults > 1 {
		return errors.New("only one preset can be the default")
	}

	if _, err := ParseSourceKind(string(c.Defaults.Source)); err != nil {
		return err
	}

	if err := checkUnit("confidence", c.Defaults.Confidence); err != nil {
		return err
	}

	if err := checkUnit("iou", c.Defaults.IoU); err != nil {
		return err
	}

	if c.Defaults.ClassCount < 0 {
		return errors.Errorf("class count %d must not be negative", c.Defaults.ClassCount)
	}

	if c.Alert.Predator == c.Alert.Protected {
		return errors.New("alert predator and protected labels must differ")
	}

	return nil
}

// InitialValues returns the Settings values the control panel starts with
func (c *Config) InitialValues() Values {

	var presets []string

	for _, p := range c.Model.Presets {
		if p.Default {
			presets = append(presets, p.Name)
		}
	}

	return Values{
		Source:     c.Defaults.Source,
		Tracking:   c.Defaults.Tracking,
		Confidence: c.Defaults.Confidence,
		IoU:        c.Defaults.IoU,
		Presets:    presets,
		Classes:    []int{},
	}
}
