package detector

import (
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"github.com/rangerlab/wildwatch"
	"github.com/rangerlab/wildwatch/postprocess"
	"github.com/rangerlab/wildwatch/postprocess/result"
	"github.com/rangerlab/wildwatch/preprocess"
)

var (
	ortOnce sync.Once
	ortErr  error
)

// initRuntime initialises the ONNX Runtime environment once per process,
// models are loaded and closed against the same environment
func initRuntime(libPath string) error {
	ortOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}

		if err := ort.InitializeEnvironment(); err != nil {
			ortErr = errors.Wrap(err, "failed to initialize ONNX Runtime environment")
		}
	})

	return ortErr
}

// ortModel runs a YOLO ONNX model through ONNX Runtime
type ortModel struct {
	name      string
	labels    wildwatch.Labels
	inputSize int
	session   *ort.AdvancedSession
	input     *ort.Tensor[float32]
	output    *ort.Tensor[float32]
	decoder   *postprocess.YOLOv8
	mu        sync.Mutex
}

// NewONNXRuntimeFactory returns a Factory loading models with ONNX Runtime.
// libPath is the onnxruntime shared library, empty to use the platform
// default.  inputSize is the square input tensor size the models were
// exported with.
func NewONNXRuntimeFactory(libPath string, inputSize int) Factory {
	return func(p wildwatch.Preset) (Model, error) {

		if err := initRuntime(libPath); err != nil {
			return nil, err
		}

		labels, err := wildwatch.LoadLabels(p.Labels)

		if err != nil {
			return nil, err
		}

		inputs, outputs, err := ort.GetInputOutputInfo(p.Weights)

		if err != nil {
			return nil, errors.Wrapf(err, "could not read model weights %s", p.Weights)
		}

		if len(inputs) != 1 || len(outputs) != 1 {
			return nil, errors.Errorf("expected one input and one output tensor, got %d and %d",
				len(inputs), len(outputs))
		}

		size := int64(inputSize)
		inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))

		if err != nil {
			return nil, errors.Wrap(err, "failed to create input tensor")
		}

		outputShape := ort.NewShape(1, int64(4+len(labels)), anchorCount(outputs[0].Dimensions, inputSize))
		outputTensor, err := ort.NewEmptyTensor[float32](outputShape)

		if err != nil {
			inputTensor.Destroy()
			return nil, errors.Wrap(err, "failed to create output tensor")
		}

		session, err := ort.NewAdvancedSession(p.Weights,
			[]string{inputs[0].Name}, []string{outputs[0].Name},
			[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
			nil)

		if err != nil {
			inputTensor.Destroy()
			outputTensor.Destroy()
			return nil, errors.Wrap(err, "failed to create ONNX Runtime session")
		}

		return &ortModel{
			name:      p.Name,
			labels:    labels,
			inputSize: inputSize,
			session:   session,
			input:     inputTensor,
			output:    outputTensor,
			decoder:   postprocess.NewYOLOv8(postprocess.YOLOv8DefaultParams(len(labels))),
		}, nil
	}
}

// anchorCount returns the number of candidate boxes in the model output.  A
// dynamic dimension falls back to the count of the three YOLO strides.
func anchorCount(dims ort.Shape, inputSize int) int64 {

	if len(dims) == 3 && dims[2] > 0 {
		return dims[2]
	}

	var n int64

	for _, stride := range []int{8, 16, 32} {
		g := int64(inputSize / stride)
		n += g * g
	}

	return n
}

func (m *ortModel) Name() string {
	return m.name
}

func (m *ortModel) ClassNames() wildwatch.Labels {
	return m.labels
}

// Detect letterboxes the frame into the input tensor, runs the session and
// decodes its output
func (m *ortModel) Detect(img gocv.Mat, p Params) ([]result.DetectResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// ToImage converts the BGR frame into an RGB image
	src, err := img.ToImage()

	if err != nil {
		return nil, errors.Wrap(err, "error converting frame")
	}

	boxed, box := preprocess.LetterBoxImage(src, m.inputSize, m.inputSize)
	preprocess.CHWFloat32(boxed, m.input.GetData())

	if err := m.session.Run(); err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}

	m.decoder.Params = decoderParams(p, len(m.labels))

	return m.decoder.DetectObjects(m.output.GetData(), box)
}

func (m *ortModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return multierr.Combine(m.session.Destroy(), m.input.Destroy(), m.output.Destroy())
}
