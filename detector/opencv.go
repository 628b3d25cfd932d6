package detector

import (
	"image"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"github.com/rangerlab/wildwatch"
	"github.com/rangerlab/wildwatch/postprocess"
	"github.com/rangerlab/wildwatch/postprocess/result"
	"github.com/rangerlab/wildwatch/preprocess"
)

// netModel runs a YOLO ONNX model through the OpenCV DNN module
type netModel struct {
	name      string
	labels    wildwatch.Labels
	inputSize int
	net       gocv.Net
	resizer   *preprocess.Resizer
	decoder   *postprocess.YOLOv8
	// input holds the letterboxed frame
	input gocv.Mat
	mu    sync.Mutex
}

// NewOpenCVFactory returns a Factory loading models with the OpenCV DNN
// module.  inputSize is the square input tensor size the models were
// exported with.
func NewOpenCVFactory(inputSize int) Factory {
	return func(p wildwatch.Preset) (Model, error) {

		labels, err := wildwatch.LoadLabels(p.Labels)

		if err != nil {
			return nil, err
		}

		net := gocv.ReadNetFromONNX(p.Weights)

		if net.Empty() {
			net.Close()
			return nil, errors.Errorf("could not read model weights %s", p.Weights)
		}

		return &netModel{
			name:      p.Name,
			labels:    labels,
			inputSize: inputSize,
			net:       net,
			resizer:   preprocess.NewResizer(inputSize, inputSize),
			decoder:   postprocess.NewYOLOv8(postprocess.YOLOv8DefaultParams(len(labels))),
			input:     gocv.NewMat(),
		}, nil
	}
}

func (m *netModel) Name() string {
	return m.name
}

func (m *netModel) ClassNames() wildwatch.Labels {
	return m.labels
}

// Detect letterboxes the frame, runs the network and decodes its output
func (m *netModel) Detect(img gocv.Mat, p Params) ([]result.DetectResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	box := m.resizer.LetterBoxResize(img, &m.input)

	// scale to 0..1 and swap BGR to RGB, the frame is already the tensor
	// size so no crop is needed
	blob := gocv.BlobFromImage(m.input, 1.0/255.0,
		image.Pt(m.inputSize, m.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	m.net.SetInput(blob, "")

	out := m.net.Forward("")
	defer out.Close()

	if dims := out.Size(); len(dims) != 3 || dims[1] != 4+len(m.labels) {
		return nil, errors.Errorf("unexpected output shape %v for %d classes", dims, len(m.labels))
	}

	data, err := out.DataPtrFloat32()

	if err != nil {
		return nil, errors.Wrap(err, "error reading model output")
	}

	m.decoder.Params = decoderParams(p, len(m.labels))

	return m.decoder.DetectObjects(data, box)
}

func (m *netModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return multierr.Combine(m.input.Close(), m.resizer.Close(), m.net.Close())
}
