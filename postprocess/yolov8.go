// Package postprocess decodes raw YOLO model output tensors into object
// detection results.
package postprocess

import (
	"github.com/pkg/errors"

	"github.com/rangerlab/wildwatch/postprocess/result"
	"github.com/rangerlab/wildwatch/preprocess"
)

// YOLOv8 defines the struct for YOLOv8 (and YOLO11) model inference post
// processing of the ONNX export output layout [1, 4+classes, anchors]
type YOLOv8 struct {
	// Params are the Model configuration parameters
	Params YOLOv8Params
	// idGen provides the next number for each detection result ID
	idGen *result.IDGenerator
}

// YOLOv8Params defines the struct containing the YOLOv8 parameters to use
// for post processing operations
type YOLOv8Params struct {
	// BoxThreshold is the minimum probability score required for a bounding box
	// region to be considered for processing
	BoxThreshold float32
	// NMSThreshold is the Non-Maximum Suppression threshold used for defining
	// the maximum allowed Intersection Over Union (IoU) between two
	// bounding boxes for both to be kept
	NMSThreshold float32
	// ObjectClassNum is the number of different object classes the Model has
	// been trained with
	ObjectClassNum int
	// MaxObjectNumber is the maximum number of objects detected that can be
	// returned
	MaxObjectNumber int
	// Classes restricts results to these class indices.  A nil slice keeps
	// every class, an empty slice keeps none.
	Classes []int
}

// YOLOv8DefaultParams returns an instance of YOLOv8Params for a Model trained
// with classNum classes featuring:
// - Box Threshold: 0.25
// - NMS Threshold: 0.45
// - Maximum Object Number: 300
func YOLOv8DefaultParams(classNum int) YOLOv8Params {
	return YOLOv8Params{
		BoxThreshold:    0.25,
		NMSThreshold:    0.45,
		ObjectClassNum:  classNum,
		MaxObjectNumber: 300,
	}
}

// NewYOLOv8 returns an instance of the YOLOv8 post processor
func NewYOLOv8(p YOLOv8Params) *YOLOv8 {
	return &YOLOv8{
		Params: p,
		idGen:  result.NewIDGenerator(),
	}
}

// candidates holds the boxes passing the score threshold, boxes are stored
// as x, y, width, height quads in tensor coordinates
type candidates struct {
	boxes   []float32
	probs   []float32
	classID []int
}

// DetectObjects decodes the output tensor of one image.  box is the
// letterbox applied to the source frame so results are returned in source
// frame pixel coordinates.
func (y *YOLOv8) DetectObjects(output []float32, box preprocess.Letterbox) ([]result.DetectResult, error) {

	rows := 4 + y.Params.ObjectClassNum

	if y.Params.ObjectClassNum <= 0 || len(output) == 0 || len(output)%rows != 0 {
		return nil, errors.Errorf("output tensor of %d values does not match %d classes",
			len(output), y.Params.ObjectClassNum)
	}

	anchors := len(output) / rows

	allowed := y.allowedClasses()
	data := &candidates{}

	for i := 0; i < anchors; i++ {

		maxClassID := -1
		maxScore := float32(0)

		for c := 0; c < y.Params.ObjectClassNum; c++ {
			score := output[(4+c)*anchors+i]

			if score > maxScore {
				maxScore = score
				maxClassID = c
			}
		}

		if maxClassID < 0 || maxScore <= y.Params.BoxThreshold {
			continue
		}

		if allowed != nil && !allowed[maxClassID] {
			continue
		}

		cx := output[i]
		cy := output[anchors+i]
		w := output[2*anchors+i]
		h := output[3*anchors+i]

		data.boxes = append(data.boxes, cx-w/2, cy-h/2, w, h)
		data.probs = append(data.probs, maxScore)
		data.classID = append(data.classID, maxClassID)
	}

	validCount := len(data.probs)

	if validCount == 0 {
		return []result.DetectResult{}, nil
	}

	// indexArray keeps the original candidate index of each sorted score
	indexArray := make([]int, validCount)

	for i := range indexArray {
		indexArray[i] = i
	}

	// sort a copy so data.probs stays indexed by candidate
	sorted := append([]float32(nil), data.probs...)
	quickSortIndiceInverse(sorted, 0, validCount-1, indexArray)

	classSet := make(map[int]bool)

	for _, id := range data.classID {
		classSet[id] = true
	}

	for c := range classSet {
		nms(validCount, data.boxes, data.classID, indexArray, c, y.Params.NMSThreshold)
	}

	group := make([]result.DetectResult, 0)

	srcW := float32(box.SrcWidth)
	srcH := float32(box.SrcHeight)

	for i := 0; i < validCount; i++ {
		if indexArray[i] == -1 || len(group) >= y.Params.MaxObjectNumber {
			continue
		}

		n := indexArray[i]

		x1, y1 := box.ToSource(data.boxes[n*4+0], data.boxes[n*4+1])
		x2, y2 := box.ToSource(data.boxes[n*4+0]+data.boxes[n*4+2],
			data.boxes[n*4+1]+data.boxes[n*4+3])

		group = append(group, result.DetectResult{
			Box: result.BoxRect{
				Left:   int(clamp(x1, 0, srcW)),
				Top:    int(clamp(y1, 0, srcH)),
				Right:  int(clamp(x2, 0, srcW)),
				Bottom: int(clamp(y2, 0, srcH)),
			},
			Probability: data.probs[n],
			Class:       data.classID[n],
			ID:          y.idGen.GetNext(),
		})
	}

	return group, nil
}

// allowedClasses returns the class filter as a lookup, nil when every class
// is allowed
func (y *YOLOv8) allowedClasses() map[int]bool {

	if y.Params.Classes == nil {
		return nil
	}

	allowed := make(map[int]bool, len(y.Params.Classes))

	for _, c := range y.Params.Classes {
		allowed[c] = true
	}

	return allowed
}
