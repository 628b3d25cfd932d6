// Package result defines the object detection results shared by the model
// backends, rendering and the alert trigger.
package result

// BoxRect are the pixel dimensions of the bounding box of a detected object
type BoxRect struct {
	Left   int
	Right  int
	Top    int
	Bottom int
}

// Width of the box
func (b BoxRect) Width() int {
	return b.Right - b.Left
}

// Height of the box
func (b BoxRect) Height() int {
	return b.Bottom - b.Top
}

// DetectResult defines the attributes of a single object detected
type DetectResult struct {
	// Class is the line number in the labels file the Model was trained on
	// defining the Class of the detected object
	Class int
	// Box are the bounding box dimensions of the object location
	Box BoxRect
	// Probability is the confidence score of the object detected
	Probability float32
	// ID is a unique ID assigned to the detection result
	ID int64
}

// ClassSet returns the set of label names detected.  Results whose class
// has no label are ignored.
func ClassSet(results []DetectResult, labels []string) map[string]struct{} {

	set := make(map[string]struct{}, len(results))

	for _, r := range results {
		if r.Class < 0 || r.Class >= len(labels) {
			continue
		}

		set[labels[r.Class]] = struct{}{}
	}

	return set
}
