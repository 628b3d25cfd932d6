package postprocess

import (
	"math"
)

// clamp restricts val to be within the range min and max
func clamp(val, min, max float32) float32 {

	if val < min {
		return min
	}

	if val > max {
		return max
	}

	return val
}

// quickSortIndiceInverse is a quick sort algorithm that sorts the objProbs
// vector into descending order and synchronously updates the indices vector
// to track the reordering of elements
func quickSortIndiceInverse(input []float32, left int, right int, indices []int) int {

	var key float32
	var keyIndex int

	low := left
	high := right

	if left < right {
		keyIndex = indices[left]
		key = input[left]

		for low < high {
			for low < high && input[high] <= key {
				high--
			}

			input[low] = input[high]
			indices[low] = indices[high]

			for low < high && input[low] >= key {
				low++
			}

			input[high] = input[low]
			indices[high] = indices[low]
		}

		input[low] = key
		indices[low] = keyIndex

		quickSortIndiceInverse(input, left, low-1, indices)
		quickSortIndiceInverse(input, low+1, right, indices)
	}

	return low
}

// nms implements Non-Maximum Suppression for a single class.  order holds
// indices into boxes sorted by descending score, suppressed entries are set
// to -1.  boxes are stored as x, y, width, height quads.
func nms(validCount int, boxes []float32, classIDs, order []int,
	filterID int, threshold float32) {

	for i := 0; i < validCount; i++ {

		n := order[i]

		if n == -1 || classIDs[n] != filterID {
			continue
		}

		for j := i + 1; j < validCount; j++ {

			m := order[j]

			if m == -1 || classIDs[m] != filterID {
				continue
			}

			iou := calculateOverlap(
				boxes[n*4+0], boxes[n*4+1],
				boxes[n*4+0]+boxes[n*4+2], boxes[n*4+1]+boxes[n*4+3],
				boxes[m*4+0], boxes[m*4+1],
				boxes[m*4+0]+boxes[m*4+2], boxes[m*4+1]+boxes[m*4+3],
			)

			if iou > threshold {
				order[j] = -1
			}
		}
	}
}

// calculateOverlap works out the Intersection over Union (IoU) value of two
// boxes given as corner coordinates
func calculateOverlap(xmin0, ymin0, xmax0, ymax0, xmin1, ymin1,
	xmax1, ymax1 float32) float32 {

	w := math.Max(0.0, math.Min(float64(xmax0), float64(xmax1))-math.Max(float64(xmin0), float64(xmin1)))
	h := math.Max(0.0, math.Min(float64(ymax0), float64(ymax1))-math.Max(float64(ymin0), float64(ymin1)))
	intersection := float32(w * h)

	area0 := (xmax0 - xmin0) * (ymax0 - ymin0)
	area1 := (xmax1 - xmin1) * (ymax1 - ymin1)

	union := area0 + area1 - intersection

	if union <= 0 {
		return 0.0
	}

	return intersection / union
}
