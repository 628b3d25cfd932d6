package wildwatch

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Labels are the class names a Model was trained on, ordered by class index
type Labels []string

// LoadLabels reads the labels used to train the Model from the given text file.
// It should contain one label per line, blank lines are skipped.
func LoadLabels(file string) (Labels, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, errors.Wrap(err, "error opening labels file")
	}

	defer f.Close()

	labels, err := ReadLabels(f)

	if err != nil {
		return nil, errors.Wrapf(err, "error reading labels file %s", file)
	}

	return labels, nil
}

// ReadLabels reads one label per line from r
func ReadLabels(r io.Reader) (Labels, error) {

	scanner := bufio.NewScanner(r)

	var labels Labels

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		labels = append(labels, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(labels) == 0 {
		return nil, errors.New("no labels found")
	}

	return labels, nil
}

// Index returns the class index of the given label or -1 if the label is
// not known
func (l Labels) Index(name string) int {
	for i, s := range l {
		if s == name {
			return i
		}
	}

	return -1
}

// Name returns the label for the class index, or an empty string for an
// index outside the label list
func (l Labels) Name(class int) string {
	if class < 0 || class >= len(l) {
		return ""
	}

	return l[class]
}

// Indices translates label names into class indices.  An unknown name
// returns an error so a selection can never refer outside the label list.
func (l Labels) Indices(names []string) ([]int, error) {

	out := make([]int, 0, len(names))

	for _, name := range names {
		idx := l.Index(name)

		if idx < 0 {
			return nil, errors.Errorf("unknown class %q", name)
		}

		out = append(out, idx)
	}

	return out, nil
}

// Names translates class indices into label names, indices outside the label
// list are skipped
func (l Labels) Names(indices []int) []string {

	out := make([]string, 0, len(indices))

	for _, idx := range indices {
		if name := l.Name(idx); name != "" {
			out = append(out, name)
		}
	}

	return out
}

// HeadIndices returns the class indices of up to the first n labels
func (l Labels) HeadIndices(n int) []int {
	if n > len(l) {
		n = len(l)
	}

	if n < 0 {
		n = 0
	}

	out := make([]int, n)
	for i := range out {
		out[i] = i
	}

	return out
}
