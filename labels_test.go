package wildwatch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestReadLabels(t *testing.T) {

	labels, err := ReadLabels(strings.NewReader("hunter\n\n  animal \nvehicle\n"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, []string(labels), test.ShouldResemble, []string{"hunter", "animal", "vehicle"})

	_, err = ReadLabels(strings.NewReader("\n \n"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLoadLabels(t *testing.T) {

	file := filepath.Join(t.TempDir(), "labels.txt")
	err := os.WriteFile(file, []byte("hunter\nanimal\n"), 0o644)
	test.That(t, err, test.ShouldBeNil)

	labels, err := LoadLabels(file)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, labels, test.ShouldHaveLength, 2)

	_, err = LoadLabels(filepath.Join(t.TempDir(), "missing.txt"))
	test.That(t, err.Error(), test.ShouldContainSubstring, "error opening labels file")
}

func TestLabelLookups(t *testing.T) {

	labels := Labels{"hunter", "animal", "vehicle", "ranger"}

	test.That(t, labels.Index("animal"), test.ShouldEqual, 1)
	test.That(t, labels.Index("dog"), test.ShouldEqual, -1)
	test.That(t, labels.Name(3), test.ShouldEqual, "ranger")
	test.That(t, labels.Name(4), test.ShouldEqual, "")
	test.That(t, labels.Name(-1), test.ShouldEqual, "")

	idx, err := labels.Indices([]string{"hunter", "animal"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, idx, test.ShouldResemble, []int{0, 1})

	_, err = labels.Indices([]string{"hunter", "dog"})
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown class "dog"`)

	test.That(t, labels.Names([]int{2, 7, 0}), test.ShouldResemble, []string{"vehicle", "hunter"})
	test.That(t, labels.HeadIndices(3), test.ShouldResemble, []int{0, 1, 2})
	test.That(t, labels.HeadIndices(10), test.ShouldResemble, []int{0, 1, 2, 3})
	test.That(t, Labels(nil).HeadIndices(3), test.ShouldResemble, []int{})
	test.That(t, labels.HeadIndices(-1), test.ShouldResemble, []int{})
}
