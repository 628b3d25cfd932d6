package source

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ErrUnsupportedType is returned when an uploaded file does not have one of
// the accepted video extensions
var ErrUnsupportedType = errors.New("unsupported video file type")

// UploadExtensions are the accepted video file extensions
var UploadExtensions = []string{".mp4", ".mov", ".avi", ".mkv"}

// UploadStore keeps the single uploaded video file at a fixed path.  Each
// upload replaces the previous file and the original filename is discarded.
type UploadStore struct {
	path string
	mu   sync.Mutex
}

// NewUploadStore returns a store writing to path
func NewUploadStore(path string) *UploadStore {
	return &UploadStore{path: path}
}

// Path returns the fixed file path uploads are written to
func (u *UploadStore) Path() string {
	return u.path
}

// Exists reports if a video has been uploaded
func (u *UploadStore) Exists() bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	info, err := os.Stat(u.path)

	return err == nil && info.Mode().IsRegular()
}

// Save writes the uploaded content to the fixed path.  The filename is only
// used to check the extension.
func (u *UploadStore) Save(filename string, r io.Reader) (int64, error) {

	if !AllowedUpload(filename) {
		return 0, errors.Wrapf(ErrUnsupportedType, "%q, use one of %s",
			filename, strings.Join(UploadExtensions, ", "))
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	dir := filepath.Dir(u.path)

	// write beside the destination so the rename stays on one filesystem
	tmp, err := os.CreateTemp(dir, ".upload-*")

	if err != nil {
		return 0, errors.Wrap(err, "error creating upload file")
	}

	n, err := io.Copy(tmp, r)

	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, errors.Wrap(err, "error writing upload")
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, errors.Wrap(err, "error writing upload")
	}

	if err := os.Rename(tmp.Name(), u.path); err != nil {
		os.Remove(tmp.Name())
		return 0, errors.Wrap(err, "error replacing upload")
	}

	return n, nil
}

// AllowedUpload reports if the filename has an accepted video extension
func AllowedUpload(filename string) bool {

	ext := strings.ToLower(filepath.Ext(filename))

	for _, allowed := range UploadExtensions {
		if ext == allowed {
			return true
		}
	}

	return false
}
