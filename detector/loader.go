package detector

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/rangerlab/wildwatch"
	"github.com/rangerlab/wildwatch/postprocess/result"
)

// Loader holds the currently loaded model.  A model is only loaded again
// when a different preset is requested, swapping waits for any inference in
// progress on the previous model to finish before closing it.
type Loader struct {
	// loadMu serialises Load calls
	loadMu  sync.Mutex
	mu      sync.RWMutex
	factory Factory
	current Model
	logger  *zap.SugaredLogger
}

// NewLoader returns a loader creating models with factory
func NewLoader(factory Factory, logger *zap.SugaredLogger) *Loader {
	return &Loader{
		factory: factory,
		logger:  logger,
	}
}

// Load makes the preset the current model.  It reports if a new model was
// loaded, false means the preset was already loaded.
func (l *Loader) Load(p wildwatch.Preset) (bool, error) {
	l.loadMu.Lock()
	defer l.loadMu.Unlock()

	l.mu.RLock()
	loaded := l.current != nil && l.current.Name() == p.Name
	l.mu.RUnlock()

	if loaded {
		return false, nil
	}

	l.logger.Infow("loading model", "preset", p.Name, "weights", p.Weights)

	// load outside the lock so inference on the previous model continues
	// while the new one is read from disk
	m, err := l.factory(p)

	if err != nil {
		return false, errors.Wrapf(err, "error loading model %s", p.Name)
	}

	l.mu.Lock()
	prev := l.current
	l.current = m
	l.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			l.logger.Warnw("error closing model", "preset", prev.Name(), "error", err)
		}
	}

	l.logger.Infow("model loaded", "preset", p.Name, "classes", len(m.ClassNames()))

	return true, nil
}

// Loaded returns the preset name and class names of the current model
func (l *Loader) Loaded() (string, wildwatch.Labels, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.current == nil {
		return "", nil, false
	}

	return l.current.Name(), l.current.ClassNames(), true
}

// Detect runs inference with the current model, returning the results with
// the class names of the model that produced them
func (l *Loader) Detect(img gocv.Mat, p Params) ([]result.DetectResult, wildwatch.Labels, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.current == nil {
		return nil, nil, ErrNoModel
	}

	res, err := l.current.Detect(img, p)

	if err != nil {
		return nil, nil, err
	}

	return res, l.current.ClassNames(), nil
}

// Close frees the current model
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return nil
	}

	err := l.current.Close()
	l.current = nil

	return err
}
