package web

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/rangerlab/wildwatch"
	"github.com/rangerlab/wildwatch/detector"
	"github.com/rangerlab/wildwatch/source"
	"github.com/rangerlab/wildwatch/stream"
)

// presetView is a preset checkbox on the control panel
type presetView struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Default  bool   `json:"default"`
	Selected bool   `json:"selected"`
}

// stateResponse is everything the control panel shows
type stateResponse struct {
	Settings wildwatch.Values `json:"settings"`
	Presets  []presetView     `json:"presets"`
	// Model is the preset name of the loaded model
	Model string `json:"model"`
	// Classes are all class names of the loaded model
	Classes []string `json:"classes"`
	// SelectedClasses are the names of Settings.Classes
	SelectedClasses []string               `json:"selected_classes"`
	State           string                 `json:"state"`
	Stats           stream.Stats           `json:"stats"`
	UploadReady     bool                   `json:"upload_ready"`
	LastWarning     string                 `json:"last_warning"`
	Notices         []wildwatch.Notice     `json:"notices"`
	Sources         []wildwatch.SourceKind `json:"sources"`
}

func (s *Server) state() stateResponse {

	v := s.opts.Settings.Snapshot()
	name, labels, _ := s.opts.Loader.Loaded()

	presets := make([]presetView, 0, len(s.opts.Config.Model.Presets))

	for _, p := range s.opts.Config.Model.Presets {
		pv := presetView{Name: p.Name, Title: p.Title, Default: p.Default}

		for _, sel := range v.Presets {
			if sel == p.Name {
				pv.Selected = true
			}
		}

		presets = append(presets, pv)
	}

	classes := []string(labels)
	if classes == nil {
		classes = []string{}
	}

	return stateResponse{
		Settings:        v,
		Presets:         presets,
		Model:           name,
		Classes:         classes,
		SelectedClasses: labels.Names(v.Classes),
		State:           s.opts.Runner.State().String(),
		Stats:           s.opts.Runner.Stats(),
		UploadReady:     s.opts.Uploads.Exists(),
		LastWarning:     s.opts.Hub.LastWarning(),
		Notices:         s.opts.Hub.Recent(),
		Sources:         []wildwatch.SourceKind{wildwatch.SourceWebcam, wildwatch.SourceVideo},
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

// settingsRequest carries the control panel fields that changed, absent
// fields keep their current value
type settingsRequest struct {
	Source     *string   `json:"source"`
	Tracking   *bool     `json:"tracking"`
	Confidence *float32  `json:"confidence"`
	IoU        *float32  `json:"iou"`
	Presets    *[]string `json:"presets"`
	// Classes are class names of the loaded model
	Classes *[]string `json:"classes"`
}

// settingsChange is a validated settingsRequest ready to be applied
type settingsChange struct {
	req    settingsRequest
	source wildwatch.SourceKind
	conf   float32
	iou    float32
	// preset is set when a model has to be loaded
	preset *wildwatch.Preset
	// multiple is set when more than one preset was ticked
	multiple bool
	classes  []int
}

// handleSettings writes the submitted values into the settings.  Every
// field is checked before any is applied so a rejected request changes
// nothing.  A change of model preset loads the model and resets the class
// selection.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {

	var req settingsRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid settings"))
		return
	}

	change, status, err := s.validateSettings(req)

	if err != nil {
		writeError(w, status, err)
		return
	}

	if change.preset != nil {
		if _, err := s.opts.Loader.Load(*change.preset); err != nil {
			s.report(wildwatch.LevelError, err.Error())
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	s.applySettings(change)

	writeJSON(w, http.StatusOK, s.state())
}

// validateSettings checks every submitted field against the current
// settings and the loaded model without changing either
func (s *Server) validateSettings(req settingsRequest) (settingsChange, int, error) {

	change := settingsChange{req: req}
	cur := s.opts.Settings.Snapshot()

	if req.Source != nil {
		kind, err := wildwatch.ParseSourceKind(*req.Source)

		if err != nil {
			return change, http.StatusBadRequest, err
		}

		change.source = kind
	}

	change.conf, change.iou = cur.Confidence, cur.IoU

	if req.Confidence != nil {
		change.conf = *req.Confidence
	}

	if req.IoU != nil {
		change.iou = *req.IoU
	}

	if err := wildwatch.ValidateThresholds(change.conf, change.iou); err != nil {
		return change, http.StatusBadRequest, err
	}

	loadedName, labels, loaded := s.opts.Loader.Loaded()

	if req.Presets != nil {
		p, err := detector.ResolvePreset(s.opts.Config.Model.Presets, *req.Presets)

		switch {
		case errors.Is(err, detector.ErrMultiplePresets):
			change.multiple = true

		case errors.Is(err, detector.ErrUnknownPreset), errors.Is(err, detector.ErrNoPreset):
			return change, http.StatusBadRequest, err

		case err != nil:
			return change, http.StatusInternalServerError, err

		case !loaded || p.Name != loadedName:
			change.preset = &p
		}
	}

	// a new model invalidates class names picked from the previous one
	if req.Classes != nil && change.preset == nil {
		if !loaded {
			return change, http.StatusPreconditionFailed, detector.ErrNoModel
		}

		idx, err := labels.Indices(*req.Classes)

		if err != nil {
			return change, http.StatusBadRequest, err
		}

		change.classes = idx
	}

	return change, http.StatusOK, nil
}

// applySettings writes a validated change into the settings
func (s *Server) applySettings(change settingsChange) {

	req := change.req

	if req.Source != nil {
		s.opts.Settings.SetSource(change.source)
	}

	if req.Confidence != nil || req.IoU != nil {
		// already validated
		s.opts.Settings.SetThresholds(change.conf, change.iou)
	}

	if req.Tracking != nil {
		s.opts.Settings.SetTracking(*req.Tracking)
	}

	if req.Presets != nil {
		s.opts.Settings.SetPresets(*req.Presets)
	}

	if change.multiple {
		s.report(wildwatch.LevelWarning, "Please select only one model at a time.")
	}

	if change.preset != nil {
		_, labels, _ := s.opts.Loader.Loaded()
		s.opts.Settings.SetClasses(labels.HeadIndices(s.opts.Config.Defaults.ClassCount))
		s.report(wildwatch.LevelInfo, "Model loaded successfully!")
	} else if change.classes != nil {
		s.opts.Settings.SetClasses(change.classes)
	}
}

type uploadResponse struct {
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
}

// handleUpload stores the multipart "video" field at the fixed upload path
// and switches the source to it
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	mr, err := r.MultipartReader()

	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "expected a multipart upload"))
		return
	}

	for {
		part, err := mr.NextPart()

		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("missing video field"))
			return
		}

		if part.FormName() != "video" {
			part.Close()
			continue
		}

		n, err := s.opts.Uploads.Save(part.FileName(), part)
		part.Close()

		if errors.Is(err, source.ErrUnsupportedType) {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		if err != nil {
			s.report(wildwatch.LevelError, err.Error())
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		s.opts.Settings.SetSource(wildwatch.SourceVideo)
		s.logger.Infow("video uploaded", "file", part.FileName(), "bytes", n)

		writeJSON(w, http.StatusOK, uploadResponse{Path: s.opts.Uploads.Path(), Bytes: n})
		return
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {

	err := s.opts.Runner.Start(s.ctx)

	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, s.state())

	case errors.Is(err, stream.ErrRunning):
		writeError(w, http.StatusConflict, err)

	case errors.Is(err, detector.ErrNoModel):
		s.report(wildwatch.LevelWarning, "Load a model before starting inference.")
		writeError(w, http.StatusPreconditionFailed, err)

	case errors.Is(err, source.ErrNoUpload):
		writeError(w, http.StatusPreconditionFailed, err)

	default:
		writeError(w, http.StatusBadGateway, err)
	}
}

type stopResponse struct {
	Stopping bool   `json:"stopping"`
	State    string `json:"state"`
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	stopping := s.opts.Runner.Stop()
	writeJSON(w, http.StatusAccepted, stopResponse{
		Stopping: stopping,
		State:    s.opts.Runner.State().String(),
	})
}
