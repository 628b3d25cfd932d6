// Package web serves the operator control panel: the settings form, video
// upload, start and stop of the inference loop, the two live MJPEG panes
// and a websocket feed of notices.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/hybridgroup/mjpeg"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"goji.io"
	"goji.io/pat"

	"github.com/rangerlab/wildwatch"
	"github.com/rangerlab/wildwatch/source"
	"github.com/rangerlab/wildwatch/stream"
)

//go:embed templates/*.html
var templateFS embed.FS

// maxUploadSize caps the request body of a video upload
const maxUploadSize = 2 << 30

// Loader loads model presets
type Loader interface {
	Load(p wildwatch.Preset) (bool, error)
	Loaded() (string, wildwatch.Labels, bool)
}

// Runner controls the inference loop
type Runner interface {
	Start(ctx context.Context) error
	Stop() bool
	State() stream.State
	Stats() stream.Stats
}

// Options holds what the control panel drives
type Options struct {
	Config    *wildwatch.Config
	Settings  *wildwatch.Settings
	Loader    Loader
	Runner    Runner
	Uploads   *source.UploadStore
	Original  *mjpeg.Stream
	Annotated *mjpeg.Stream
	Hub       *Hub
}

// Server is the control panel HTTP handler
type Server struct {
	opts Options
	// ctx is the lifetime of the inference loops started from the panel
	ctx    context.Context
	tmpl   *template.Template
	logger *zap.SugaredLogger
}

// NewServer returns the control panel.  Inference loops started from it run
// until stopped or until ctx is cancelled.
func NewServer(ctx context.Context, opts Options, logger *zap.SugaredLogger) (*Server, error) {

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"contains": func(list []string, s string) bool {
			for _, v := range list {
				if v == s {
					return true
				}
			}
			return false
		},
	}).ParseFS(templateFS, "templates/*.html")

	if err != nil {
		return nil, errors.Wrap(err, "error parsing templates")
	}

	return &Server{
		opts:   opts,
		ctx:    ctx,
		tmpl:   tmpl.Lookup("index.html"),
		logger: logger,
	}, nil
}

// Handler returns the routes of the control panel
func (s *Server) Handler() http.Handler {

	api := goji.SubMux()
	api.HandleFunc(pat.Get("/state"), s.handleState)
	api.HandleFunc(pat.Post("/settings"), s.handleSettings)
	api.HandleFunc(pat.Post("/upload"), s.handleUpload)
	api.HandleFunc(pat.Post("/start"), s.handleStart)
	api.HandleFunc(pat.Post("/stop"), s.handleStop)

	mux := goji.NewMux()
	mux.Use(s.logRequests)
	mux.HandleFunc(pat.Get("/"), s.handleIndex)
	mux.Handle(pat.New("/api/*"), cors.AllowAll().Handler(api))
	mux.Handle(pat.Get("/stream/original"), s.opts.Original)
	mux.Handle(pat.Get("/stream/annotated"), s.opts.Annotated)
	mux.Handle(pat.Get("/ws"), s.opts.Hub)

	return mux
}

// logRequests logs every request at debug level, the MJPEG and websocket
// handlers are logged when they return
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debugw("request", "method", r.Method, "path", r.URL.Path,
			"duration", time.Since(start))
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := s.tmpl.Execute(w, s.state()); err != nil {
		s.logger.Warnw("error rendering control panel", "error", err)
	}
}

// report logs the notice and pushes it to the connected panels
func (s *Server) report(level wildwatch.Level, msg string) {

	switch level {
	case wildwatch.LevelError:
		s.logger.Errorw(msg)
	case wildwatch.LevelWarning:
		s.logger.Warnw(msg)
	default:
		s.logger.Infow(msg)
	}

	s.opts.Hub.Report(wildwatch.NewNotice(level, msg))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
