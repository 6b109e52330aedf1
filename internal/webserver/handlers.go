package webserver

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"sizes/internal/compress"
	"sizes/internal/config"
	"sizes/internal/metrics"
	"sizes/internal/prefs"
	"sizes/internal/request"
	"sizes/internal/sizes"
	"sizes/internal/wc"
)

//go:embed www/*
var wwwFiles embed.FS

const themesCacheControl = "public, s-maxage=31536000"

// Server holds the state shared by the HTTP handlers.
type Server struct {
	cfg     *config.Config
	counter *wc.Counter
	runner  *sizes.Runner
	prefs   *prefs.Store
	metrics *metrics.Metrics
	tmpl    *template.Template
}

// NewServer builds the handlers for cfg. m may be nil to skip metrics.
func NewServer(cfg *config.Config, m *metrics.Metrics) (*Server, error) {
	cat, err := prefs.LoadCatalogue()
	if err != nil {
		return nil, err
	}

	tmpl, err := template.ParseFS(wwwFiles, "www/index_template.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse index template: %w", err)
	}

	counter := wc.NewCounter(cfg.Reading.WordsPerMinute)

	return &Server{
		cfg:     cfg,
		counter: counter,
		runner:  sizes.NewRunner(sizes.WithCounter(counter)),
		prefs: prefs.NewStore(cat, prefs.Options{
			CookieName:   cfg.Prefs.CookieName,
			Secure:       cfg.Prefs.SecureCookie,
			DefaultTheme: cfg.Prefs.DefaultTheme,
		}),
		metrics: m,
		tmpl:    tmpl,
	}, nil
}

// Routes returns the full handler tree with middleware applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.HomeHandler)
	mux.HandleFunc("POST /api/wc", s.WCHandler)
	mux.HandleFunc("POST /api/sizes", s.SizesHandler)
	mux.HandleFunc("GET /api/prefs", s.PrefsHandler)
	mux.HandleFunc("GET /api/themes", s.ThemesHandler)
	mux.HandleFunc("POST /theme", s.ThemeHandler)
	mux.HandleFunc("GET /healthz", HealthHandler)
	mux.Handle("GET /static/", http.StripPrefix("/static/", StaticFileServer()))
	mux.HandleFunc("GET /favicon.svg", FaviconHandler("www/favicon.svg"))

	if s.metrics != nil && s.cfg.Metrics.Enabled {
		mux.Handle("GET "+s.cfg.Metrics.Path, s.metrics.Handler())
	}

	return RequestIDMiddleware(LoggingMiddleware(s.metrics, CompressionMiddleware(mux)))
}

type algorithmView struct {
	Name         string
	EnabledField string
	LevelField   string
	Min          int
	Max          int
}

// TemplateData holds data for template rendering
type TemplateData struct {
	Prefs      prefs.Prefs
	Themes     []string
	Random     string
	Algorithms []algorithmView
}

func (s *Server) HomeHandler(w http.ResponseWriter, r *http.Request) {
	cat := s.prefs.Catalogue()

	data := TemplateData{
		Prefs:  s.prefs.Get(r),
		Themes: cat.Themes,
		Random: cat.Random,
	}

	for _, alg := range compress.Algorithms {
		rng, _ := compress.Range(alg)
		data.Algorithms = append(data.Algorithms, algorithmView{
			Name:         string(alg),
			EnabledField: request.EnabledField(alg),
			LevelField:   request.LevelField(alg),
			Min:          rng.Min,
			Max:          rng.Max,
		})
	}

	var buf strings.Builder

	err := s.tmpl.Execute(&buf, data)
	if err != nil {
		slog.Error("Error executing template:", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(buf.String()))
}

func (s *Server) WCHandler(w http.ResponseWriter, r *http.Request) {
	log := slog.With("handler", "WCHandler", "request_id", RequestIDFromContext(r.Context()))

	raw, err := s.receiveRequest(w, r)
	defer cleanupForm(r)

	if err != nil {
		log.Warn("Failed to receive request", "error", err)
		WriteError(w, err)

		return
	}

	req, err := request.NormalizeWC(raw)
	if err != nil {
		s.rejected(log, "wc", err)
		WriteError(w, err)

		return
	}

	result, err := s.counter.Do(req.WC())
	if err != nil {
		log.Error("Word count failed", "error", err)
		WriteError(w, err)

		return
	}

	if s.metrics != nil {
		s.metrics.ObserveWC(result)
	}

	log.Info("Request processed", "files", len(req.Files), "text", req.HasText())
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) SizesHandler(w http.ResponseWriter, r *http.Request) {
	log := slog.With("handler", "SizesHandler", "request_id", RequestIDFromContext(r.Context()))

	raw, err := s.receiveRequest(w, r)
	defer cleanupForm(r)

	if err != nil {
		log.Warn("Failed to receive request", "error", err)
		WriteError(w, err)

		return
	}

	req, err := request.NormalizeSizes(raw)
	if err != nil {
		s.rejected(log, "sizes", err)
		WriteError(w, err)

		return
	}

	result, err := s.runner.Do(req)
	if err != nil {
		log.Error("Sizes computation failed", "error", err)
		WriteError(w, err)

		return
	}

	if s.metrics != nil {
		s.metrics.ObserveSizes(result)
	}

	log.Info("Request processed", "files", len(req.Files), "text", req.HasText())
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) rejected(log *slog.Logger, flow string, err error) {
	log.Info("Request rejected", "error", err)

	if s.metrics == nil {
		return
	}

	var verr *request.ValidationError

	s.metrics.ObserveValidationFailure(flow, errors.As(err, &verr) && verr.Fatal())
}

// receiveRequest reads a multipart, urlencoded or JSON body into a raw
// request and applies the upload limits.
func (s *Server) receiveRequest(w http.ResponseWriter, r *http.Request) (request.RawRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, uploadErrorf("invalid content type %q: %w", r.Header.Get("Content-Type"), err)
	}

	var raw request.RawRequest

	switch mediaType {
	case "multipart/form-data":
		err = r.ParseMultipartForm(s.cfg.Server.MaxMemoryBytes)
		if err != nil {
			return nil, uploadErrorf("form parsing error: %w", err)
		}

		raw = request.FromMultipart(r.MultipartForm)
	case "application/x-www-form-urlencoded":
		err = r.ParseForm()
		if err != nil {
			return nil, uploadErrorf("form parsing error: %w", err)
		}

		raw = request.FromForm(r.PostForm, nil)
	case "application/json":
		raw, err = request.FromJSON(r.Body)
		if err != nil {
			return nil, &UploadError{Err: err}
		}
	default:
		return nil, uploadErrorf("unsupported content type %q", mediaType)
	}

	err = ValidateUpload(raw, s.cfg.Limits.MaxFiles)
	if err != nil {
		return nil, err
	}

	return raw, nil
}

func cleanupForm(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

func (s *Server) PrefsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.prefs.Get(r))
}

type themesResponse struct {
	Default string   `json:"default"`
	Random  string   `json:"random"`
	Themes  []string `json:"themes"`
}

func (s *Server) ThemesHandler(w http.ResponseWriter, _ *http.Request) {
	cat := s.prefs.Catalogue()

	w.Header().Set("Cache-Control", themesCacheControl)
	writeJSON(w, http.StatusOK, themesResponse{
		Default: cat.Default,
		Random:  cat.Random,
		Themes:  cat.Themes,
	})
}

// ThemeHandler saves or clears the theme preference. Browser form posts are
// redirected back to the page; other clients get the new prefs as JSON.
func (s *Server) ThemeHandler(w http.ResponseWriter, r *http.Request) {
	log := slog.With("handler", "ThemeHandler", "request_id", RequestIDFromContext(r.Context()))

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxMemoryBytes)
	defer cleanupForm(r)

	var (
		p   prefs.Prefs
		err error
	)

	switch action := r.FormValue("_action"); action {
	case "save":
		theme := r.FormValue("theme")

		p, err = s.prefs.Save(w, theme)
		if err != nil {
			err = &request.ValidationError{
				FormErrors:  []string{},
				FieldErrors: map[string][]string{"theme": {fmt.Sprintf("unknown theme %q", theme)}},
			}
		}
	case "destroy":
		p = s.prefs.Destroy(w)
	default:
		err = &request.ValidationError{
			FormErrors:  []string{},
			FieldErrors: map[string][]string{"_action": {"must be save or destroy"}},
		}
	}

	if err != nil {
		log.Info("Theme change rejected", "error", err)
		WriteError(w, err)

		return
	}

	log.Info("Theme changed", "theme", p.RealTheme)

	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

func StaticFileServer() http.Handler {
	subFS, err := fs.Sub(wwwFiles, "www")
	if err != nil {
		slog.Error("Failed to create sub-filesystem", "error", err)
		return http.FileServer(http.FS(wwwFiles))
	}

	return http.FileServer(http.FS(subFS))
}

func FaviconHandler(filePath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := wwwFiles.ReadFile(filePath)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		// Set appropriate content type
		switch {
		case strings.HasSuffix(filePath, ".svg"):
			w.Header().Set("Content-Type", "image/svg+xml")
		case strings.HasSuffix(filePath, ".ico"):
			w.Header().Set("Content-Type", "image/x-icon")
		case strings.HasSuffix(filePath, ".png"):
			w.Header().Set("Content-Type", "image/png")
		}

		// Set cache headers for favicons
		w.Header().Set("Cache-Control", "public, max-age=31536000") // 1 year

		_, _ = w.Write(data)
	}
}
