package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hampallop/spray-wall/wall"
)

// server holds what the stateless handlers need. Layouts never live here:
// every request carries its own holds value.
type server struct {
	config    *wall.Config
	image     *wall.WallImage
	status    *wall.StatusTracker
	publisher *wall.Publisher
}

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(config *wall.Config, image *wall.WallImage, status *wall.StatusTracker, publisher *wall.Publisher) http.Handler {
	if status == nil {
		status = wall.NewStatusTracker()
	}
	s := &server{config: config, image: image, status: status, publisher: publisher}

	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handlePage)
	r.Get("/wall-image", s.handleWallImage)
	r.Get("/overlay.svg", s.handleOverlay)
	r.Get("/"+wall.ExportFilename, s.handleExport)
	r.Post("/api/events", s.handleEvent)
	r.Get("/api/holds", s.handleHolds)
	r.Get("/health", s.handleHealth)

	return r
}

// requestLogger logs every request the way the rest of the service logs
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Printf("[HTTP] %s %s from %s -> %d (%v)", r.Method, r.URL.Path, r.RemoteAddr, ww.Status(), time.Since(start).Round(time.Millisecond))
	})
}

// size is the natural size markers are laid out in
func (s *server) size() wall.Size {
	if s.image != nil {
		return s.image.Size
	}
	return s.config.Wall.Size
}

// navigate hydrates a fresh annotator from a request's holds value. A
// value that fails to decode leaves the annotator empty.
func (s *server) navigate(param string, nav wall.Navigator) *wall.Annotator {
	a := wall.NewAnnotator(nav,
		wall.WithNaturalSize(s.size()),
		wall.WithMarkers(s.config.Markers),
	)
	_ = a.Navigate(param)
	return a
}

func viewportFromQuery(r *http.Request) wall.Viewport {
	vw, _ := strconv.Atoi(r.URL.Query().Get("vw"))
	mobile, _ := strconv.ParseBool(r.URL.Query().Get("mobile"))
	return wall.Viewport{Width: vw, Mobile: mobile}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type pageData struct {
	Title      string
	Param      string
	Size       wall.Size
	Breakpoint int
	Export     string
}

func (s *server) handlePage(w http.ResponseWriter, r *http.Request) {
	a := s.navigate(wall.RawParam(r.URL.RawQuery), nil)
	data := pageData{
		Title:      s.config.Wall.Title,
		Param:      wall.Encode(a.Store().Holds()),
		Size:       s.size(),
		Breakpoint: s.config.Markers.MobileBreakpoint,
		Export:     "/" + wall.ExportFilename,
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		log.Printf("[HTTP] Error rendering page: %v", err)
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *server) handleWallImage(w http.ResponseWriter, r *http.Request) {
	if s.image == nil {
		http.Error(w, wall.ErrNoWallImage.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", s.image.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(s.image.Data)
}

func (s *server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	a := s.navigate(wall.RawParam(r.URL.RawQuery), nil)
	overlay := wall.NewOverlay(s.size(), s.config.Markers)

	var buf bytes.Buffer
	if err := overlay.RenderSVG(&buf, a.Store().Holds(), r.URL.Query().Get("selected"), viewportFromQuery(r)); err != nil {
		log.Printf("[HTTP] Error rendering overlay: %v", err)
		http.Error(w, "Error rendering overlay", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(buf.Bytes())
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	a := s.navigate(wall.RawParam(r.URL.RawQuery), nil)

	var buf bytes.Buffer
	err := wall.ExportPNG(&buf, s.image, a.Store().Holds(), s.config.Markers, viewportFromQuery(r))
	if errors.Is(err, wall.ErrNoWallImage) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("[HTTP] Error exporting problem: %v", err)
		http.Error(w, "Error exporting problem", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="`+wall.ExportFilename+`"`)
	_, _ = w.Write(buf.Bytes())
}

// eventRequest is one device event together with the client state it
// applies to. Rect is measured by the client for this event.
type eventRequest struct {
	Holds    string           `json:"holds"`
	Selected string           `json:"selected"`
	Adding   bool             `json:"adding"`
	Event    wall.DeviceEvent `json:"event"`
	Rect     wall.SurfaceRect `json:"rect"`
	Viewport wall.Viewport    `json:"viewport"`
}

type eventResponse struct {
	Result       wall.Result         `json:"result"`
	Holds        wall.HoldCollection `json:"holds"`
	Param        string              `json:"param"`
	Query        string              `json:"query,omitempty"`
	Selected     string              `json:"selected"`
	SelectedHold *wall.Hold          `json:"selectedHold,omitempty"`
	Adding       bool                `json:"adding"`
}

func (s *server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var query string
	a := s.navigate(req.Holds, wall.NavigatorFunc(func(q string) { query = q }))
	a.Restore(req.Selected, req.Adding)

	res, err := a.Dispatch(req.Event, req.Rect, req.Viewport)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	store := a.Store()
	holds := store.Holds()
	if res.Persisted && s.publisher.Enabled() {
		s.publisher.Persist(holds)
	}

	resp := eventResponse{
		Result:   res,
		Holds:    holds,
		Param:    wall.Encode(holds),
		Query:    query,
		Selected: store.SelectedID(),
		Adding:   store.AddMode(),
	}
	if h, ok := store.Selected(); ok {
		resp.SelectedHold = &h
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleHolds(w http.ResponseWriter, r *http.Request) {
	holds, err := wall.Decode(wall.RawParam(r.URL.RawQuery))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"holds":  holds,
		"query":  wall.ShareQuery(holds),
		"counts": holds.Count(),
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := struct {
		Status    string             `json:"status"`
		Timestamp time.Time          `json:"timestamp"`
		HasImage  bool               `json:"hasImage"`
		Size      wall.Size          `json:"size"`
		Board     wall.BoardSnapshot `json:"board"`
	}{
		Status:    "ok",
		Timestamp: time.Now(),
		HasImage:  s.image != nil,
		Size:      s.size(),
		Board:     s.status.Snapshot(),
	}
	writeJSON(w, http.StatusOK, status)
}

var pageTemplate = template.Must(template.New("page").Parse(pageHTML))
