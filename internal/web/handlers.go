package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/svlabel/internal/debug"
	"github.com/cjeanneret/svlabel/internal/logic/geolocate"
	"github.com/cjeanneret/svlabel/internal/logic/geometry"
	"github.com/cjeanneret/svlabel/internal/logic/label"
	"github.com/cjeanneret/svlabel/internal/logic/prediction"
	"github.com/cjeanneret/svlabel/internal/storage"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// ViewerConfig holds the viewer defaults served on GET /config.
type ViewerConfig struct {
	CanvasWidthPx     int     `json:"canvas_width_px"`
	CanvasHeightPx    int     `json:"canvas_height_px"`
	LabelIconRadiusPx float64 `json:"label_icon_radius_px"`
}

// Options are the dependencies of the web layer.
// Store and Predictor may be nil.
type Options struct {
	Broadcaster *StatusBroadcaster
	Labels      *label.Container
	Store       storage.LabelRepository
	Predictor   *prediction.Predictor
	Viewer      ViewerConfig
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Labels      *label.Container
	Store       storage.LabelRepository
	Predictor   *prediction.Predictor
	Viewer      ViewerConfig
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(opts Options, staticFS fs.FS) *Handlers {
	if opts.Broadcaster == nil {
		opts.Broadcaster = NewStatusBroadcaster()
	}
	if opts.Labels == nil {
		opts.Labels = label.NewContainer()
	}
	return &Handlers{
		Broadcaster: opts.Broadcaster,
		Labels:      opts.Labels,
		Store:       opts.Store,
		Predictor:   opts.Predictor,
		Viewer:      opts.Viewer,
		staticFS:    staticFS,
	}
}

// configResponse is the body of GET /config.
type configResponse struct {
	ViewerConfig
	FieldOfView map[int]float64 `json:"fov"`
	ViewerZoom  map[int]float64 `json:"viewer_zoom"`
	Prediction  bool            `json:"prediction"`
}

// HandleConfig returns the viewer defaults as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	resp := configResponse{
		ViewerConfig: h.Viewer,
		FieldOfView:  make(map[int]float64),
		ViewerZoom:   make(map[int]float64),
		Prediction:   h.Predictor != nil,
	}
	for z := geometry.MinZoom; z <= geometry.MaxZoom; z++ {
		resp.FieldOfView[z] = geometry.FieldOfView(float64(z))
		vz, _ := geometry.ViewerZoom(z)
		resp.ViewerZoom[z] = vz
	}
	writeJSON(w, http.StatusOK, resp)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// projectRequest is the body of POST /project. A zero canvas size uses the viewer default.
type projectRequest struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	CanvasWidth  float64 `json:"canvas_width"`
	CanvasHeight float64 `json:"canvas_height"`
	Heading      float64 `json:"heading"`
	Pitch        float64 `json:"pitch"`
	Zoom         int     `json:"zoom"`
}

type projectResponse struct {
	Heading float64 `json:"heading"`
	Pitch   float64 `json:"pitch"`
	FOV     float64 `json:"fov"`
}

// HandleProject handles POST /project: canvas pixel to heading/pitch.
func (h *Handlers) HandleProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	canvas := h.canvas(req.CanvasWidth, req.CanvasHeight)
	pose := geometry.CameraPose{Heading: req.Heading, Pitch: req.Pitch, Zoom: req.Zoom}

	res, err := geometry.Project(geometry.CanvasPoint{X: req.X, Y: req.Y}, canvas, pose)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	debug.Projection(req.X, req.Y, res.Heading, res.Pitch)
	writeJSON(w, http.StatusOK, projectResponse{
		Heading: res.Heading,
		Pitch:   res.Pitch,
		FOV:     geometry.FieldOfView(float64(req.Zoom)),
	})
}

// labelRequest is the body of POST /labels. A zero canvas size uses the viewer default.
type labelRequest struct {
	TemporaryID  string  `json:"temporary_id"`
	LabelType    string  `json:"label_type"`
	PanoID       string  `json:"pano_id"`
	Severity     *int    `json:"severity"`
	Description  string  `json:"description"`
	TagIDs       []int   `json:"tag_ids"`
	CanvasX      float64 `json:"canvas_x"`
	CanvasY      float64 `json:"canvas_y"`
	CanvasWidth  float64 `json:"canvas_width"`
	CanvasHeight float64 `json:"canvas_height"`
	Heading      float64 `json:"heading"`
	Pitch        float64 `json:"pitch"`
	Zoom         int     `json:"zoom"`
	PanoLat      float64 `json:"pano_lat"`
	PanoLng      float64 `json:"pano_lng"`
	SvImageY     float64 `json:"sv_image_y"`
	WayType      string  `json:"way_type"`
}

type labelResponse struct {
	ID            string                    `json:"id"`
	TemporaryID   string                    `json:"temporary_id,omitempty"`
	Lat           float64                   `json:"lat"`
	Lng           float64                   `json:"lng"`
	Method        geolocate.Method          `json:"method"`
	PovIfCentered geometry.ProjectionResult `json:"pov_if_centered"`
	Prediction    *prediction.Decision      `json:"prediction,omitempty"`
}

// HandleCreateLabel handles POST /labels.
func (h *Handlers) HandleCreateLabel(w http.ResponseWriter, r *http.Request) {
	var req labelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	typ, err := label.ParseType(req.LabelType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.PanoID == "" {
		http.Error(w, "pano_id is required", http.StatusBadRequest)
		return
	}
	var tempID uuid.UUID
	if req.TemporaryID != "" {
		if tempID, err = uuid.Parse(req.TemporaryID); err != nil {
			http.Error(w, "invalid temporary_id", http.StatusBadRequest)
			return
		}
	}

	l, err := label.New(label.Params{
		TemporaryID: tempID,
		Type:        typ,
		PanoID:      req.PanoID,
		Severity:    req.Severity,
		Description: req.Description,
		TagIDs:      req.TagIDs,
		Snapshot: geolocate.Snapshot{
			CanvasPoint: geometry.CanvasPoint{X: req.CanvasX, Y: req.CanvasY},
			Canvas:      h.canvas(req.CanvasWidth, req.CanvasHeight),
			Pose:        geometry.CameraPose{Heading: req.Heading, Pitch: req.Pitch, Zoom: req.Zoom},
			PanoramaLat: req.PanoLat,
			PanoramaLng: req.PanoLng,
			SvImageY:    req.SvImageY,
		},
	})
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	est, err := l.LatLng()
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	if h.Store != nil {
		if err := h.Store.CreateLabel(r.Context(), l); err != nil {
			debug.Error(err)
			http.Error(w, err.Error(), statusFor(err))
			return
		}
	}
	h.Labels.Add(l)
	h.Labels.UpdateVisibility(l.PanoID())

	resp := labelResponse{
		ID:            l.ID().String(),
		Lat:           est.Lat,
		Lng:           est.Lng,
		Method:        est.Method,
		PovIfCentered: l.PovIfCentered(),
	}
	if tempID != uuid.Nil {
		resp.TemporaryID = tempID.String()
	}
	if h.Predictor != nil && prediction.Supported(typ) {
		in, err := prediction.InputFromLabel(l)
		if err == nil {
			in.WayType = req.WayType
			var d prediction.Decision
			if d, err = h.Predictor.Evaluate(r.Context(), in); err == nil {
				resp.Prediction = &d
			}
		}
		if err != nil {
			debug.Error(fmt.Errorf("prediction for label %s: %w", l.ID(), err))
		}
	}

	debug.Info("Label saved: %s %s on %s", l.ID(), l.Type(), l.PanoID())
	h.Broadcaster.BroadcastLabel(LabelEvent{
		Action:    "saved",
		ID:        l.ID().String(),
		LabelType: string(l.Type()),
		PanoID:    l.PanoID(),
		Lat:       est.Lat,
		Lng:       est.Lng,
	})
	writeJSON(w, http.StatusCreated, resp)
}

// HandleListLabels handles GET /labels: non-deleted labels as a GeoJSON
// FeatureCollection, optionally filtered with ?pano=ID.
func (h *Handlers) HandleListLabels(w http.ResponseWriter, r *http.Request) {
	var labels []*label.Label
	if pano := r.URL.Query().Get("pano"); pano != "" {
		labels = h.Labels.ForPano(pano)
	} else {
		labels = h.Labels.All()
	}
	fc, err := label.ToFeatureCollection(labels)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data)
}

// HandleLabelLatLng handles GET /labels/{id}/latlng.
func (h *Handlers) HandleLabelLatLng(w http.ResponseWriter, r *http.Request) {
	l, ok := h.lookup(w, r)
	if !ok {
		return
	}
	est, err := l.LatLng()
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, est)
}

// HandleDeleteLabel handles DELETE /labels/{id}.
func (h *Handlers) HandleDeleteLabel(w http.ResponseWriter, r *http.Request) {
	l, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if l.IsDeleted() {
		http.Error(w, "label not found", http.StatusNotFound)
		return
	}
	if h.Store != nil {
		if err := h.Store.DeleteLabel(r.Context(), l.ID()); err != nil && !errors.Is(err, storage.ErrNotFound) {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
	}
	h.Labels.Remove(l.ID())
	debug.Info("Label deleted: %s", l.ID())
	h.Broadcaster.BroadcastLabel(LabelEvent{Action: "deleted", ID: l.ID().String()})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) lookup(w http.ResponseWriter, r *http.Request) (*label.Label, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid label id", http.StatusBadRequest)
		return nil, false
	}
	l, ok := h.Labels.Get(id)
	if !ok {
		http.Error(w, "label not found", http.StatusNotFound)
		return nil, false
	}
	return l, true
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()
	debug.Trace("SSE client connected (%d total)", h.Broadcaster.Clients())

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			debug.Trace("SSE client disconnected")
			return
		}
	}
}

func (h *Handlers) canvas(width, height float64) geometry.Canvas {
	if width == 0 {
		width = float64(h.Viewer.CanvasWidthPx)
	}
	if height == 0 {
		height = float64(h.Viewer.CanvasHeightPx)
	}
	return geometry.Canvas{Width: width, Height: height}
}

// decodeBody decodes a size-limited JSON body, writing 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, geometry.ErrUnsupportedZoom), errors.Is(err, geolocate.ErrInvalidSnapshot):
		return http.StatusBadRequest
	case errors.Is(err, geometry.ErrDegenerateProjection):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrReadOnly):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		debug.Error(fmt.Errorf("encode response: %w", err))
	}
}
