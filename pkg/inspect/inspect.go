// Package inspect serves a read-only HTTP view of extension points: their
// registered names, wrappers, attributes and load diagnostics, plus
// Prometheus metrics and a health check derived from load errors.
package inspect

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/extpoint/pkg/extension"
	"github.com/platinummonkey/extpoint/pkg/httputil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// PointSummary describes a declared extension point.
type PointSummary struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	DefaultName string `json:"default_name,omitempty"`
	Policy      string `json:"policy"`
	Loaded      bool   `json:"loaded"`
}

// RegistryView is the loaded content of one extension point.
type RegistryView struct {
	PointSummary
	Names       []string                     `json:"names"`
	Wrappers    []string                     `json:"wrappers"`
	Adaptive    bool                         `json:"adaptive"`
	Attributes  map[string]map[string]string `json:"attributes"`
	Diagnostics []Diagnostic                 `json:"diagnostics"`
	Error       string                       `json:"error,omitempty"`
}

// Diagnostic is a rejected descriptor line.
type Diagnostic struct {
	Resource string `json:"resource"`
	Line     int    `json:"line"`
	Raw      string `json:"raw"`
	Error    string `json:"error"`
}

// Handlers provides the introspection endpoints for one manager.
type Handlers struct {
	manager  *extension.Manager
	gatherer prometheus.Gatherer
}

// NewHandlers creates handlers. A nil gatherer disables /metrics.
func NewHandlers(manager *extension.Manager, gatherer prometheus.Gatherer) *Handlers {
	return &Handlers{manager: manager, gatherer: gatherer}
}

// RegisterRoutes registers the introspection routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/points", h.listPoints).Methods("GET")
	router.HandleFunc("/points/{id:.+}", h.getPoint).Methods("GET")
	router.HandleFunc("/healthz", h.health).Methods("GET")
	if h.gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
}

// Handler returns the routed, traced and logged handler.
func (h *Handlers) Handler(logger logrus.FieldLogger) http.Handler {
	router := mux.NewRouter()
	router.Use(httputil.RecoveryMiddleware(logger), httputil.LoggingMiddleware(logger))
	h.RegisterRoutes(router)
	return otelhttp.NewHandler(router, "extpoint.inspect")
}

// listPoints handles GET /points
func (h *Handlers) listPoints(w http.ResponseWriter, r *http.Request) {
	load, err := httputil.ParseQueryBool(r, "load", false)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}

	loaded := make(map[string]bool)
	for _, reg := range h.manager.Loaded() {
		loaded[reg.Point().ID()] = true
	}

	points := extension.Points()
	out := make([]PointSummary, 0, len(points))
	for _, p := range points {
		if load {
			if _, err := h.manager.Get(p.Type()); err == nil {
				loaded[p.ID()] = true
			}
		}
		out = append(out, summarize(p, loaded[p.ID()]))
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"points": out,
		"count":  len(out),
	})
}

// getPoint handles GET /points/{id}
func (h *Handlers) getPoint(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}

	var point *extension.Point
	for _, p := range extension.Points() {
		if p.ID() == id {
			point = p
			break
		}
	}
	if point == nil {
		httputil.WriteNotFoundError(w, "extension point not found: "+id)
		return
	}

	reg, err := h.manager.Get(point.Type())
	if err != nil {
		httputil.WriteError(w, http.StatusUnprocessableEntity, err)
		return
	}
	httputil.WriteSuccess(w, view(reg))
}

// health handles GET /healthz. Loaded points with fatal load errors make
// the check fail.
func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	failing := make(map[string]string)
	for _, reg := range h.manager.Loaded() {
		if err := reg.Err(); err != nil {
			failing[reg.Point().ID()] = err.Error()
		}
	}

	status := http.StatusOK
	body := map[string]interface{}{"status": "healthy"}
	if len(failing) > 0 {
		status = http.StatusServiceUnavailable
		body = map[string]interface{}{"status": "unhealthy", "failing": failing}
	}
	httputil.WriteJSON(w, status, body)
}

func summarize(p *extension.Point, loaded bool) PointSummary {
	return PointSummary{
		ID:          p.ID(),
		Type:        p.Type().String(),
		DefaultName: p.DefaultName(),
		Policy:      p.Policy().String(),
		Loaded:      loaded,
	}
}

func view(reg *extension.Registry) RegistryView {
	v := RegistryView{
		PointSummary: summarize(reg.Point(), true),
		Names:        reg.Names(),
		Wrappers:     reg.Wrappers(),
		Adaptive:     reg.HasAdaptive(),
		Attributes:   make(map[string]map[string]string),
		Diagnostics:  []Diagnostic{},
	}
	v.Policy = reg.Policy().String()

	for name, attrs := range reg.AllAttributes() {
		v.Attributes[name] = attrs.Map()
	}
	for _, d := range reg.Diagnostics() {
		v.Diagnostics = append(v.Diagnostics, Diagnostic{
			Resource: d.Resource,
			Line:     d.Line,
			Raw:      d.Raw,
			Error:    d.Err.Error(),
		})
	}
	if err := reg.Err(); err != nil {
		v.Error = err.Error()
	}
	return v
}

// Server runs the introspection handlers on their own listener.
type Server struct {
	srv    *http.Server
	logger logrus.FieldLogger
}

// NewServer creates a server listening on addr.
func NewServer(addr string, h *Handlers, logger logrus.FieldLogger, readTimeout, writeTimeout time.Duration) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      h.Handler(logger),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		logger: logger,
	}
}

// ListenAndServe blocks until the server stops. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Infof("Starting extension introspection server on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down extension introspection server")
	return s.srv.Shutdown(ctx)
}
