// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package server exposes the collectors over HTTP.
//
// Routes:
//
//	GET /devices
//	GET /devices/{name}/capabilities
//	GET /devices/{name}/vrf[?vrf=NAME][&details=true]
//	GET /devices/{name}/mpls
//	GET /devices/{name}/bgp[?state=true]
//	GET /devices/{name}/isis
//	GET /devices/{name}/interfaces[?name=IFACE]
//	GET /devices/{name}/system
//	GET /devices/{name}/logs[?keywords=K][&minutes=N][&all=true]
//	GET /devices/{name}/profile
//	GET /devices/{name}/neighbors
//	GET /devices/{name}/path?target=NAME
//	GET /topology[?network=CIDR]
//	GET /metrics
//
// Topology routes link every inventory device.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/netascode/go-gnmi-buddy/capabilities"
	"github.com/netascode/go-gnmi-buddy/collector"
	"github.com/netascode/go-gnmi-buddy/inventory"
	"github.com/netascode/go-gnmi-buddy/normalize"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

const shutdownTimeout = 10 * time.Second

// Server serves collector results for the devices of an inventory.
type Server struct {
	collector *collector.Collector
	inventory *inventory.Inventory
	router    *mux.Router
	reg       *prometheus.Registry

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry serves reg on /metrics instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.reg = reg
		}
	}
}

// WithTimeouts sets the http.Server read and write timeouts.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
	}
}

// New returns a Server. The Go and process collectors are registered on
// the metrics registry.
func New(c *collector.Collector, inv *inventory.Inventory, opts ...Option) *Server {
	s := &Server{
		collector:    c,
		inventory:    inv,
		router:       mux.NewRouter(),
		readTimeout:  time.Minute,
		writeTimeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reg == nil {
		s.reg = prometheus.NewRegistry()
	}
	s.reg.MustRegister(collectors.NewGoCollector())
	s.reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(requestID)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router.HandleFunc("/devices", s.listDevices).Methods(http.MethodGet)

	dev := s.router.PathPrefix("/devices/{name}").Subrouter()
	dev.HandleFunc("/capabilities", s.device(func(ctx context.Context, d inventory.Device, _ *http.Request) collector.Result {
		return s.collector.Capabilities(ctx, d)
	})).Methods(http.MethodGet)
	dev.HandleFunc("/vrf", s.device(func(ctx context.Context, d inventory.Device, r *http.Request) collector.Result {
		details, _ := strconv.ParseBool(r.URL.Query().Get("details"))
		return s.collector.VRF(ctx, d, r.URL.Query().Get("vrf"), details)
	})).Methods(http.MethodGet)
	dev.HandleFunc("/mpls", s.device(func(ctx context.Context, d inventory.Device, _ *http.Request) collector.Result {
		return s.collector.MPLS(ctx, d)
	})).Methods(http.MethodGet)
	dev.HandleFunc("/bgp", s.device(func(ctx context.Context, d inventory.Device, r *http.Request) collector.Result {
		if state, _ := strconv.ParseBool(r.URL.Query().Get("state")); state {
			return s.collector.BGPState(ctx, d)
		}
		return s.collector.BGP(ctx, d)
	})).Methods(http.MethodGet)
	dev.HandleFunc("/isis", s.device(func(ctx context.Context, d inventory.Device, _ *http.Request) collector.Result {
		return s.collector.ISIS(ctx, d)
	})).Methods(http.MethodGet)
	dev.HandleFunc("/interfaces", s.device(func(ctx context.Context, d inventory.Device, r *http.Request) collector.Result {
		return s.collector.Interfaces(ctx, d, r.URL.Query().Get("name"))
	})).Methods(http.MethodGet)
	dev.HandleFunc("/system", s.device(func(ctx context.Context, d inventory.Device, _ *http.Request) collector.Result {
		return s.collector.System(ctx, d)
	})).Methods(http.MethodGet)
	dev.HandleFunc("/logs", s.logs).Methods(http.MethodGet)
	dev.HandleFunc("/profile", s.device(func(ctx context.Context, d inventory.Device, _ *http.Request) collector.Result {
		return s.collector.Profile(ctx, d)
	})).Methods(http.MethodGet)
	dev.HandleFunc("/neighbors", s.device(func(ctx context.Context, d inventory.Device, _ *http.Request) collector.Result {
		return s.collector.Neighbors(ctx, s.inventory.Devices(), d)
	})).Methods(http.MethodGet)
	dev.HandleFunc("/path", s.path).Methods(http.MethodGet)

	s.router.HandleFunc("/topology", func(w http.ResponseWriter, r *http.Request) {
		res := s.collector.Adjacency(r.Context(), s.inventory.Devices(), r.URL.Query().Get("network"))
		writeResult(w, r, res)
	}).Methods(http.MethodGet)

	s.router.NotFoundHandler = requestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	}))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:      s,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP server listening on %s", l.Addr())
		errCh <- srv.Serve(l)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	devices := s.inventory.Devices()
	infos := make([]map[string]any, len(devices))
	for i, d := range devices {
		infos[i] = d.Info()
	}
	out, err := collector.Document{}.
		Set("devices", infos).
		Set("count", len(infos)).
		String()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type deviceFunc func(ctx context.Context, dev inventory.Device, r *http.Request) collector.Result

func (s *Server) device(fn deviceFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		dev, err := s.inventory.Find(name)
		if err != nil {
			writeError(w, r, http.StatusNotFound, err.Error())
			return
		}

		writeResult(w, r, fn(r.Context(), dev, r))
	}
}

func (s *Server) logs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := normalize.LogFilter{Keywords: q.Get("keywords")}
	var err error
	if v := q.Get("minutes"); v != "" {
		if f.Minutes, err = strconv.Atoi(v); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid minutes: "+v)
			return
		}
	}
	if v := q.Get("all"); v != "" {
		if f.All, err = strconv.ParseBool(v); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid all: "+v)
			return
		}
	}
	s.device(func(ctx context.Context, d inventory.Device, _ *http.Request) collector.Result {
		return s.collector.Logs(ctx, d, f)
	})(w, r)
}

func (s *Server) path(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target == "" {
		writeError(w, r, http.StatusBadRequest, "target is required")
		return
	}
	s.device(func(ctx context.Context, d inventory.Device, _ *http.Request) collector.Result {
		return s.collector.Path(ctx, s.inventory.Devices(), d, target)
	})(w, r)
}

func writeResult(w http.ResponseWriter, r *http.Request, res collector.Result) {
	out, err := res.JSON()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, StatusCode(res), out)
}

// StatusCode maps a collector result to an HTTP status.
func StatusCode(res collector.Result) int {
	if res.Status != collector.StatusFailed || res.Error == nil {
		return http.StatusOK
	}
	switch res.Error.Type {
	case string(capabilities.ModelNotSupported), string(capabilities.EncodingNotSupported):
		return http.StatusUnprocessableEntity
	case collector.ErrorTypeCancelled:
		return http.StatusServiceUnavailable
	case collector.ErrorTypeTopology:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(collector.ContextWithRequestID(r.Context(), id)))
		log.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": id,
			"duration":   time.Since(start),
		}).Debug("handled request")
	})
}

func writeJSON(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write([]byte(body)); err != nil {
		log.WithError(err).Debug("write response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	id, _ := collector.RequestIDFromContext(r.Context())
	out, _ := collector.Document{}.
		Set("error", msg).
		SetIf(id != "", "request_id", id).
		String()
	writeJSON(w, code, out)
}
