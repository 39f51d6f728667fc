// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package httpapi serves health checks, metrics and the latest sweep results
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/Thermoquad/novaprobe/internal/config"
	"github.com/Thermoquad/novaprobe/pkg/health"
	"github.com/Thermoquad/novaprobe/pkg/report"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Source provides the snapshots served by the API
type Source interface {
	Ready() bool
	Ports() []string
	Latest(port string) (*report.Snapshot, bool)
	All() []*report.Snapshot
	Severity() health.Severity
}

// Server wraps the gin engine and its http.Server
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// New builds the router. metricsHandler may be nil to disable /metrics.
func New(cfg config.HTTPConfig, metricsPath string, metricsHandler http.Handler, src Source, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if src.Ready() {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	if metricsHandler != nil {
		r.GET(metricsPath, gin.WrapH(metricsHandler))
	}

	api := r.Group("/api/v1")
	api.GET("/status", statusHandler(src))
	api.GET("/ports", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ports": src.Ports()})
	})
	api.GET("/snapshot", snapshotHandler(src))

	return &Server{
		srv: &http.Server{
			Addr:         cfg.Addr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: logger,
	}
}

// Handler returns the router, for tests
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves until Shutdown. http.ErrServerClosed is not an error.
func (s *Server) Start() error {
	s.logger.Info("http listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type portStatus struct {
	Port      string          `json:"port"`
	RunID     string          `json:"run_id"`
	Severity  health.Severity `json:"severity"`
	Receivers int             `json:"receivers"`
	Results   []health.Result `json:"results"`
}

// statusHandler summarises every port's latest sweep. The status code is
// 503 when the overall severity is CRITICAL, so the endpoint doubles as a
// monitoring check.
func statusHandler(src Source) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !src.Ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"severity": health.Unknown, "ports": []portStatus{}})
			return
		}

		ports := []portStatus{}
		for _, s := range src.All() {
			ports = append(ports, portStatus{
				Port:      s.Port,
				RunID:     s.RunID,
				Severity:  s.Severity(),
				Receivers: s.ReceiverCount(),
				Results:   s.Results,
			})
		}

		severity := src.Severity()
		code := http.StatusOK
		if severity == health.Critical {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"severity": severity, "ports": ports})
	}
}

// snapshotHandler returns a full snapshot. The port query parameter
// selects one port; it may be omitted when only one port is polled.
func snapshotHandler(src Source) gin.HandlerFunc {
	return func(c *gin.Context) {
		port := c.Query("port")
		if port == "" {
			ports := src.Ports()
			if len(ports) != 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "port parameter required"})
				return
			}
			port = ports[0]
		}

		snap, ok := src.Latest(port)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot for port", "port": port})
			return
		}

		format := c.DefaultQuery("format", "json")
		switch format {
		case "json":
			c.JSON(http.StatusOK, snap)
		case "yaml":
			c.Render(http.StatusOK, encoded{format: format, contentType: "application/yaml", snap: snap})
		case "cbor":
			c.Render(http.StatusOK, encoded{format: format, contentType: "application/cbor", snap: snap})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown format", "formats": report.Formats()})
		}
	}
}

// encoded renders a snapshot with a report encoder
type encoded struct {
	format      string
	contentType string
	snap        *report.Snapshot
}

func (e encoded) Render(w http.ResponseWriter) error {
	e.WriteContentType(w)
	return report.Encode(w, e.format, e.snap)
}

func (e encoded) WriteContentType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", e.contentType)
}
