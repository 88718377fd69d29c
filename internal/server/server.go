package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/ghostconnect/internal/observability"
	"github.com/danmuck/ghostconnect/internal/tunnel"
)

// Server exposes the supervisor over a local admin HTTP surface.
type Server struct {
	ID       string
	Appeared time.Time

	supervisor *tunnel.Supervisor
	router     *gin.Engine
}

func Appear(id string, supervisor *tunnel.Supervisor, corsOrigins []string) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		ID:         id,
		Appeared:   time.Now(),
		supervisor: supervisor,
		router:     r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// Serve blocks until ctx is canceled, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": "0.0.1",
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api/tunnel")
	api.GET("/status", s.handleStatus)
	api.POST("/toggle", s.handleToggle)
}

type toggleRequest struct {
	Activate *bool `json:"activate"`
}

type toggleResponse struct {
	OK    bool   `json:"ok"`
	State string `json:"state,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state": string(s.supervisor.Status()),
	})
}

func (s *Server) handleToggle(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Activate == nil {
		c.JSON(http.StatusBadRequest, toggleResponse{OK: false, Error: "activate (bool) is required"})
		return
	}

	state, err := s.supervisor.Toggle(c.Request.Context(), *req.Activate)
	if err != nil {
		c.JSON(toggleStatusCode(err), toggleResponse{
			OK:    false,
			State: string(state),
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, toggleResponse{OK: true, State: string(state)})
}

// toggleStatusCode maps the supervisor error taxonomy onto HTTP status codes.
func toggleStatusCode(err error) int {
	switch {
	case errors.Is(err, tunnel.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, tunnel.ErrAgentTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, tunnel.ErrAgentLaunchFailed),
		errors.Is(err, tunnel.ErrProtocolViolation),
		errors.Is(err, tunnel.ErrAuthOrConnectFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
