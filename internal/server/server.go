package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cartrules/pkg/logging"
)

// Dependencies are the components the HTTP surface exposes.
type Dependencies struct {
	Shop      string
	Runner    PassRunner
	State     StateSource
	Rules     RuleCache
	Scheduler Scheduler
	Hub       SocketHub
}

// NewRouter builds the gin router with every route registered.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/signals", HandleSignal(deps.Scheduler))
		v1.POST("/reconcile", HandleReconcile(deps.Runner))
		v1.POST("/rules/reload", HandleReloadRules(deps.Rules, deps.Runner, deps.Shop))
		v1.GET("/status", HandleStatus(deps))
		if deps.Hub != nil {
			v1.GET("/ws", HandleWebSocket(deps.Hub))
		}
	}

	return router
}

// requestLogger logs each request at debug level under the Server subsystem.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Debug("Server", "%s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// Server is the agent's HTTP listener.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
}

// New creates a server for handler on host:port.
func New(host string, port int, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              net.JoinHostPort(host, fmt.Sprint(port)),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.listener = listener

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server", err, "HTTP server stopped")
		}
	}()

	logging.Info("Server", "Listening on %s", listener.Addr())
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Shutdown stops accepting connections and waits for active requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
