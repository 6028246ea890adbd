package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"catalog/backend/internal/config"
	productusecase "catalog/backend/internal/usecase/product"

	"github.com/gin-gonic/gin"
)

// multipartOverhead leaves room for the product JSON part next to an image.
const multipartOverhead = 1 << 20

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server wraps the HTTP server lifecycle.
type Server struct {
	httpServer     *http.Server
	engine         *gin.Engine
	productService *productusecase.Service
	health         HealthChecker
	logger         *slog.Logger
	maxUploadBytes int64
	addr           string
}

// NewServer constructs a new Server with configured dependencies. health may be nil.
func NewServer(cfg config.Config, productService *productusecase.Service, health HealthChecker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	addr := cfg.HTTPPort
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	engine := gin.New()
	engine.MaxMultipartMemory = cfg.MaxUploadBytes + multipartOverhead
	engine.Use(withRecovery(logger), withLogging(logger), withCORS(cfg.CORS))

	srv := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      engine,
			ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
			IdleTimeout:  time.Duration(cfg.IdleTimeoutSec) * time.Second,
		},
		engine:         engine,
		productService: productService,
		health:         health,
		logger:         logger,
		maxUploadBytes: cfg.MaxUploadBytes,
		addr:           addr,
	}
	srv.registerRoutes()
	return srv
}

// Start bootstraps the HTTP server on the configured address.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the routed handler, including middleware.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the configured network address for the HTTP server.
func (s *Server) Addr() string {
	return s.addr
}
