package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mediabridge/mediabridge/internal/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogGin "github.com/samber/slog-gin"
)

const (
	shutdownTimeout = 5 * time.Second
	requestsPerSec  = 20
)

// StatusServer exposes health, the last sync reports and prometheus metrics.
type StatusServer struct {
	addr   string
	status *Status
	server *http.Server
}

func NewStatusServer(addr string, status *Status) *StatusServer {
	s := &StatusServer{addr: addr, status: status}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s
}

func (s *StatusServer) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(securityHeaders())
	r.Use(readOnlyCORS())
	r.Use(compression())
	r.Use(rateLimit(requestsPerSec))
	r.Use(slogGin.NewWithConfig(slog.Default().WithGroup("http"), slogGin.Config{
		DefaultLevel:     slog.LevelDebug,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		WithRequestID:    true,
	}))

	r.GET("/", s.index)
	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.GET("/status", s.statusHandler)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return r.Handler()
}

func (s *StatusServer) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": version.Detailed()})
}

func (s *StatusServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *StatusServer) statusHandler(c *gin.Context) {
	c.PureJSON(http.StatusOK, s.status.Snapshot())
}

// Serve listens until ctx is done, then shuts down gracefully.
func (s *StatusServer) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("status server start", "addr", fmt.Sprintf("http://%s", s.addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("status server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	slog.Info("status server stop")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	return ctx.Err()
}

func (s *StatusServer) String() string {
	return "status-server"
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
