// Package httpapi exposes the HTTP trigger surface: the cron check endpoint,
// a health probe, and the monitoring status summary.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wingwatch/internal/monitor"
	"wingwatch/internal/store"
	logx "wingwatch/pkg/logx"
)

// Runner is the monitoring facade the API triggers.
type Runner interface {
	Run(ctx context.Context) monitor.Summary
	Status(ctx context.Context) (store.Status, error)
}

type Config struct {
	Addr       string
	CronSecret string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type Server struct {
	cfg    Config
	srv    *http.Server
	runner Runner
	log    logx.Logger
}

func NewServer(cfg Config, runner Runner, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		// A triggered check runs inside the request; give it room.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 120 * time.Second
	}

	s := &Server{cfg: cfg, runner: runner, log: log}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.CustomRecovery(s.recoverToJSON))
	router.Use(s.loggingMiddleware())

	router.GET("/api/health", s.handleHealth)

	guarded := router.Group("/api", s.requireCronSecret())
	guarded.GET("/cron/check-updates", s.handleCheckUpdates)
	guarded.POST("/cron/check-updates", s.handleCheckUpdates)
	guarded.GET("/status", s.handleStatus)

	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", logx.String("addr", s.cfg.Addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(sctx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// recoverToJSON turns a handler panic into the same structured failure
// body a failed run produces, instead of a bare 500.
func (s *Server) recoverToJSON(c *gin.Context, rec any) {
	s.log.Error("handler panic", logx.Any("panic", rec))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   "internal error",
	})
}

// requireCronSecret rejects unauthorized requests before any monitoring
// work starts.
func (s *Server) requireCronSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.CronSecret == "" {
			s.log.Error("cron secret not configured")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "cron trigger not configured"})
			return
		}
		if c.GetHeader("Authorization") != "Bearer "+s.cfg.CronSecret {
			s.log.Warn("unauthorized trigger attempt", logx.String("remote", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

type checkResponse struct {
	monitor.Summary
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleCheckUpdates(c *gin.Context) {
	sum := s.runner.Run(c.Request.Context())
	resp := checkResponse{Summary: sum, Timestamp: time.Now().UTC().Format(time.RFC3339)}
	if !sum.Success {
		c.JSON(http.StatusInternalServerError, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	st, err := s.runner.Status(c.Request.Context())
	if err != nil {
		s.log.Error("status query failed", logx.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "status unavailable"})
		return
	}
	var lastCheck string
	if !st.LastCheck.IsZero() {
		lastCheck = st.LastCheck.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, gin.H{
		"lastCheck":          lastCheck,
		"totalChecks":        st.TotalChecks,
		"totalNotifications": st.TotalNotifications,
		"activeSubscribers":  st.ActiveSubscribers,
	})
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			logx.String("method", c.Request.Method),
			logx.String("path", c.Request.URL.Path),
			logx.Int("status", c.Writer.Status()),
			logx.Duration("took", time.Since(start)),
		)
	}
}
