// Package server exposes grading over HTTP. The run endpoint always
// answers 200 with a run result; only transport-level faults (bad auth,
// unparseable body) use other status codes.
package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/tasklab/autograder/api"
	"github.com/tasklab/autograder/internal/events"
	"github.com/tasklab/autograder/internal/queue"
)

// AuthHeader matches the client side in the root package.
const AuthHeader = "X-Service-Auth"

type activeRun struct {
	Language api.Language
	Started  time.Time
}

type Server struct {
	runner queue.Runner
	secret string
	events events.Publisher
	logger *slog.Logger
	// active tracks in-flight runs by uuid, for the health endpoint.
	active *xsync.MapOf[string, activeRun]
}

func New(runner queue.Runner, secret string, pub events.Publisher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if pub == nil {
		pub = events.LogPublisher{Logger: logger}
	}
	return &Server{
		runner: runner,
		secret: secret,
		events: pub,
		logger: logger,
		active: xsync.NewMapOf[string, activeRun](),
	}
}

func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/healthz", s.health)
	r.POST("/api/run-tests", s.auth(), s.runTests)
	return r
}

func (s *Server) runTests(c *gin.Context) {
	var req api.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	runUuid := uuid.New().String()
	s.active.Store(runUuid, activeRun{Language: req.Language, Started: time.Now()})
	defer s.active.Delete(runUuid)

	s.events.RunReceived(runUuid, req.Language)
	res := s.runner.Run(c.Request.Context(), req)
	s.events.RunFinished(runUuid, res)

	c.JSON(http.StatusOK, res)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "active_runs": s.active.Size()})
}

func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.secret == "" {
			c.Next()
			return
		}
		given := c.GetHeader(AuthHeader)
		if subtle.ConstantTimeCompare([]byte(given), []byte(s.secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := uuid.New().String()
		c.Header("X-Request-Id", reqID)

		start := time.Now()
		c.Next()

		s.logger.Info("request",
			"request_id", reqID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}
