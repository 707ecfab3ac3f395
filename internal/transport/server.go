package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/lunchdesk/internal/flow"
	"github.com/roach88/lunchdesk/internal/session"
	"github.com/roach88/lunchdesk/internal/store"
)

// Engine handles updates. *flow.Engine implements it.
type Engine interface {
	Handle(ctx context.Context, u flow.Update) ([]flow.Command, error)
}

// Principals looks up identified users. *store.Store implements it.
type Principals interface {
	Principal(ctx context.Context, id string) (store.Principal, error)
}

// Pinger reports whether storage is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server handles the HTTP API.
type Server struct {
	engine     Engine
	principals Principals
	mailbox    *Mailbox
	db         Pinger
	logger     *slog.Logger
}

// NewServer creates a server. db may be nil, in which case /healthz
// always reports ok.
func NewServer(engine Engine, principals Principals, mailbox *Mailbox, db Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if mailbox == nil {
		mailbox = NewMailbox()
	}
	return &Server{
		engine:     engine,
		principals: principals,
		mailbox:    mailbox,
		db:         db,
		logger:     logger,
	}
}

// updateResponse is the body of a successful POST /v1/updates.
type updateResponse struct {
	Commands []flow.Command `json:"commands"`
}

// SetupRoutes registers the API routes.
func (s *Server) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", s.Healthz)

	v1 := router.Group("/v1")
	{
		v1.POST("/updates", s.PostUpdate)
		v1.GET("/sessions/:sessionId/messages", s.GetMessages)
	}
}

// NewRouter returns a gin engine with recovery, request logging and the
// API routes.
func NewRouter(s *Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger))
	s.SetupRoutes(router)
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})
	return router
}

// PostUpdate feeds one inbound message to the engine.
func (s *Server) PostUpdate(c *gin.Context) {
	var u flow.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update: " + err.Error()})
		return
	}
	if u.SessionID == "" || u.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id and user_id are required"})
		return
	}

	ctx := c.Request.Context()
	p, err := s.principals.Principal(ctx, u.UserID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusForbidden, gin.H{"error": "unknown user"})
		return
	case err != nil:
		s.logger.Error("principal lookup failed", "user_id", u.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	case !p.Enabled:
		c.JSON(http.StatusForbidden, gin.H{"error": "user disabled"})
		return
	}

	cmds, err := s.engine.Handle(ctx, u)
	if err != nil {
		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("update failed", "session_id", u.SessionID, "user_id", u.UserID, "error", err)
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}
	if cmds == nil {
		cmds = []flow.Command{}
	}
	c.JSON(http.StatusOK, updateResponse{Commands: cmds})
}

// GetMessages returns and clears the commands waiting for a session.
func (s *Server) GetMessages(c *gin.Context) {
	c.JSON(http.StatusOK, updateResponse{Commands: s.mailbox.Drain(c.Param("sessionId"))})
}

// Healthz reports whether the service can reach its storage.
func (s *Server) Healthz(c *gin.Context) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, flow.ErrMissingIdentity), errors.Is(err, flow.ErrUnknownKind):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, session.ErrWrongUser):
		return http.StatusForbidden, "session belongs to another user"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request cancelled"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
