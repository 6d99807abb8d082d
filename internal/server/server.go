package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eulaprotocol/triway/internal/common"
	"github.com/eulaprotocol/triway/internal/export"
	"github.com/eulaprotocol/triway/internal/forensic"
	"github.com/eulaprotocol/triway/internal/repository"
)

// Server wires the HTTP API: verification submission, retrieval, and export.
type Server struct {
	router        *gin.Engine
	audit         *forensic.Service
	verifications repository.VerificationRepository
	exporter      *export.Service
	db            *gorm.DB
	cfg           common.ServerConfig
	logger        *slog.Logger
}

func New(audit *forensic.Service, verifications repository.VerificationRepository, exporter *export.Service, db *gorm.DB, cfg common.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		audit:         audit,
		verifications: verifications,
		exporter:      exporter,
		db:            db,
		cfg:           cfg,
		logger:        logger,
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestID)
	r.MaxMultipartMemory = cfg.MaxUploadBytes

	r.GET("/health", s.handleHealth)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/verifications", s.handleCreateVerification)
		v1.GET("/verifications", s.handleListVerifications)
		v1.GET("/verifications/:id", s.handleGetVerification)
		v1.GET("/verifications/:id/export", s.handleExportVerification)
	}

	s.router = r
	return s
}

// Handler exposes the router for tests and for the HTTP server in main.
func (s *Server) Handler() http.Handler { return s.router }

// requestID tags every request with an ID, echoing a caller-supplied
// X-Request-ID when present, and threads it through the request context
// so error logs can be correlated with responses.
func requestID(c *gin.Context) {
	id := c.GetHeader("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}
	c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), id))
	c.Header("X-Request-ID", id)
	c.Next()
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.db != nil {
		if err := repository.HealthCheck(c.Request.Context(), s.db, 0); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// errorJSON writes a consistent error body with the status that the
// error maps to.
func (s *Server) errorJSON(c *gin.Context, err error) {
	ctx := c.Request.Context()
	status := common.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("server.request.failed",
			"path", c.FullPath(),
			"request_id", common.RequestIDFromContext(ctx),
			"wallet", common.WalletFromContext(ctx),
			"error", err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "request_id": common.RequestIDFromContext(ctx)})
}
