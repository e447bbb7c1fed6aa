package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/invoicelens/invoice-extractor/internal/common"
	"github.com/invoicelens/invoice-extractor/internal/events"
	"github.com/invoicelens/invoice-extractor/internal/export"
	"github.com/invoicelens/invoice-extractor/internal/orchestrator"
	"github.com/invoicelens/invoice-extractor/internal/repository"
)

// JobQueue is the slice of the orchestrator queue the server needs.
type JobQueue interface {
	Enqueue(ctx context.Context, job orchestrator.Job) error
}

// Server wires the HTTP API: uploads feed the job queue, CRUD reads the
// repository, and the websocket endpoint streams job events.
type Server struct {
	cfg      common.ServerConfig
	repo     repository.InvoiceRepository
	queue    JobQueue
	bus      *events.Broadcaster
	exporter *export.Service
	logger   *slog.Logger
}

func New(cfg common.ServerConfig, repo repository.InvoiceRepository, queue JobQueue, bus *events.Broadcaster, exporter *export.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		repo:     repo,
		queue:    queue,
		bus:      bus,
		exporter: exporter,
		logger:   logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
	}))

	api := r.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.POST("/upload", s.handleUpload)

		api.GET("/invoices", s.handleListInvoices)
		api.GET("/invoices/export", s.handleExportInvoices)
		api.GET("/invoices/:id", s.handleGetInvoice)
		api.PUT("/invoices/:id", s.handleUpdateInvoice)
		api.DELETE("/invoices/:id", s.handleDeleteInvoice)
		api.GET("/invoices/:id/details", s.handleGetDetails)
		api.PUT("/invoices/:id/details", s.handleReplaceDetails)
		api.DELETE("/invoices/:id/details/:detailID", s.handleDeleteDetail)
	}

	r.GET("/ws/jobs/:jobID", s.handleJobEvents)

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError maps the error taxonomy onto HTTP status codes.
func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		s.logger.Error("server.internal_error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
