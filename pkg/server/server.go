package server

import (
	"net/http"
	"sync"

	"github.com/duynguyendang/gapagent/pkg/export"
	"github.com/duynguyendang/gapagent/pkg/service"
	"github.com/duynguyendang/gapagent/pkg/session"
	"github.com/gin-gonic/gin"
)

// DefaultMaxUploadBytes bounds a multipart upload.
const DefaultMaxUploadBytes = 64 << 20

// Options configures a Server.
type Options struct {
	// APIKey is used when a request carries no X-API-Key header.
	APIKey         string
	PageSize       string
	MaxUploadBytes int64
}

// Server holds the state for the REST API server.
type Server struct {
	analysis *service.AnalysisService
	session  *session.Session
	opts     Options
	router   *gin.Engine

	// mu admits one request at a time; handlers mutate the session freely.
	mu sync.Mutex
}

// NewServer creates a new Server instance bound to a single session.
func NewServer(analysis *service.AnalysisService, sess *session.Session, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	r := gin.Default()
	r.MaxMultipartMemory = opts.MaxUploadBytes
	s := &Server{
		analysis: analysis,
		session:  sess,
		opts:     opts,
		router:   r,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the server on the specified address.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/v1", s.serialize)
	v1.GET("/session", s.handleSession)
	v1.POST("/documents", s.handleUpload)
	v1.POST("/analyze", s.handleAnalyze)
	v1.POST("/concise", s.handleConcise)
	v1.POST("/ask", s.handleAsk)
	v1.GET("/tables/:name", s.handleTable)
	v1.GET("/tables/:name/export", s.handleTableExport)
	v1.GET("/review", s.handleReview)
	v1.GET("/review/export", s.handleReviewExport)
	v1.GET("/history", s.handleHistory)
	v1.PUT("/history", s.handleHistoryImport)
}

// serialize keeps exactly one request in flight.
func (s *Server) serialize(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Next()
}

// Health check
func (s *Server) healthCheck(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (s *Server) pdfOptions(title string) export.PDFOptions {
	return export.PDFOptions{PageSize: s.opts.PageSize, Title: title}
}
