package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/duynguyendang/gapagent/pkg/common/errors"
	"github.com/duynguyendang/gapagent/pkg/export"
	"github.com/duynguyendang/gapagent/pkg/ingest"
	"github.com/duynguyendang/gapagent/pkg/service"
	"github.com/duynguyendang/gapagent/pkg/service/ai"
	"github.com/duynguyendang/gapagent/pkg/table"
	"github.com/gin-gonic/gin"
)

// Download file names per table.
var tableFiles = map[string]string{
	"gap":     "research_gap",
	"concise": "concise_gap",
}

const (
	reviewFile     = "literature_review.docx"
	historyFile    = "chat_history.json"
	transcriptFile = "conversation_history.md"
)

// apiKey prefers the request header over the configured key.
func (s *Server) apiKey(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader("X-API-Key")); key != "" {
		return key
	}
	return s.opts.APIKey
}

// requireKey answers 401 when no key is available.
func (s *Server) requireKey(c *gin.Context) (string, bool) {
	key := s.apiKey(c)
	if key == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": s.analysis.MissingKeyMessage()})
		return "", false
	}
	return key, true
}

func (s *Server) handleSession(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.Summary())
}

// handleUpload extracts the uploaded files into a new corpus.
func (s *Server) handleUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Expected multipart form with files", err))
		return
	}

	var docs []ingest.Document
	for _, fh := range form.File["files"] {
		f, err := fh.Open()
		if err != nil {
			handleError(c, errors.NewAppError(http.StatusBadRequest, "Could not read upload "+fh.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			handleError(c, errors.NewAppError(http.StatusBadRequest, "Could not read upload "+fh.Filename, err))
			return
		}
		docs = append(docs, ingest.Document{Name: fh.Filename, Data: data})
	}

	results, err := s.analysis.Ingest(c.Request.Context(), s.session, docs)
	if err != nil {
		appErr := errors.MapError(err)
		c.JSON(appErr.Code, gin.H{"error": appErr.Message, "detail": err.Error(), "files": results})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s.session.Summary(), "files": results})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var opts service.AnalyzeOptions
	if err := c.ShouldBindJSON(&opts); err != nil {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Invalid request body", err))
		return
	}
	key, ok := s.requireKey(c)
	if !ok {
		return
	}

	res, err := s.analysis.Analyze(c.Request.Context(), s.session, opts, key)
	if err != nil {
		handleError(c, err)
		return
	}
	if !res.Valid {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": res.Message})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleConcise(c *gin.Context) {
	key, ok := s.requireKey(c)
	if !ok {
		return
	}
	concise, err := s.analysis.Condense(c.Request.Context(), s.session, key)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, concise)
}

func (s *Server) handleAsk(c *gin.Context) {
	var req struct {
		Question string `json:"question"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Invalid request body", err))
		return
	}
	key, ok := s.requireKey(c)
	if !ok {
		return
	}

	resp, err := s.analysis.Ask(c.Request.Context(), s.session, req.Question, key)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(responseStatus(resp.Kind), gin.H{"answer": resp.Text, "kind": resp.Kind.String()})
}

// lookupTable resolves the :name path parameter against the session.
func (s *Server) lookupTable(c *gin.Context) (*table.Table, string, bool) {
	name := c.Param("name")
	base, known := tableFiles[name]
	if !known {
		handleError(c, errors.NewAppError(http.StatusNotFound, fmt.Sprintf("Unknown table %q", name), nil))
		return nil, "", false
	}
	t := s.session.GapTable
	if name == "concise" {
		t = s.session.ConciseTable
	}
	if t == nil {
		handleError(c, errors.NewAppError(http.StatusNotFound, fmt.Sprintf("No %s table has been generated", name), nil))
		return nil, "", false
	}
	return t, base, true
}

func (s *Server) handleTable(c *gin.Context) {
	t, _, ok := s.lookupTable(c)
	if !ok {
		return
	}
	if c.Query("format") == "markdown" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(t.Markdown()))
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleTableExport(c *gin.Context) {
	t, base, ok := s.lookupTable(c)
	if !ok {
		return
	}

	var (
		doc *export.RenderedDocument
		err error
	)
	switch format := c.DefaultQuery("format", "pdf"); format {
	case "pdf":
		doc, err = export.RenderTablePDF(t, s.pdfOptions(export.TableHeading))
	case "docx":
		doc, err = export.RenderTableDOCX(t)
	default:
		handleError(c, errors.NewAppError(http.StatusBadRequest, "format must be pdf or docx", nil))
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}
	attach(c, base+"."+doc.Extension(), doc.MIME, doc.Data)
}

func (s *Server) handleReview(c *gin.Context) {
	if s.session.Review == "" {
		handleError(c, errors.NewAppError(http.StatusNotFound, "No literature review has been generated", nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{"review": s.session.Review, "paragraphs": export.ReviewParagraphs(s.session.Review)})
}

func (s *Server) handleReviewExport(c *gin.Context) {
	if s.session.Review == "" {
		handleError(c, errors.NewAppError(http.StatusNotFound, "No literature review has been generated", nil))
		return
	}
	doc, err := export.RenderReviewDOCX(s.session.Review)
	if err != nil {
		handleError(c, err)
		return
	}
	attach(c, reviewFile, doc.MIME, doc.Data)
}

func (s *Server) handleHistory(c *gin.Context) {
	if c.Query("format") == "markdown" {
		attach(c, transcriptFile, "text/markdown; charset=utf-8", []byte(s.session.History.Transcript()))
		return
	}
	data, err := s.session.History.Export()
	if err != nil {
		handleError(c, err)
		return
	}
	attach(c, historyFile, "application/json", data)
}

func (s *Server) handleHistoryImport(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Could not read body", err))
		return
	}
	if err := s.session.History.Import(data); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"turns": s.session.History.Len()})
}

func attach(c *gin.Context, filename, mime string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, mime, data)
}

func handleError(c *gin.Context, err error) {
	appErr := errors.MapError(err)
	body := gin.H{"error": appErr.Message}
	if appErr.Err != nil {
		body["detail"] = appErr.Err.Error()
	}
	c.JSON(appErr.Code, body)
}

// responseStatus maps a failed orchestrator response to an HTTP status.
func responseStatus(kind ai.ResponseKind) int {
	switch kind {
	case ai.ResponseMissingKey, ai.ResponseAuthFailure:
		return http.StatusUnauthorized
	case ai.ResponseQuotaExceeded:
		return http.StatusTooManyRequests
	case ai.ResponseServiceFailure:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}
