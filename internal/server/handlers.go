package server

import (
	"context"
	_ "embed"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/backend"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/capture"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/conversation"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed static/sidebar.html
var sidebarHTML []byte

const healthTimeout = 3 * time.Second

type queryRequest struct {
	Query string `json:"query"`
}

type dataRequest struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

type pageRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

type sourceRequest struct {
	Source string `json:"source"`
}

type formatRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", sidebarHTML)
}

// handleHealth reports the sidebar as up; the backend section says whether queries can succeed.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := "healthy"
	backendStatus := gin.H{
		"url":       s.client.BaseURL(),
		"reachable": true,
		"circuit":   s.client.BreakerState().String(),
	}
	if err := s.client.Health(ctx); err != nil {
		status = "degraded"
		backendStatus["reachable"] = false
		backendStatus["error"] = err.Error()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         status,
		"service":        "FaultMaven Sidebar",
		"backend":        backendStatus,
		"session":        s.client.SessionID() != "",
		"pending":        s.controller.Pending(),
		"stream_clients": s.hub.Count(),
		"sanitize":       s.formatter.Sanitizing(),
		"metrics":        s.metrics.Snapshot(),
	})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := s.controller.Ask(c.Request.Context(), req.Query)
	if err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"item":       item,
		"session_id": s.client.SessionID(),
	})
}

func (s *Server) handleData(c *gin.Context) {
	var req dataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	// Unknown sources are reported by the controller so the sidebar shows them too.
	item, err := s.controller.Submit(c.Request.Context(), backend.DataSource(req.Source), req.Text)
	if err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"item":       item,
		"session_id": s.client.SessionID(),
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "file field required")
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to open upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, utils.MaxDataSize+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read upload")
		return
	}

	upload, err := capture.FromUpload(header.Filename, data)
	if err != nil {
		s.metrics.RecordCapture("file", "error")
		s.logger.Warn("upload rejected", zap.String("name", header.Filename), zap.Error(err))
		respondError(c, statusFor(err), err.Error())
		return
	}

	s.metrics.RecordCapture("file", "success")
	c.JSON(http.StatusOK, upload)
}

func (s *Server) handlePage(c *gin.Context) {
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := utils.ValidateURL(req.URL); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	// The browser may post the page it already has; otherwise the sidebar fetches it.
	if req.HTML != "" {
		page, err := capture.FromHTML(req.URL, []byte(req.HTML))
		if err != nil {
			s.metrics.RecordCapture("page_html", "error")
			respondError(c, statusFor(err), err.Error())
			return
		}
		s.metrics.RecordCapture("page_html", "success")

		if err := s.controller.UsePage(page); err != nil {
			respondError(c, statusFor(err), err.Error())
			return
		}
		c.JSON(http.StatusOK, page)
		return
	}

	page, err := s.controller.AnalyzePage(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleSource(c *gin.Context) {
	var req sourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	source, err := backend.ParseDataSource(req.Source)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.controller.SelectSource(source); err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"source": source})
}

func (s *Server) handleNewConversation(c *gin.Context) {
	s.controller.NewConversation()
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (s *Server) handleHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"items":      s.controller.History(),
		"session_id": s.client.SessionID(),
		"source":     s.controller.Source(),
		"pending":    s.controller.Pending(),
		"page":       s.controller.Page(),
	})
}

func (s *Server) handleFormat(c *gin.Context) {
	var req formatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := utils.NewSizeValidator("text", utils.MaxDataSize).ValidateSize([]byte(req.Text)); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	out := s.formatter.Format(req.Text)
	s.metrics.RecordFormat(time.Since(start), len(req.Text))

	c.JSON(http.StatusOK, gin.H{"html": out})
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// statusFor maps domain errors to HTTP status codes. Anything unrecognized came from upstream.
func statusFor(err error) int {
	switch {
	case errors.Is(err, conversation.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, conversation.ErrEmptyQuery),
		errors.Is(err, conversation.ErrEmptyData),
		errors.Is(err, conversation.ErrNoPageContent),
		errors.Is(err, backend.ErrUnknownSource),
		errors.Is(err, utils.ErrEmpty),
		errors.Is(err, utils.ErrInvalidUTF8),
		errors.Is(err, utils.ErrTooLarge),
		errors.Is(err, utils.ErrInvalidURL),
		errors.Is(err, capture.ErrEmptyPage),
		errors.Is(err, capture.ErrEmptyFile),
		errors.Is(err, capture.ErrUnsupportedFile),
		errors.Is(err, capture.ErrNotHTML):
		return http.StatusBadRequest
	case errors.Is(err, conversation.ErrNoFetcher),
		errors.Is(err, resilience.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
