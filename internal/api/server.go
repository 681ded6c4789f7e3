// Package api handles HTTP and WebSocket API endpoints
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/zafaroo/postcraft/internal/command"
	"github.com/zafaroo/postcraft/internal/composer"
	"github.com/zafaroo/postcraft/internal/export"
	"github.com/zafaroo/postcraft/internal/interaction"
	"github.com/zafaroo/postcraft/internal/renderer"
	"github.com/zafaroo/postcraft/internal/session"
	"github.com/zafaroo/postcraft/pkg/postformat"
)

// maxUploadSize caps request bodies carrying images or posts
const maxUploadSize = 32 << 20

// decodeWait bounds ?wait=1 on background uploads
const decodeWait = 30 * time.Second

// Server is the API server
type Server struct {
	router   *gin.Engine
	registry *session.Registry
	queue    *export.Queue
	executor *command.Executor
	upgrader websocket.Upgrader

	clients   map[*WSClient]bool
	clientsMu sync.RWMutex
}

// NewServer creates a new API server. queue may be nil, which disables
// background exports.
func NewServer(registry *session.Registry, executor *command.Executor, queue *export.Queue) *Server {
	// Set Gin to release mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.Default()

	// CORS middleware
	router.Use(corsMiddleware())

	server := &Server{
		router:   router,
		registry: registry,
		queue:    queue,
		executor: executor,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		clients: make(map[*WSClient]bool),
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	// Sessions
	s.router.POST("/sessions", s.handleOpenSession)
	s.router.GET("/sessions", s.handleListSessions)
	s.router.GET("/sessions/:id", s.handleGetSession)
	s.router.DELETE("/sessions/:id", s.handleCloseSession)

	// Editing
	s.router.PATCH("/sessions/:id/style", s.handlePatchStyle)
	s.router.PUT("/sessions/:id/title", s.handleSetTitle)
	s.router.PUT("/sessions/:id/background", s.handleSetBackground)
	s.router.DELETE("/sessions/:id/background", s.handleClearBackground)
	s.router.POST("/sessions/:id/pointer", s.handlePointer)

	// Output
	s.router.GET("/sessions/:id/preview.png", s.handlePreview)
	s.router.POST("/sessions/:id/export", s.handleExport)
	s.router.GET("/exports", s.handleGetJobs)
	s.router.GET("/exports/:id", s.handleGetJob)

	// Command endpoint
	s.router.POST("/command", s.handleCommand)

	// WebSocket
	s.router.GET("/ws", s.handleWebSocket)

	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "sessions": s.registry.Len()})
	})
}

// Handler returns the HTTP handler, for use with http.Server or httptest
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the API server
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// lookup returns the session named by the :id parameter or writes a 404
func (s *Server) lookup(c *gin.Context) *session.Session {
	sess := s.registry.Get(c.Param("id"))
	if sess == nil {
		c.JSON(404, gin.H{"error": "session not found"})
	}
	return sess
}

// sessionView is the JSON form of a session
func sessionView(sess *session.Session) gin.H {
	st := sess.State()
	return gin.H{
		"session":     sess.Info(),
		"title":       st.Title,
		"footer":      st.Footer(),
		"style":       st.Style(),
		"interaction": sess.InteractionState().String(),
	}
}

// handleOpenSession opens a session from a NewsItem or a full .post document
func (s *Server) handleOpenSession(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadSize))
	if err != nil {
		c.JSON(400, gin.H{"error": "failed to read body"})
		return
	}

	var probe struct {
		Item json.RawMessage `json:"item"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		c.JSON(400, gin.H{"error": fmt.Sprintf("invalid JSON: %v", err)})
		return
	}

	var sess *session.Session
	if probe.Item != nil {
		post, err := postformat.Parse(data)
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		// Server-side files are not reachable from a request
		if post.Background != nil && post.Background.Path != "" {
			c.JSON(400, gin.H{"error": "background.path is not accepted here, send background.base64 or PUT the image"})
			return
		}
		sess, err = s.registry.OpenPost(post)
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
	} else {
		var item postformat.NewsItem
		if err := json.Unmarshal(data, &item); err != nil {
			c.JSON(400, gin.H{"error": fmt.Sprintf("invalid news item: %v", err)})
			return
		}
		if item.Title == "" {
			c.JSON(400, gin.H{"error": "title is required"})
			return
		}
		sess, err = s.registry.Open(item)
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
	}

	fmt.Printf("📝 Session %s opened: %s\n", sess.ID, sess.State().DrawnTitle())
	s.BroadcastSessionOpened(sess.Info())

	view := sessionView(sess)
	view["id"] = sess.ID
	c.JSON(201, view)
}

// handleListSessions returns all open sessions
func (s *Server) handleListSessions(c *gin.Context) {
	c.JSON(200, gin.H{"sessions": s.registry.List()})
}

// handleGetSession returns one session
func (s *Server) handleGetSession(c *gin.Context) {
	sess := s.lookup(c)
	if sess == nil {
		return
	}
	c.JSON(200, sessionView(sess))
}

// handleCloseSession discards a session
func (s *Server) handleCloseSession(c *gin.Context) {
	if !s.registry.Close(c.Param("id")) {
		c.JSON(404, gin.H{"error": "session not found"})
		return
	}
	s.BroadcastSessionClosed(c.Param("id"))
	c.JSON(200, gin.H{"success": true})
}

// handlePatchStyle merges a partial style into the session
func (s *Server) handlePatchStyle(c *gin.Context) {
	sess := s.lookup(c)
	if sess == nil {
		return
	}

	var style postformat.Style
	if err := c.ShouldBindJSON(&style); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	if err := sess.Do(func(comp *composer.Composer) error {
		return comp.ApplyStyle(style)
	}); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, sessionView(sess))
}

// handleSetTitle replaces the headline text
func (s *Server) handleSetTitle(c *gin.Context) {
	sess := s.lookup(c)
	if sess == nil {
		return
	}

	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "title is required"})
		return
	}

	if err := sess.Do(func(comp *composer.Composer) error {
		comp.SetTitle(req.Title)
		return nil
	}); err != nil {
		c.JSON(409, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, sessionView(sess))
}

// handleSetBackground takes raw image bytes. Decoding happens in the
// background unless ?wait=1 is given.
func (s *Server) handleSetBackground(c *gin.Context) {
	sess := s.lookup(c)
	if sess == nil {
		return
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadSize+1))
	if err != nil {
		c.JSON(400, gin.H{"error": "failed to read body"})
		return
	}
	if len(data) > maxUploadSize {
		c.JSON(413, gin.H{"error": "image too large"})
		return
	}

	token, err := sess.SetBackgroundImage(data)
	if err != nil {
		c.JSON(409, gin.H{"error": err.Error()})
		return
	}

	if wait, _ := strconv.ParseBool(c.Query("wait")); !wait {
		c.JSON(202, gin.H{"token": token})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), decodeWait)
	defer cancel()

	err = sess.AwaitDecode(ctx)
	var decodeErr *composer.DecodeError
	switch {
	case errors.As(err, &decodeErr):
		c.JSON(422, gin.H{"error": decodeErr.Error(), "token": token})
	case err != nil:
		c.JSON(504, gin.H{"error": err.Error(), "token": token})
	default:
		c.JSON(200, gin.H{"token": token, "applied": true})
	}
}

// handleClearBackground removes the background image
func (s *Server) handleClearBackground(c *gin.Context) {
	sess := s.lookup(c)
	if sess == nil {
		return
	}

	if err := sess.Do(func(comp *composer.Composer) error {
		comp.ClearBackground()
		return nil
	}); err != nil {
		c.JSON(409, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{"success": true})
}

// handlePointer feeds one pointer event to the session
func (s *Server) handlePointer(c *gin.Context) {
	sess := s.lookup(c)
	if sess == nil {
		return
	}

	var ev interaction.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	changed, cursor, err := sess.Pointer(ev)
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	st := sess.State()
	offset := gin.H{"x": st.Offset.X, "y": st.Offset.Y}
	c.JSON(200, gin.H{
		"changed":      changed,
		"cursor":       cursor,
		"interaction":  sess.InteractionState().String(),
		"image_scale":  st.Scale,
		"image_offset": offset,
	})
}

// handlePreview returns the latest preview as PNG
func (s *Server) handlePreview(c *gin.Context) {
	sess := s.lookup(c)
	if sess == nil {
		return
	}

	res, err := sess.Preview()
	var decodeErr *composer.DecodeError
	if err != nil && !errors.As(err, &decodeErr) {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	if res == nil {
		c.JSON(409, gin.H{"error": "no preview available"})
		return
	}

	if decodeErr != nil {
		c.Header("X-Decode-Error", decodeErr.Error())
	}
	c.Header("Cache-Control", "no-store")
	c.Status(200)
	c.Header("Content-Type", "image/png")
	if err := renderer.EncodePNG(c.Writer, res.Image); err != nil {
		fmt.Printf("⚠️  Preview encode failed: %v\n", err)
	}
}

// handleExport renders the final image and returns it as a download.
// With ?async=1 the image is queued for the export directory instead.
func (s *Server) handleExport(c *gin.Context) {
	sess := s.lookup(c)
	if sess == nil {
		return
	}

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		if s.queue == nil {
			c.JSON(501, gin.H{"error": "background export is not configured"})
			return
		}
		art, err := sess.RenderFinal()
		var decodeErr *composer.DecodeError
		if err != nil && !errors.As(err, &decodeErr) {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		jobID := s.queue.Enqueue(sess.ID, art.PNG, art.Filename)
		c.JSON(202, gin.H{"success": true, "job_id": jobID})
		return
	}

	sink := &export.WriterSink{
		W: c.Writer,
		Before: func(filename string, size int) {
			c.Header("Content-Type", "image/png")
			c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
			c.Header("Content-Length", strconv.Itoa(size))
			c.Status(200)
		},
	}

	if err := sess.Export(c.Request.Context(), sink); err != nil {
		if c.Writer.Written() {
			fmt.Printf("❌ Export for session %s failed mid-stream: %v\n", sess.ID, err)
			return
		}
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	fmt.Printf("✅ Session %s exported\n", sess.ID)
}

// handleGetJobs returns all export jobs
func (s *Server) handleGetJobs(c *gin.Context) {
	if s.queue == nil {
		c.JSON(200, gin.H{"jobs": []*export.Job{}})
		return
	}
	c.JSON(200, gin.H{"jobs": s.queue.GetAllJobs()})
}

// handleGetJob returns a specific export job
func (s *Server) handleGetJob(c *gin.Context) {
	if s.queue == nil {
		c.JSON(404, gin.H{"error": "job not found"})
		return
	}

	job := s.queue.GetJob(c.Param("id"))
	if job == nil {
		c.JSON(404, gin.H{"error": "job not found"})
		return
	}

	c.JSON(200, job)
}

// handleCommand handles command execution requests
func (s *Server) handleCommand(c *gin.Context) {
	var req struct {
		Session string `json:"session"`
		Command string `json:"command" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "command is required"})
		return
	}

	var sess *session.Session
	if req.Session != "" {
		sess = s.registry.Get(req.Session)
		if sess == nil {
			c.JSON(404, gin.H{"error": "session not found"})
			return
		}
	}

	result := s.executor.Execute(sess, req.Command)

	if result.Success {
		response := gin.H{
			"success": true,
		}
		if result.Message != "" {
			response["message"] = result.Message
		}
		if result.Data != nil {
			for k, v := range result.Data {
				response[k] = v
			}
		}
		c.JSON(200, response)
	} else {
		c.JSON(400, gin.H{
			"success": false,
			"error":   result.Error,
		})
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Decode-Error")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
