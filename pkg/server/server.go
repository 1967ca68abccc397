// Package server exposes the HTTP and websocket surface: the voice-loop
// endpoints (think/speak/listen), call-session control, robot enumeration,
// the CMS override API and the browser audio channel.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kottzoltan/aivio/pkg/config"
	"github.com/kottzoltan/aivio/pkg/dialog"
	"github.com/kottzoltan/aivio/pkg/logger"
	"github.com/kottzoltan/aivio/pkg/persona"
	"github.com/kottzoltan/aivio/pkg/session"
	"github.com/kottzoltan/aivio/pkg/stt"
	"github.com/kottzoltan/aivio/pkg/tts"
	"go.uber.org/zap"
)

// Server wires the registries and providers behind the route table.
type Server struct {
	engine       *gin.Engine
	config       *config.Config
	personas     *persona.Registry
	sessions     *session.Registry
	orchestrator *dialog.Orchestrator
	tts          tts.Synthesizer
	stt          stt.Transcriber
}

// NewServer builds the route table. tts and stt may be nil when the matching
// provider is unconfigured; the affected endpoints then answer 502.
func NewServer(cfg *config.Config, personas *persona.Registry, sessions *session.Registry, orchestrator *dialog.Orchestrator, synthesizer tts.Synthesizer, transcriber stt.Transcriber) *Server {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		engine:       gin.New(),
		config:       cfg,
		personas:     personas,
		sessions:     sessions,
		orchestrator: orchestrator,
		tts:          synthesizer,
		stt:          transcriber,
	}
	s.engine.Use(gin.Recovery(), requestLog())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/robots", s.handleRobots)

	s.engine.POST("/think", s.handleThink)
	s.engine.POST("/speak", s.handleSpeak)
	s.engine.POST("/listen", s.handleListen)

	s.engine.POST("/call/start", s.handleCallStart)
	s.engine.POST("/call/end", s.handleCallEnd)

	cms := s.engine.Group("/api/cms")
	cms.GET("/robots/:key", s.handleCMSGetRobot)
	cms.PUT("/robots/:key", s.handleCMSPutRobot)

	s.engine.GET("/ws/audio", s.handleAudioSocket)

	if s.config.Server.StaticDir != "" {
		s.engine.Static("/ui", s.config.Server.StaticDir)
		s.engine.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusFound, "/ui/")
		})
	}
}

// ServeHTTP makes the server usable directly with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	addr := s.config.Server.Addr
	if addr == "" {
		addr = ":8080"
	}
	logger.Info("http server listening", zap.String("addr", addr))
	return s.engine.Run(addr)
}

// requestLog tags every request with an id and logs one line when it
// finishes.
func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()
		logger.Info("request completed",
			zap.String("requestId", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}
