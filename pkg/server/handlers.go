package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kottzoltan/aivio/pkg/apperr"
	"github.com/kottzoltan/aivio/pkg/constants"
	"github.com/kottzoltan/aivio/pkg/dialog"
	"github.com/kottzoltan/aivio/pkg/persona"
	"github.com/kottzoltan/aivio/pkg/tts"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"name":     s.config.Server.Name,
		"mode":     s.config.Server.Mode,
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) handleRobots(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"robots": s.personas.List()})
}

// handleThink runs one conversational turn. A generation failure still
// carries the spoken fallback in the body so the client has something to
// say, but the status reports the upstream failure.
func (s *Server) handleThink(c *gin.Context) {
	var req dialog.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Invalidf("invalid request body"))
		return
	}

	result, err := s.orchestrator.Think(c.Request.Context(), req)
	if err != nil {
		if result.Text == "" {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"text":  result.Text,
			"robot": result.Persona.Key,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"text":  result.Text,
		"robot": result.Persona.Key,
	})
}

type speakRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId,omitempty"`
	ModelID string `json:"modelId,omitempty"`
}

func (s *Server) handleSpeak(c *gin.Context) {
	var req speakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Invalidf("invalid request body"))
		return
	}
	if s.tts == nil {
		writeError(c, apperr.Upstreamf("tts", "synthesizer not configured"))
		return
	}

	job := tts.NewRequest(req.Text)
	job.VoiceID = req.VoiceID
	job.ModelID = req.ModelID

	audio, contentType, err := s.tts.Synthesize(c.Request.Context(), job)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, audio)
}

func (s *Server) handleListen(c *gin.Context) {
	if s.stt == nil {
		writeError(c, apperr.Upstreamf("stt", "transcriber not configured"))
		return
	}

	file, err := c.FormFile("audio")
	if err != nil {
		writeError(c, apperr.Invalidf("audio file is required"))
		return
	}
	src, err := file.Open()
	if err != nil {
		writeError(c, apperr.Invalidf("audio file is not readable"))
		return
	}
	defer src.Close()

	audio, err := io.ReadAll(src)
	if err != nil {
		writeError(c, apperr.Invalidf("audio file is not readable"))
		return
	}

	text, err := s.stt.Transcribe(c.Request.Context(), audio, file.Filename)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

type callStartRequest struct {
	Robot  string `json:"robot,omitempty"`
	CallID string `json:"callId,omitempty"`
}

func (s *Server) handleCallStart(c *gin.Context) {
	var req callStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Invalidf("invalid request body"))
		return
	}

	robot := req.Robot
	if robot == "" {
		robot = constants.DEFAULT_PERSONA
	}
	p, err := s.personas.Resolve(robot)
	if err != nil {
		writeError(c, err)
		return
	}

	sess := s.sessions.Create(req.CallID, p.Key)
	c.JSON(http.StatusOK, gin.H{
		"callId": sess.ID,
		"robot":  p.Key,
		"intro":  p.Intro,
	})
}

type callEndRequest struct {
	CallID string `json:"callId"`
}

func (s *Server) handleCallEnd(c *gin.Context) {
	var req callEndRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CallID == "" {
		writeError(c, apperr.Invalidf("callId is required"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed": s.sessions.Close(req.CallID)})
}

func (s *Server) handleCMSGetRobot(c *gin.Context) {
	key := c.Param("key")
	p, err := s.personas.Resolve(key)
	if err != nil {
		writeError(c, err)
		return
	}

	response := gin.H{"robot": p}
	if override, ok := s.personas.Override(key); ok {
		response["override"] = override
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) handleCMSPutRobot(c *gin.Context) {
	var rec persona.OverrideRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		writeError(c, apperr.Invalidf("invalid request body"))
		return
	}

	resolved, err := s.personas.WriteOverride(c.Param("key"), rec)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"robot": resolved})
}
