package server

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kottzoltan/aivio/pkg/constants"
	"github.com/kottzoltan/aivio/pkg/dialog"
	"github.com/kottzoltan/aivio/pkg/logger"
	"github.com/kottzoltan/aivio/pkg/tts"
	"go.uber.org/zap"
)

const (
	wsReadDeadline = 120 * time.Second
	wsPingInterval = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsWriter serializes frame writes. The read loop and the ping goroutine
// share one connection and gorilla allows a single concurrent writer.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) write(messageType int, payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(messageType, payload)
}

// wsControl is every text-frame message on the audio channel, both ways.
// Binary frames carry raw audio and have no envelope.
type wsControl struct {
	Type   string `json:"type"`
	Robot  string `json:"robot,omitempty"`
	CallID string `json:"callId,omitempty"`

	// server -> client fields
	Intro    string `json:"intro,omitempty"`
	UserText string `json:"userText,omitempty"`
	Text     string `json:"text,omitempty"`
	Message  string `json:"message,omitempty"`
}

// handleAudioSocket drives one voice loop per connection: a hello handshake
// binds the connection to a call session, binary frames buffer caller audio,
// turn_end runs listen -> think -> reply and streams the spoken answer back.
func (s *Server) handleAudioSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		return nil
	})

	writer := &wsWriter{conn: conn}

	done := make(chan struct{})
	defer close(done)
	go pingLoop(writer, done)

	var (
		callID string
		robot  string
		buffer bytes.Buffer
	)

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read failed", zap.String("callId", callID), zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsReadDeadline))

		if msgType == websocket.BinaryMessage {
			buffer.Write(payload)
			continue
		}

		var msg wsControl
		if err := sonic.Unmarshal(payload, &msg); err != nil {
			writeControl(writer, wsControl{Type: "error", Message: "invalid control message"})
			continue
		}

		switch msg.Type {
		case "hello":
			callID, robot = s.wsHello(writer, msg)
		case "turn_end":
			if callID == "" {
				writeControl(writer, wsControl{Type: "error", Message: "hello required first"})
				buffer.Reset()
				continue
			}
			audio := make([]byte, buffer.Len())
			copy(audio, buffer.Bytes())
			buffer.Reset()
			s.wsTurn(c, writer, callID, robot, audio)
		case "bye":
			if callID != "" {
				s.sessions.Close(callID)
			}
			writeControl(writer, wsControl{Type: "bye_ack", CallID: callID})
			return
		default:
			writeControl(writer, wsControl{Type: "error", Message: "unknown message type: " + msg.Type})
		}
	}
}

// wsHello binds the connection to a session, creating one when the client
// has no call id yet.
func (s *Server) wsHello(writer *wsWriter, msg wsControl) (callID, robot string) {
	if msg.CallID != "" {
		if sess, ok := s.sessions.Get(msg.CallID); ok {
			p, err := s.personas.Resolve(sess.PersonaKey)
			if err == nil {
				writeControl(writer, wsControl{Type: "hello_ack", CallID: sess.ID, Robot: p.Key, Intro: p.Intro})
				return sess.ID, p.Key
			}
		}
	}

	key := msg.Robot
	if key == "" {
		key = constants.DEFAULT_PERSONA
	}
	p, err := s.personas.Resolve(key)
	if err != nil {
		writeControl(writer, wsControl{Type: "error", Message: "unknown robot: " + key})
		return "", ""
	}

	sess := s.sessions.Create(msg.CallID, p.Key)
	writeControl(writer, wsControl{Type: "hello_ack", CallID: sess.ID, Robot: p.Key, Intro: p.Intro})
	return sess.ID, p.Key
}

// wsTurn runs one full turn over the buffered audio.
func (s *Server) wsTurn(c *gin.Context, writer *wsWriter, callID, robot string, audio []byte) {
	if len(audio) == 0 {
		writeControl(writer, wsControl{Type: "error", Message: "no audio buffered"})
		return
	}
	if s.stt == nil {
		writeControl(writer, wsControl{Type: "error", Message: "transcription unavailable"})
		return
	}

	ctx := c.Request.Context()

	userText, err := s.stt.Transcribe(ctx, audio, "turn.webm")
	if err != nil {
		logger.Error("websocket transcription failed", zap.String("callId", callID), zap.Error(err))
		writeControl(writer, wsControl{Type: "error", Message: "transcription failed"})
		return
	}
	if userText == "" {
		writeControl(writer, wsControl{Type: "reply", CallID: callID, Robot: robot, UserText: "", Text: ""})
		return
	}

	result, err := s.orchestrator.Think(ctx, dialog.Request{
		Text:   userText,
		Robot:  robot,
		CallID: callID,
	})
	if err != nil && result.Text == "" {
		writeControl(writer, wsControl{Type: "error", Message: "reply generation failed"})
		return
	}

	writeControl(writer, wsControl{
		Type:     "reply",
		CallID:   callID,
		Robot:    robot,
		UserText: userText,
		Text:     result.Text,
	})

	if s.tts == nil {
		return
	}
	replyAudio, _, err := s.tts.Synthesize(ctx, tts.NewRequest(result.Text))
	if err != nil {
		logger.Error("websocket synthesis failed", zap.String("callId", callID), zap.Error(err))
		return
	}
	if err := writer.write(websocket.BinaryMessage, replyAudio); err != nil {
		logger.Warn("websocket audio write failed", zap.String("callId", callID), zap.Error(err))
	}
}

func writeControl(writer *wsWriter, msg wsControl) {
	payload, err := sonic.Marshal(msg)
	if err != nil {
		return
	}
	if err := writer.write(websocket.TextMessage, payload); err != nil {
		logger.Warn("websocket control write failed", zap.Error(err))
	}
}

func pingLoop(writer *wsWriter, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := writer.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
