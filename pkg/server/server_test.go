package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kottzoltan/aivio/pkg/apperr"
	"github.com/kottzoltan/aivio/pkg/config"
	"github.com/kottzoltan/aivio/pkg/constants"
	"github.com/kottzoltan/aivio/pkg/dialog"
	"github.com/kottzoltan/aivio/pkg/llm"
	"github.com/kottzoltan/aivio/pkg/persona"
	"github.com/kottzoltan/aivio/pkg/session"
	"github.com/kottzoltan/aivio/pkg/tts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGenerator struct {
	reply string
	err   error
}

func (g *stubGenerator) Reply(ctx context.Context, instruction string, history []llm.Message, userText string) (string, error) {
	return g.reply, g.err
}

type stubSynthesizer struct {
	audio []byte
	err   error
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, req tts.Request) ([]byte, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return s.audio, "audio/mpeg", nil
}

type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return s.text, s.err
}

type testEnv struct {
	server   *Server
	sessions *session.Registry
}

func newTestServer(t *testing.T, gen dialog.Generator, synth *stubSynthesizer, trans *stubTranscriber) *testEnv {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Name = "aivio-test"
	cfg.Server.Mode = "test"

	personas := persona.NewRegistry(nil)
	sessions := session.NewRegistry()
	orchestrator := dialog.NewOrchestrator(personas, sessions, gen, nil, nil, 10)

	var s *Server
	if synth != nil && trans != nil {
		s = NewServer(cfg, personas, sessions, orchestrator, synth, trans)
	} else {
		s = NewServer(cfg, personas, sessions, orchestrator, nil, nil)
	}
	return &testEnv{server: s, sessions: sessions}
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	env := newTestServer(t, &stubGenerator{reply: "ok"}, nil, nil)
	w := doJSON(t, env.server, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "aivio-test", body["name"])
}

func TestRobotsList(t *testing.T) {
	env := newTestServer(t, &stubGenerator{reply: "ok"}, nil, nil)
	w := doJSON(t, env.server, http.MethodGet, "/robots", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Robots []persona.Summary `json:"robots"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Robots, 6)
	assert.Equal(t, constants.PERSONA_OUTBOUND_SALES, body.Robots[0].Key)
	for _, r := range body.Robots {
		assert.NotEmpty(t, r.Title)
		assert.NotEmpty(t, r.Intro)
	}
}

func TestThinkEndToEnd(t *testing.T) {
	env := newTestServer(t, &stubGenerator{reply: "stub-reply"}, nil, nil)
	w := doJSON(t, env.server, http.MethodPost, "/think", map[string]string{
		"text":  "Szia!",
		"robot": constants.PERSONA_DEMO,
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "stub-reply", body["text"])
	assert.Equal(t, constants.PERSONA_DEMO, body["robot"])
}

func TestThinkEmptyText(t *testing.T) {
	env := newTestServer(t, &stubGenerator{reply: "never"}, nil, nil)
	w := doJSON(t, env.server, http.MethodPost, "/think", map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestThinkUnknownRobot(t *testing.T) {
	env := newTestServer(t, &stubGenerator{reply: "never"}, nil, nil)
	w := doJSON(t, env.server, http.MethodPost, "/think", map[string]string{
		"text":  "Szia",
		"robot": "nincs_ilyen",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestThinkFallbackOnGenerationFailure(t *testing.T) {
	env := newTestServer(t, &stubGenerator{err: apperr.Upstreamf("llm", "down")}, nil, nil)
	w := doJSON(t, env.server, http.MethodPost, "/think", map[string]string{
		"text":  "Szia",
		"robot": constants.PERSONA_DEMO,
	})
	// The status reports the upstream failure, the body still carries the
	// spoken fallback. Upstream detail never reaches the client.
	require.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.Equal(t, dialog.FallbackReply, body["text"])
	assert.Equal(t, constants.PERSONA_DEMO, body["robot"])
	assert.NotContains(t, w.Body.String(), "down")
}

func TestCallStartAndEnd(t *testing.T) {
	env := newTestServer(t, &stubGenerator{reply: "ok"}, nil, nil)

	w := doJSON(t, env.server, http.MethodPost, "/call/start", map[string]string{
		"robot": constants.PERSONA_DEMO,
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	callID, _ := body["callId"].(string)
	assert.NotEmpty(t, callID)
	assert.Equal(t, constants.PERSONA_DEMO, body["robot"])
	assert.NotEmpty(t, body["intro"])
	assert.Equal(t, 1, env.sessions.Len())

	w = doJSON(t, env.server, http.MethodPost, "/call/end", map[string]string{"callId": callID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["closed"])
	assert.Equal(t, 0, env.sessions.Len())

	w = doJSON(t, env.server, http.MethodPost, "/call/end", map[string]string{"callId": callID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["closed"])
}

func TestCallStartOverwritesExisting(t *testing.T) {
	env := newTestServer(t, &stubGenerator{reply: "ok"}, nil, nil)

	first := env.sessions.Create("call-x", constants.PERSONA_DEMO)
	first.AppendTurn(llm.RoleUser, "régi")

	w := doJSON(t, env.server, http.MethodPost, "/call/start", map[string]string{
		"robot":  constants.PERSONA_SUPPORT,
		"callId": "call-x",
	})
	require.Equal(t, http.StatusOK, w.Code)

	sess, ok := env.sessions.Get("call-x")
	require.True(t, ok)
	assert.Equal(t, constants.PERSONA_SUPPORT, sess.PersonaKey)
	assert.Equal(t, 0, sess.HistoryLen())
	assert.Equal(t, 1, env.sessions.Len())
}

func TestCallStartUnknownRobot(t *testing.T) {
	env := newTestServer(t, &stubGenerator{reply: "ok"}, nil, nil)
	w := doJSON(t, env.server, http.MethodPost, "/call/start", map[string]string{"robot": "nincs"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCallEndMissingID(t *testing.T) {
	env := newTestServer(t, &stubGenerator{reply: "ok"}, nil, nil)
	w := doJSON(t, env.server, http.MethodPost, "/call/end", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCMSGetAndPut(t *testing.T) {
	env := newTestServer(t, &stubGenerator{reply: "ok"}, nil, nil)

	w := doJSON(t, env.server, http.MethodGet, "/api/cms/robots/"+constants.PERSONA_DEMO, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.Contains(t, body, "robot")
	assert.NotContains(t, body, "override")

	w = doJSON(t, env.server, http.MethodPut, "/api/cms/robots/"+constants.PERSONA_DEMO, map[string]string{
		"title": "Átnevezett demo",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var updated struct {
		Robot persona.Persona `json:"robot"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Átnevezett demo", updated.Robot.Title)

	w = doJSON(t, env.server, http.MethodGet, "/api/cms/robots/"+constants.PERSONA_DEMO, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "override")
}

func TestCMSUnknownRobot(t *testing.T) {
	env := newTestServer(t, &stubGenerator{reply: "ok"}, nil, nil)
	w := doJSON(t, env.server, http.MethodGet, "/api/cms/robots/nincs", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, env.server, http.MethodPut, "/api/cms/robots/nincs", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSpeak(t *testing.T) {
	synth := &stubSynthesizer{audio: []byte{0xFF, 0xFB, 0x01}}
	env := newTestServer(t, &stubGenerator{reply: "ok"}, synth, &stubTranscriber{})

	w := doJSON(t, env.server, http.MethodPost, "/speak", map[string]string{"text": "Jó napot!"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, synth.audio, w.Body.Bytes())
}

func TestSpeakUpstreamFailure(t *testing.T) {
	synth := &stubSynthesizer{err: apperr.Upstreamf("tts", "quota")}
	env := newTestServer(t, &stubGenerator{reply: "ok"}, synth, &stubTranscriber{})

	w := doJSON(t, env.server, http.MethodPost, "/speak", map[string]string{"text": "Szia"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	// upstream detail must not leak
	assert.NotContains(t, w.Body.String(), "quota")
}

func TestSpeakInvalidInput(t *testing.T) {
	synth := &stubSynthesizer{err: apperr.Invalidf("text is required")}
	env := newTestServer(t, &stubGenerator{reply: "ok"}, synth, &stubTranscriber{})

	w := doJSON(t, env.server, http.MethodPost, "/speak", map[string]string{"text": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListen(t *testing.T) {
	env := newTestServer(t, &stubGenerator{reply: "ok"}, &stubSynthesizer{}, &stubTranscriber{text: "jó napot"})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("audio", "clip.webm")
	require.NoError(t, err)
	fw.Write([]byte{0x1A, 0x45, 0xDF, 0xA3})
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/listen", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jó napot", decode(t, w)["text"])
}

func TestListenMissingFile(t *testing.T) {
	env := newTestServer(t, &stubGenerator{reply: "ok"}, &stubSynthesizer{}, &stubTranscriber{})
	w := doJSON(t, env.server, http.MethodPost, "/listen", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/audio"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func readControl(t *testing.T, conn *websocket.Conn) wsControl {
	t.Helper()
	for {
		msgType, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		if msgType != websocket.TextMessage {
			continue
		}
		var msg wsControl
		require.NoError(t, json.Unmarshal(payload, &msg))
		return msg
	}
}

func TestAudioSocketLoop(t *testing.T) {
	env := newTestServer(t, &stubGenerator{reply: "stub-reply"},
		&stubSynthesizer{audio: []byte{0xFF, 0xFB}}, &stubTranscriber{text: "szia robot"})
	ts := httptest.NewServer(env.server)
	defer ts.Close()

	conn := dialWS(t, ts)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsControl{Type: "hello", Robot: constants.PERSONA_DEMO}))
	ack := readControl(t, conn)
	require.Equal(t, "hello_ack", ack.Type)
	assert.NotEmpty(t, ack.CallID)
	assert.Equal(t, constants.PERSONA_DEMO, ack.Robot)
	assert.NotEmpty(t, ack.Intro)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02, 0x03}))
	require.NoError(t, conn.WriteJSON(wsControl{Type: "turn_end"}))

	reply := readControl(t, conn)
	require.Equal(t, "reply", reply.Type)
	assert.Equal(t, "szia robot", reply.UserText)
	assert.Equal(t, "stub-reply", reply.Text)

	// the spoken answer follows as one binary frame
	msgType, audio, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, msgType)
	assert.Equal(t, []byte{0xFF, 0xFB}, audio)

	require.NoError(t, conn.WriteJSON(wsControl{Type: "bye"}))
	bye := readControl(t, conn)
	assert.Equal(t, "bye_ack", bye.Type)
	assert.Equal(t, 0, env.sessions.Len())
}

func TestAudioSocketTurnWithoutHello(t *testing.T) {
	env := newTestServer(t, &stubGenerator{reply: "ok"}, &stubSynthesizer{}, &stubTranscriber{text: "x"})
	ts := httptest.NewServer(env.server)
	defer ts.Close()

	conn := dialWS(t, ts)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsControl{Type: "turn_end"}))
	msg := readControl(t, conn)
	assert.Equal(t, "error", msg.Type)
}

func TestAudioSocketUnknownMessageType(t *testing.T) {
	env := newTestServer(t, &stubGenerator{reply: "ok"}, &stubSynthesizer{}, &stubTranscriber{})
	ts := httptest.NewServer(env.server)
	defer ts.Close()

	conn := dialWS(t, ts)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsControl{Type: "warp_drive"}))
	msg := readControl(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Message, "warp_drive")
}

func TestAudioSocketUpstreamErrorReported(t *testing.T) {
	env := newTestServer(t, &stubGenerator{reply: "ok"}, &stubSynthesizer{},
		&stubTranscriber{err: errors.New("stt down")})
	ts := httptest.NewServer(env.server)
	defer ts.Close()

	conn := dialWS(t, ts)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsControl{Type: "hello", Robot: constants.PERSONA_DEMO}))
	readControl(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0x01}))
	require.NoError(t, conn.WriteJSON(wsControl{Type: "turn_end"}))

	msg := readControl(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.NotContains(t, msg.Message, "stt down")
}

// Control frames, binary audio and pings can be written from different
// goroutines; the shared writer must keep every frame intact.
func TestWSWriterSerializesConcurrentFrames(t *testing.T) {
	upgraded := make(chan *websocket.Conn, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		upgraded <- conn
	}))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer client.Close()

	serverConn := <-upgraded
	defer serverConn.Close()
	writer := &wsWriter{conn: serverConn}

	const frames = 32
	var wg sync.WaitGroup
	for i := 0; i < frames; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if n%2 == 0 {
				writeControl(writer, wsControl{Type: "reply", Text: strconv.Itoa(n)})
			} else {
				require.NoError(t, writer.write(websocket.BinaryMessage, []byte{byte(n)}))
			}
		}(i)
	}
	wg.Wait()

	text, binary := 0, 0
	for text+binary < frames {
		msgType, payload, err := client.ReadMessage()
		require.NoError(t, err)
		switch msgType {
		case websocket.TextMessage:
			var msg wsControl
			require.NoError(t, json.Unmarshal(payload, &msg))
			assert.Equal(t, "reply", msg.Type)
			text++
		case websocket.BinaryMessage:
			require.Len(t, payload, 1)
			binary++
		}
	}
	assert.Equal(t, frames/2, text)
	assert.Equal(t, frames/2, binary)
}
