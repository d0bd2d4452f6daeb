package stream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/liorZats/Auto-sells-call-scheduler/internal/agent"
	"github.com/liorZats/Auto-sells-call-scheduler/internal/media"
)

type stubRecognizer struct {
	mu     sync.Mutex
	chunks int
	finals chan string
}

func (s *stubRecognizer) Connect() error { return nil }
func (s *stubRecognizer) SendPCM(pcm []int16) error {
	s.mu.Lock()
	s.chunks++
	s.mu.Unlock()
	return nil
}
func (s *stubRecognizer) Finals() <-chan string { return s.finals }
func (s *stubRecognizer) Close() error          { close(s.finals); return nil }

func (s *stubRecognizer) chunkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks
}

type stubLLM struct{}

func (stubLLM) Generate(ctx context.Context, utterance string, lead agent.Lead) (string, error) {
	return "Hello.", nil
}

type stubTTS struct{}

func (stubTTS) Synthesize(ctx context.Context, text string) ([]int16, error) {
	return make([]int16, media.FrameSize), nil
}

func dialTestHandler(t *testing.T, rec agent.Recognizer) (*websocket.Conn, func()) {
	t.Helper()
	coord := agent.NewCoordinator(stubLLM{}, stubTTS{}, nil)
	mgr := agent.NewManager(coord, func() agent.Recognizer { return rec })
	srv := httptest.NewServer(http.HandlerFunc(NewHandler(mgr).Serve))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	return ws, func() { _ = ws.Close(); srv.Close() }
}

func sendEvent(t *testing.T, ws *websocket.Conn, v interface{}) {
	t.Helper()
	if err := ws.WriteJSON(v); err != nil {
		t.Fatalf("write event: %v", err)
	}
}

func TestServe_StartMediaOutbound(t *testing.T) {
	rec := &stubRecognizer{finals: make(chan string, 1)}
	ws, cleanup := dialTestHandler(t, rec)
	defer cleanup()

	sendEvent(t, ws, map[string]interface{}{"event": "connected", "protocol": "Call"})
	sendEvent(t, ws, map[string]interface{}{
		"event": "start",
		"start": map[string]interface{}{
			"streamSid":        "MZ42",
			"callSid":          "CA42",
			"customParameters": map[string]string{"lead_name": "Dana"},
		},
	})

	// the greeting turn must arrive as a media frame tagged with the stream sid
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("expected greeting frame: %v", err)
	}
	var out struct {
		Event     string `json:"event"`
		StreamSid string `json:"streamSid"`
		Media     struct {
			Payload string `json:"payload"`
		} `json:"media"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal outbound: %v", err)
	}
	if out.Event != "media" || out.StreamSid != "MZ42" {
		t.Fatalf("unexpected outbound frame: %+v", out)
	}
	raw, err := base64.StdEncoding.DecodeString(out.Media.Payload)
	if err != nil {
		t.Fatalf("payload not base64: %v", err)
	}
	if len(raw) != media.FrameSize {
		t.Fatalf("expected %d-byte frame, got %d", media.FrameSize, len(raw))
	}

	// inbound media reaches the recognizer
	payload := base64.StdEncoding.EncodeToString(make([]byte, media.FrameSize))
	sendEvent(t, ws, map[string]interface{}{
		"event": "media",
		"media": map[string]string{"payload": payload},
	})
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && rec.chunkCount() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if rec.chunkCount() == 0 {
		t.Fatalf("expected media forwarded to recognizer")
	}
}

func TestServe_MalformedEventsIgnored(t *testing.T) {
	rec := &stubRecognizer{finals: make(chan string, 1)}
	ws, cleanup := dialTestHandler(t, rec)
	defer cleanup()

	// garbage, unknown event types and media before start must all be survivable
	_ = ws.WriteMessage(websocket.TextMessage, []byte("not-json"))
	sendEvent(t, ws, map[string]interface{}{"event": "mark"})
	sendEvent(t, ws, map[string]interface{}{"event": "media", "media": map[string]string{"payload": "!!!"}})
	sendEvent(t, ws, map[string]interface{}{"event": "start", "start": map[string]interface{}{"streamSid": "MZ9", "callSid": "CA9"}})

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := ws.ReadMessage(); err != nil {
		t.Fatalf("handler died on malformed input: %v", err)
	}
}

func TestConn_SendFrameAfterClose(t *testing.T) {
	c := &Conn{}
	c.closed.Store(true)
	if err := c.SendFrame("MZ1", []byte{1, 2}); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if c.Open() {
		t.Fatalf("closed conn must not report open")
	}
}
