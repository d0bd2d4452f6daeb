package stream

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/liorZats/Auto-sells-call-scheduler/internal/agent"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  8192,
	WriteBufferSize: 8192,
	// Twilio's media client does not send a browser Origin header
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler accepts media stream connections and funnels their events into the
// session manager. One read loop per connection keeps each session's events
// in arrival order.
type Handler struct {
	mgr *agent.Manager
}

// NewHandler builds the media WebSocket handler.
func NewHandler(mgr *agent.Manager) *Handler {
	return &Handler{mgr: mgr}
}

// Serve upgrades the request and processes protocol events until the stream
// stops or the socket dies.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("media ws upgrade error: %v", err)
		return
	}
	conn := NewConn(ws)
	defer conn.Close()

	sess := h.mgr.Accept(conn)
	defer h.mgr.Stop(sess)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			// transport gone; mark it closed before Stop runs so no
			// fallback audio is played into a dead socket
			conn.Close()
			log.Printf("[%s] media ws read ended: %v", sess.ID, err)
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("[%s] malformed media event, ignoring: %v", sess.ID, err)
			continue
		}

		switch env.Event {
		case "connected":
			// protocol handshake, nothing to do
		case "start":
			if env.Start == nil || env.Start.StreamSid == "" {
				log.Printf("[%s] start event without stream sid, ignoring", sess.ID)
				continue
			}
			h.mgr.Start(sess, env.Start.StreamSid, env.Start.CallSid, env.Start.CustomParameters)
		case "media":
			if env.Media == nil {
				continue
			}
			payload, err := base64.StdEncoding.DecodeString(env.Media.Payload)
			if err != nil {
				log.Printf("[%s] undecodable media payload, ignoring: %v", sess.ID, err)
				continue
			}
			h.mgr.Media(sess, payload)
		case "stop":
			// deferred Stop sees the transport still open, so the
			// silence fallback may play before the socket closes
			return
		default:
			h.mgr.Unknown(sess, env.Event)
		}
	}
}
