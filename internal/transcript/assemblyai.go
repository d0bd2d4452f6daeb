package transcript

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// telephony audio: 8kHz mono linear16, matching the media stream after
// μ-law expansion
const sampleRate = 8000

// AssemblyAIService streams call audio to AssemblyAI and emits finalized
// utterances. Partial transcripts are not surfaced; the agent only acts on
// end-of-turn text. An end of turn with an empty transcript means the
// recognizer saw silence - it is forwarded as-is and the caller treats it as
// a no-op.
type AssemblyAIService struct {
	apiKey    string
	conn      *websocket.Conn
	finals    chan string
	audioData chan []byte
	stopCh    chan struct{}
	mu        sync.RWMutex
	connected bool
}

// AssemblyAI message types
type beginMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	ExpiresAt int64  `json:"expires_at"`
}

type turnMessage struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
	EndOfTurn  bool   `json:"end_of_turn"`
}

type terminationMessage struct {
	Type                   string  `json:"type"`
	AudioDurationSeconds   float64 `json:"audio_duration_seconds"`
	SessionDurationSeconds float64 `json:"session_duration_seconds"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// NewAssemblyAIService creates a recognition channel for one call.
func NewAssemblyAIService(apiKey string) *AssemblyAIService {
	return &AssemblyAIService{
		apiKey:    apiKey,
		finals:    make(chan string, 10),
		audioData: make(chan []byte, 1000),
		stopCh:    make(chan struct{}),
	}
}

// Finals returns the channel of finalized utterances in emission order.
func (s *AssemblyAIService) Finals() <-chan string { return s.finals }

// Connect establishes the streaming WebSocket connection.
func (s *AssemblyAIService) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}
	if s.apiKey == "" {
		return fmt.Errorf("AssemblyAI API key is empty")
	}

	params := url.Values{}
	params.Set("sample_rate", fmt.Sprintf("%d", sampleRate))
	params.Set("encoding", "pcm_s16le")
	params.Set("format_turns", "false")
	wsURL := fmt.Sprintf("wss://streaming.assemblyai.com/v3/ws?%s", params.Encode())

	headers := map[string][]string{"Authorization": {s.apiKey}}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, resp, err := dialer.Dial(wsURL, headers)
	if err != nil {
		if resp != nil {
			log.Printf("AssemblyAI connection failed with status: %d", resp.StatusCode)
		}
		return fmt.Errorf("failed to connect to AssemblyAI: %w", err)
	}

	s.conn = conn
	s.connected = true
	go s.handleMessages()
	go s.sendAudioData()
	log.Printf("connected to AssemblyAI streaming at %d Hz", sampleRate)
	return nil
}

// SendPCM queues one linear chunk for delivery. The queue drops when full;
// inbound call audio must never back up the media read loop.
func (s *AssemblyAIService) SendPCM(pcm []int16) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return fmt.Errorf("not connected to AssemblyAI")
	}
	buf := make([]byte, len(pcm)*2)
	for i, sample := range pcm {
		binary.LittleEndian.PutUint16(buf[2*i:2*i+2], uint16(sample))
	}
	select {
	case s.audioData <- buf:
	default:
		log.Println("AssemblyAI audio buffer full, dropping chunk")
	}
	return nil
}

// Close terminates the session and releases the channels.
func (s *AssemblyAIService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil
	}
	close(s.stopCh)
	if s.conn != nil {
		_ = s.conn.WriteJSON(map[string]string{"type": "Terminate"})
		_ = s.conn.Close()
	}
	s.connected = false
	s.conn = nil
	close(s.audioData)
	close(s.finals)
	log.Println("AssemblyAI connection closed")
	return nil
}

func (s *AssemblyAIService) handleMessages() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("recovered from panic in handleMessages: %v", r)
		}
	}()
	for {
		select {
		case <-s.stopCh:
			return
		default:
			s.mu.RLock()
			conn := s.conn
			s.mu.RUnlock()
			if conn == nil {
				return
			}
			_, message, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-s.stopCh:
				default:
					log.Printf("AssemblyAI read error: %v", err)
				}
				return
			}
			s.processMessage(message)
		}
	}
}

func (s *AssemblyAIService) processMessage(message []byte) {
	var baseMsg map[string]interface{}
	if err := json.Unmarshal(message, &baseMsg); err != nil {
		log.Printf("AssemblyAI: unparseable message: %v", err)
		return
	}
	msgType, ok := baseMsg["type"].(string)
	if !ok {
		log.Printf("AssemblyAI: message missing type field")
		return
	}
	switch msgType {
	case "Begin":
		var msg beginMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return
		}
		log.Printf("AssemblyAI session began: ID=%s", msg.ID)
	case "Turn":
		var msg turnMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return
		}
		if !msg.EndOfTurn {
			return
		}
		select {
		case s.finals <- msg.Transcript:
		default:
			log.Println("AssemblyAI finals backlog full, dropping utterance")
		}
	case "Termination":
		var msg terminationMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return
		}
		log.Printf("AssemblyAI session terminated after %.2fs of audio", msg.AudioDurationSeconds)
	case "Error":
		var msg errorMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return
		}
		log.Printf("AssemblyAI error: %s", msg.Error)
	default:
		log.Printf("AssemblyAI: unknown message type: %s", msgType)
	}
}

func (s *AssemblyAIService) sendAudioData() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("recovered from panic in sendAudioData: %v", r)
		}
	}()
	for {
		select {
		case <-s.stopCh:
			return
		case audioData, ok := <-s.audioData:
			if !ok {
				return
			}
			s.mu.RLock()
			conn := s.conn
			s.mu.RUnlock()
			if conn != nil {
				if err := conn.WriteMessage(websocket.BinaryMessage, audioData); err != nil {
					log.Printf("AssemblyAI audio send error: %v", err)
					return
				}
			}
		}
	}
}
