package telephony

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/liorZats/Auto-sells-call-scheduler/internal/agent"
)

type memUploader struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (m *memUploader) Upload(key, contentType string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[key] = data
	return nil
}

func TestWebhookURLs(t *testing.T) {
	s := New(Config{PublicHost: "calls.example.com"}, nil)
	if got := s.WebhookURL("/twilio/voice"); got != "https://calls.example.com/twilio/voice" {
		t.Fatalf("unexpected webhook url: %s", got)
	}
	if got := s.MediaStreamURL(); got != "wss://calls.example.com/media" {
		t.Fatalf("unexpected media url: %s", got)
	}
}

func TestPlaceCall_NoFromNumber(t *testing.T) {
	s := New(Config{AccountSID: "AC", AuthToken: "tok"}, nil)
	if _, err := s.PlaceCall(agent.Lead{Number: "+15550001111"}); err == nil {
		t.Fatalf("expected error without a caller number")
	}
}

func TestUploadRecording_NoStorage(t *testing.T) {
	s := New(Config{}, nil)
	if err := s.UploadRecording(context.Background(), "https://api.twilio.example/rec/RE1", "RE1"); err == nil {
		t.Fatalf("expected error without storage")
	}
}

func TestUploadRecording_DownloadAndStore(t *testing.T) {
	wav := []byte{'R', 'I', 'F', 'F', 1, 2, 3, 4}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "AC" || pass != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write(wav)
	}))
	defer srv.Close()

	up := &memUploader{}
	s := New(Config{AccountSID: "AC", AuthToken: "tok"}, up)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.UploadRecording(ctx, srv.URL+"/rec/RE1", "RE1"); err != nil {
		t.Fatalf("upload: %v", err)
	}

	up.mu.Lock()
	defer up.mu.Unlock()
	if len(up.files) != 1 {
		t.Fatalf("expected one stored file, got %d", len(up.files))
	}
	for name, data := range up.files {
		if len(data) != len(wav) {
			t.Fatalf("stored %d bytes, want %d", len(data), len(wav))
		}
		if name == "" {
			t.Fatalf("stored file has empty name")
		}
	}
}

func TestUploadRecording_DownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := New(Config{AccountSID: "AC", AuthToken: "tok"}, &memUploader{})
	if err := s.UploadRecording(context.Background(), srv.URL+"/rec/RE1", "RE1"); err == nil {
		t.Fatalf("expected error on non-200 download")
	}
}
