package telephony

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/liorZats/Auto-sells-call-scheduler/internal/agent"
	"github.com/liorZats/Auto-sells-call-scheduler/internal/storage"
)

type Config struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	// PublicHost is the externally reachable host Twilio calls back on,
	// e.g. "calls.example.com" (no scheme).
	PublicHost string
}

// Service places outbound calls and manages their recordings through the
// Twilio REST API.
type Service struct {
	config     Config
	storage    storage.Uploader
	client     *twilio.RestClient
	httpClient *http.Client
}

func New(cfg Config, uploader storage.Uploader) *Service {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Service{
		config:     cfg,
		storage:    uploader,
		client:     client,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WebhookURL builds the absolute https URL for a callback path.
func (s *Service) WebhookURL(path string) string {
	return fmt.Sprintf("https://%s%s", s.config.PublicHost, path)
}

// MediaStreamURL is the wss endpoint the TwiML <Stream> verb points at.
func (s *Service) MediaStreamURL() string {
	return fmt.Sprintf("wss://%s/media", s.config.PublicHost)
}

// PlaceCall dials a lead. The answered call hits the voice webhook, which
// returns the TwiML that bridges it onto the media stream. Returns the
// Twilio call SID.
func (s *Service) PlaceCall(lead agent.Lead) (string, error) {
	if s.config.FromNumber == "" {
		return "", fmt.Errorf("no outbound caller number configured")
	}
	params := &twilioApi.CreateCallParams{}
	params.SetTo(lead.Number)
	params.SetFrom(s.config.FromNumber)
	params.SetUrl(s.WebhookURL("/twilio/voice"))
	params.SetMethod("POST")
	params.SetStatusCallback(s.WebhookURL("/twilio/status"))
	params.SetStatusCallbackMethod("POST")
	params.SetStatusCallbackEvent([]string{"initiated", "ringing", "answered", "completed"})

	resp, err := s.client.Api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("create call to %s: %w", lead.Number, err)
	}
	if resp.Sid == nil {
		return "", fmt.Errorf("create call to %s: no sid in response", lead.Number)
	}
	log.Printf("[%s] outbound call placed to %s", *resp.Sid, lead.Number)
	return *resp.Sid, nil
}

// StartCallRecording begins a call-level recording with a completion
// callback so the audio can be archived afterwards.
func (s *Service) StartCallRecording(callSID string) error {
	params := &twilioApi.CreateCallRecordingParams{}
	params.SetRecordingStatusCallback(s.WebhookURL("/twilio/recording-status"))
	params.SetRecordingStatusCallbackMethod("POST")
	params.SetRecordingStatusCallbackEvent([]string{"completed"})
	params.SetRecordingChannels("dual")

	if _, err := s.client.Api.CreateCallRecording(callSID, params); err != nil {
		return fmt.Errorf("start recording for %s: %w", callSID, err)
	}
	return nil
}

// UploadRecording downloads a completed recording from Twilio and hands it
// to storage. Meant to run async from the recording-status webhook.
func (s *Service) UploadRecording(ctx context.Context, recordingURL, recordingSID string) error {
	if s.storage == nil {
		return fmt.Errorf("no storage configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordingURL+".wav", nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.config.AccountSID, s.config.AuthToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download recording %s: status %d", recordingSID, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("recording_%s_%d.wav", recordingSID, time.Now().Unix())
	if err := s.storage.Upload(filename, "audio/wav", data); err != nil {
		return err
	}
	log.Printf("recording archived: %s", filename)
	return nil
}
