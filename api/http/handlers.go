package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/twilio/twilio-go/twiml"

	"github.com/liorZats/Auto-sells-call-scheduler/internal/agent"
	"github.com/liorZats/Auto-sells-call-scheduler/internal/calls"
	"github.com/liorZats/Auto-sells-call-scheduler/internal/leads"
	"github.com/liorZats/Auto-sells-call-scheduler/internal/middleware"
)

// CallControl is what the REST surface needs from the telephony layer.
type CallControl interface {
	PlaceCall(lead agent.Lead) (string, error)
	StartCallRecording(callSID string) error
	UploadRecording(ctx context.Context, recordingURL, recordingSID string) error
	MediaStreamURL() string
}

// MediaHandler upgrades /media requests onto the conversation engine.
type MediaHandler interface {
	Serve(w http.ResponseWriter, r *http.Request)
}

type Handlers struct {
	Calls      CallControl
	Tracker    *calls.Tracker
	Media      MediaHandler
	AuthToken  string
	PublicHost string
}

func NewHandlers(cc CallControl, tracker *calls.Tracker, media MediaHandler, authToken, publicHost string) Handlers {
	return Handlers{Calls: cc, Tracker: tracker, Media: media, AuthToken: authToken, PublicHost: publicHost}
}

func (h Handlers) Register(e *echo.Echo) {
	e.Use(middleware.TwilioAuth(h.AuthToken, h.PublicHost))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	e.POST("/calls", h.placeCall)
	e.POST("/calls/import", h.importLeads)
	e.GET("/calls", h.listCalls)
	e.GET("/calls/:sid", h.getCall)

	e.POST("/twilio/voice", h.voice)
	e.POST("/twilio/status", h.callStatus)
	e.POST("/twilio/recording-status", h.recordingStatus)

	e.GET("/media", func(c echo.Context) error {
		h.Media.Serve(c.Response(), c.Request())
		return nil
	})
}

type placeCallRequest struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

type placeCallResponse struct {
	CallSID string `json:"call_sid"`
}

// placeCall dials one lead and registers it with the tracker.
func (h Handlers) placeCall(c echo.Context) error {
	var req placeCallRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Number == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "number is required"})
	}

	lead := agent.Lead{Name: req.Name, Number: req.Number}
	sid, err := h.Calls.PlaceCall(lead)
	if err != nil {
		log.Printf("place call to %s failed: %v", req.Number, err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "failed to place call"})
	}
	h.Tracker.Register(sid, lead)
	return c.JSON(http.StatusAccepted, placeCallResponse{CallSID: sid})
}

type importResult struct {
	Number  string `json:"number"`
	CallSID string `json:"call_sid,omitempty"`
	Error   string `json:"error,omitempty"`
}

// importLeads takes a CSV body (name,number per row) and dials every lead.
// One bad number does not abort the batch.
func (h Handlers) importLeads(c echo.Context) error {
	parsed, err := leads.ParseCSV(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if len(parsed) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no leads in csv"})
	}

	results := make([]importResult, 0, len(parsed))
	for _, lead := range parsed {
		sid, err := h.Calls.PlaceCall(lead)
		if err != nil {
			log.Printf("import: place call to %s failed: %v", lead.Number, err)
			results = append(results, importResult{Number: lead.Number, Error: err.Error()})
			continue
		}
		h.Tracker.Register(sid, lead)
		results = append(results, importResult{Number: lead.Number, CallSID: sid})
	}
	return c.JSON(http.StatusAccepted, results)
}

func (h Handlers) listCalls(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Tracker.List())
}

func (h Handlers) getCall(c echo.Context) error {
	rec, ok := h.Tracker.Get(c.Param("sid"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown call sid"})
	}
	return c.JSON(http.StatusOK, rec)
}

// voice answers Twilio's webhook for an answered outbound call. The TwiML
// bridges the call audio onto the media stream, tagging the stream with the
// lead so the conversation engine can personalize the greeting. A call-level
// recording is kicked off in the background.
func (h Handlers) voice(c echo.Context) error {
	params, ok := c.Get("twilioParams").(map[string]string)
	if !ok {
		return c.String(http.StatusInternalServerError, "Failed to get Twilio parameters")
	}
	callSID := params["CallSid"]
	log.Printf("[%s] voice webhook: answered by %s", callSID, params["To"])

	var lead agent.Lead
	if rec, ok := h.Tracker.Get(callSID); ok {
		lead = agent.Lead{Name: rec.LeadName, Number: rec.To}
	}

	if callSID != "" {
		go func() {
			if err := h.Calls.StartCallRecording(callSID); err != nil {
				log.Printf("[%s] start recording failed: %v", callSID, err)
			}
		}()
	}

	mediaStream := &twiml.VoiceStream{Url: h.Calls.MediaStreamURL()}
	mediaStream.InnerElements = []twiml.Element{
		&twiml.VoiceParameter{Name: "lead_name", Value: lead.Name},
		&twiml.VoiceParameter{Name: "lead_number", Value: lead.Number},
	}
	connect := &twiml.VoiceConnect{}
	connect.InnerElements = []twiml.Element{mediaStream}

	response, err := twiml.Voice([]twiml.Element{connect})
	if err != nil {
		return c.String(http.StatusInternalServerError, "failed to build TwiML")
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml")
	return c.String(http.StatusOK, response)
}

// callStatus records Twilio call lifecycle transitions for the poll surface.
func (h Handlers) callStatus(c echo.Context) error {
	params, ok := c.Get("twilioParams").(map[string]string)
	if !ok {
		return c.String(http.StatusInternalServerError, "Failed to get Twilio parameters")
	}
	callSID := params["CallSid"]
	status := params["CallStatus"]
	log.Printf("[%s] call status: %s", callSID, status)
	if callSID != "" && status != "" {
		h.Tracker.SetStatus(callSID, status)
	}
	return c.String(http.StatusOK, "OK")
}

// recordingStatus archives completed recordings asynchronously.
func (h Handlers) recordingStatus(c echo.Context) error {
	params, ok := c.Get("twilioParams").(map[string]string)
	if !ok {
		return c.String(http.StatusInternalServerError, "Failed to get Twilio parameters")
	}
	status := params["RecordingStatus"]
	recordingURL := params["RecordingUrl"]
	recordingSID := params["RecordingSid"]
	log.Printf("recording status: sid=%s status=%s", recordingSID, status)

	switch status {
	case "completed":
		if recordingURL != "" {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := h.Calls.UploadRecording(ctx, recordingURL, recordingSID); err != nil {
					log.Printf("upload recording %s failed: %v", recordingSID, err)
				}
			}()
		}
	case "failed", "absent":
		log.Printf("recording %s unavailable: status=%s", recordingSID, status)
	}
	return c.String(http.StatusOK, "OK")
}
