// Package stream implements the Twilio Media Streams side of a call: the
// WebSocket protocol events coming in and the paced media frames going out.
package stream

// envelope is the wire form of every Media Streams event. Twilio sends
// connected, start, media and stop; anything else is ignored with a warning.
type envelope struct {
	Event          string        `json:"event"`
	SequenceNumber string        `json:"sequenceNumber,omitempty"`
	StreamSid      string        `json:"streamSid,omitempty"`
	Start          *startPayload `json:"start,omitempty"`
	Media          *mediaPayload `json:"media,omitempty"`
}

type startPayload struct {
	AccountSid       string            `json:"accountSid"`
	CallSid          string            `json:"callSid"`
	StreamSid        string            `json:"streamSid"`
	Tracks           []string          `json:"tracks"`
	MediaFormat      mediaFormat       `json:"mediaFormat"`
	CustomParameters map[string]string `json:"customParameters"`
}

type mediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

type mediaPayload struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

// outboundMedia is the only message we send: one μ-law frame, base64 encoded,
// tagged with the stream SID.
type outboundMedia struct {
	Event     string          `json:"event"`
	StreamSid string          `json:"streamSid"`
	Media     outboundPayload `json:"media"`
}

type outboundPayload struct {
	Payload string `json:"payload"`
}
