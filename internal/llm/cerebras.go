package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/liorZats/Auto-sells-call-scheduler/internal/agent"
)

// systemPrompt frames every turn. The HANGUP token at the end of a closing
// reply is what the outcome classifier keys on.
const systemPrompt = "You are Ava, a friendly outbound scheduling assistant on a phone call. " +
	"Your goal is to find a day and time for a short meeting with the person you called. " +
	"Keep replies to one or two short spoken sentences. " +
	"When the conversation is over - a time was agreed, the person declined, or they want to go - " +
	"say a brief goodbye and end your reply with the single word HANGUP."

// CerebrasClient is a stateless chat-completions client. One request per
// turn; no conversation history beyond the current utterance is kept.
type CerebrasClient struct {
	HTTPClient *http.Client
	APIKey     string
	Model      string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	FinishReason string      `json:"finish_reason"`
	Message      chatMessage `json:"message"`
}

type chatCompletionsResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

func NewCerebrasClient(apiKey, model string) *CerebrasClient {
	return &CerebrasClient{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		APIKey:     apiKey,
		Model:      model,
	}
}

// Generate produces one reply for the utterance. Lead metadata is folded
// into the prompt so the model can address the person by name.
func (c *CerebrasClient) Generate(ctx context.Context, utterance string, lead agent.Lead) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("cerebras api key missing")
	}
	endpoint := "https://api.cerebras.ai/v1/chat/completions"

	system := systemPrompt
	if lead.Name != "" {
		system += fmt.Sprintf(" You are speaking with %s.", lead.Name)
	}
	messages := []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: utterance},
	}

	reqBody, _ := json.Marshal(chatCompletionsRequest{Model: c.Model, Messages: messages})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("cerebras error: status=%d body=%s", resp.StatusCode, string(b))
	}
	var cr chatCompletionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("cerebras: empty choices")
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}
