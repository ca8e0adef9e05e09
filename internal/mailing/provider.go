package mailing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dinelight/guestflow/internal/pkg/logger"
	"github.com/dinelight/guestflow/internal/service/flows"
)

// ProviderClient submits rendered messages to the transactional email
// provider over its REST API. It implements flows.Deliverer.
type ProviderClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewProviderClient creates a provider client. timeout bounds a single
// send attempt end to end.
func NewProviderClient(apiKey, baseURL string, timeout time.Duration) *ProviderClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ProviderClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type providerSendRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	ReplyTo string `json:"reply_to,omitempty"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type providerSendResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

// Send submits one message and returns the provider's message id. Any
// rejection or transport failure comes back as an error; the engine
// records it as a failed attempt.
func (p *ProviderClient) Send(ctx context.Context, msg flows.OutboundMessage) (string, error) {
	body, err := json.Marshal(providerSendRequest{
		To:      msg.To,
		From:    msg.From,
		ReplyTo: msg.ReplyTo,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("encode send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var parsed providerSendResponse
	if err := json.Unmarshal(raw, &parsed); err != nil && resp.StatusCode < 300 {
		return "", fmt.Errorf("decode provider response: %w", err)
	}

	if resp.StatusCode >= 300 {
		detail := parsed.Error
		if detail == "" {
			detail = string(raw)
		}
		logger.Warn("provider rejected message",
			"status", resp.StatusCode,
			"recipient", msg.To,
			"detail", detail)
		return "", fmt.Errorf("provider returned %d: %s", resp.StatusCode, detail)
	}
	if parsed.MessageID == "" {
		return "", fmt.Errorf("provider accepted without a message id")
	}
	return parsed.MessageID, nil
}
