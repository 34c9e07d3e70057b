package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrDeliveryFailed is returned when the workflow endpoint answers with a
// non-2xx status or cannot be reached.
var ErrDeliveryFailed = errors.New("workflow delivery failed")

// TextMessage is the body POSTed to the text endpoint.
type TextMessage struct {
	ChatID     string `json:"chat_id"`
	Message    string `json:"message"`
	SenderType string `json:"sender_type"`
	Channel    string `json:"channel"`
	SessionID  string `json:"session_id"`
}

// MediaMessage is the body POSTed to the media endpoint.
type MediaMessage struct {
	ChatID     string `json:"chat_id"`
	MediaType  string `json:"media_type"`
	MediaURL   string `json:"media_url"`
	Caption    string `json:"caption"`
	SenderType string `json:"sender_type"`
	Channel    string `json:"channel"`
	SessionID  string `json:"session_id"`
}

// Sender delivers outbound messages to the automation workflow.
type Sender interface {
	SendText(ctx context.Context, msg TextMessage) error
	SendMedia(ctx context.Context, msg MediaMessage) error
}

// WorkflowClient posts outbound messages to the workflow webhooks.
type WorkflowClient struct {
	textURL    string
	mediaURL   string
	httpClient *http.Client
}

func NewWorkflowClient(textURL, mediaURL string, timeout time.Duration) *WorkflowClient {
	return &WorkflowClient{
		textURL:    textURL,
		mediaURL:   mediaURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *WorkflowClient) SendText(ctx context.Context, msg TextMessage) error {
	return c.post(ctx, c.textURL, msg)
}

func (c *WorkflowClient) SendMedia(ctx context.Context, msg MediaMessage) error {
	return c.post(ctx, c.mediaURL, msg)
}

func (c *WorkflowClient) post(ctx context.Context, url string, body interface{}) error {
	if url == "" {
		return fmt.Errorf("%w: webhook url is not configured", ErrDeliveryFailed)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode workflow payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("workflow webhook unreachable")
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	log.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("workflow webhook")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrDeliveryFailed, resp.StatusCode)
	}
	return nil
}
