package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tasky-bot/tasky/internal/logger"
)

// Cloud API caps a text body at 4096 bytes
const maxMessageLength = 4096

// ClientInterface defines the outbound messaging operations
type ClientInterface interface {
	SendText(ctx context.Context, to, body string) error
	DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error)
}

// Client talks to the WhatsApp Cloud API (Meta Graph API)
type Client struct {
	baseURL       string
	apiVersion    string
	phoneNumberID string
	accessToken   string
	httpClient    *http.Client
	logger        *zap.Logger
}

var _ ClientInterface = (*Client)(nil)

// NewClient creates a new Cloud API client. baseURL is the Graph API
// root without a trailing slash, e.g. https://graph.facebook.com.
func NewClient(baseURL, apiVersion, phoneNumberID, accessToken string, log *zap.Logger) *Client {
	return &Client{
		baseURL:       baseURL,
		apiVersion:    apiVersion,
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        log,
	}
}

type sendTextRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

// SendText delivers a text message to a phone number. Over-long bodies
// are truncated to the platform limit rather than rejected.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	if body == "" {
		return nil
	}
	if len(body) > maxMessageLength {
		body = body[:maxMessageLength-3] + "..."
	}

	payload := sendTextRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: body},
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.apiVersion, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to create send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("send message returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	c.logger.Info("whatsapp message sent",
		zap.String("to", logger.MaskPhone(to)),
		zap.Int("length", len(body)))

	return nil
}

type mediaResponse struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

// DownloadMedia fetches media bytes by id. The Cloud API requires two
// steps: resolve a transient download URL, then fetch it with the same
// bearer token. Returns the bytes and the reported MIME type.
func (c *Client) DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	meta, err := c.resolveMedia(ctx, mediaID)
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create media download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download media: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("media download returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read media body: %w", err)
	}

	c.logger.Debug("media downloaded",
		zap.String("media_id", mediaID),
		zap.Int("bytes", len(data)),
		zap.String("mime_type", meta.MimeType))

	return data, meta.MimeType, nil
}

func (c *Client) resolveMedia(ctx context.Context, mediaID string) (*mediaResponse, error) {
	url := fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiVersion, mediaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create media lookup request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to look up media: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media lookup returned HTTP %d", resp.StatusCode)
	}

	var meta mediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode media lookup response: %w", err)
	}
	if meta.URL == "" {
		return nil, fmt.Errorf("media lookup for %s returned no url", mediaID)
	}

	return &meta, nil
}
