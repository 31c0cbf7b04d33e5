package postmark

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/isomap/service-isochrone/internal/httpclient"
)

// DefaultBaseURL is the Postmark API endpoint.
const DefaultBaseURL = "https://api.postmarkapp.com"

// Email is a plain-text transactional message.
type Email struct {
	From          string `json:"From"`
	To            string `json:"To"`
	Subject       string `json:"Subject"`
	TextBody      string `json:"TextBody"`
	MessageStream string `json:"MessageStream,omitempty"`
}

type sendReply struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
	MessageID string `json:"MessageID"`
}

// APIError is a Postmark rejection reported in the reply body.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("postmark error %d: %s", e.Code, e.Message)
}

// Client sends email through the Postmark HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *httpclient.Client
}

// New creates a Client. The server token is required.
func New(baseURL, token string, hc *httpclient.Client) (*Client, error) {
	if token == "" {
		return nil, errors.New("missing Postmark server token")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if hc == nil {
		hc = httpclient.New(10 * time.Second)
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: hc}, nil
}

// Send delivers the email and returns the Postmark message id.
func (c *Client) Send(ctx context.Context, email Email) (string, error) {
	if email.MessageStream == "" {
		email.MessageStream = "outbound"
	}
	payload, err := json.Marshal(email)
	if err != nil {
		return "", fmt.Errorf("failed to encode postmark email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build postmark request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.token)

	resp, err := c.http.Do(req, "postmark")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var reply sendReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("error unmarshalling response from postmark: %w", err)
	}
	if reply.ErrorCode != 0 {
		return "", &APIError{Code: reply.ErrorCode, Message: reply.Message}
	}
	return reply.MessageID, nil
}
