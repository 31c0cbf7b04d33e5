package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/isomap/service-isochrone/internal/httpclient"
)

// Row is one line appended to the lead spreadsheet.
type Row struct {
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

type webhookReply struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ScriptError is returned when the Apps Script answered 200 but reported a failure.
type ScriptError struct {
	Message string
}

func (e *ScriptError) Error() string {
	return "sheets webhook reported: " + e.Message
}

// Client posts rows to a Google Apps Script web app bound to the lead spreadsheet.
type Client struct {
	webhookURL string
	http       *httpclient.Client
}

// New creates a Client for the given webhook URL.
func New(webhookURL string, hc *httpclient.Client) (*Client, error) {
	if webhookURL == "" {
		return nil, errors.New("missing Google Sheets webhook URL")
	}
	if hc == nil {
		hc = httpclient.New(10 * time.Second)
	}
	return &Client{webhookURL: webhookURL, http: hc}, nil
}

// Append adds a row. A reply carrying an "error" field counts as a failure even with status 200.
func (c *Client) Append(ctx context.Context, row Row) error {
	row.Timestamp = row.Timestamp.UTC()
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode sheets row: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build sheets request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req, "sheets")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading sheets response body: %w", err)
	}

	// The script may answer with a non-JSON page after a redirect; only an explicit
	// error field is treated as a failure.
	var reply webhookReply
	if err := json.Unmarshal(body, &reply); err == nil && reply.Error != "" {
		return &ScriptError{Message: reply.Error}
	}
	return nil
}
