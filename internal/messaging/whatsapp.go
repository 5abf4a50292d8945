// Package messaging sends WhatsApp messages through the Twilio REST API
// and holds the user-facing Spanish reply templates.
package messaging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// maxMediaSize bounds receipt downloads; Twilio caps WhatsApp media at 5 MB.
const maxMediaSize = 5 << 20

// TwilioClient sends WhatsApp messages and downloads inbound media.
type TwilioClient struct {
	accountSID string
	authToken  string
	from       string
	apiBase    string
	http       *http.Client
}

// NewTwilioClient builds a client for one Twilio account. from is the
// sending WhatsApp number, with or without the "whatsapp:" prefix.
func NewTwilioClient(accountSID, authToken, from string) *TwilioClient {
	if !strings.HasPrefix(from, "whatsapp:") {
		from = "whatsapp:" + from
	}
	return &TwilioClient{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		apiBase:    twilioAPIBase,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

// SetAPIBase points the client at a different API host. Used by tests.
func (c *TwilioClient) SetAPIBase(base string) {
	c.apiBase = strings.TrimRight(base, "/")
}

// Send delivers a WhatsApp message to the given phone number.
func (c *TwilioClient) Send(ctx context.Context, to, body string) error {
	if !strings.HasPrefix(to, "whatsapp:") {
		to = "whatsapp:" + to
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.apiBase, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send message: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	slog.InfoContext(ctx, "WhatsApp message sent", "to", to, "length", len(body))
	return nil
}

// DownloadMedia fetches inbound media (receipt images) from Twilio's CDN.
// Media URLs require the account's basic auth credentials.
func (c *TwilioClient) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build media request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download media: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaSize+1))
	if err != nil {
		return nil, fmt.Errorf("read media body: %w", err)
	}
	if len(data) > maxMediaSize {
		return nil, fmt.Errorf("media exceeds %d bytes", maxMediaSize)
	}
	return data, nil
}

// LogSender is a Sender that only logs. Used when Twilio credentials are
// not configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, body string) error {
	slog.InfoContext(ctx, "Outbound message (messaging disabled)", "to", to, "body", body)
	return nil
}
