// Package email sends conversation summaries through the Azure
// Communication Services Email REST API, authenticated with the
// connection-string access key.
package email

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soundline/voicebridge/pkg/bridge/tools"
)

const apiVersion = "2023-03-31"

// Client is a minimal ACS Email sender.
type Client struct {
	endpoint   *url.URL
	key        []byte
	sender     string
	httpClient *http.Client
	logger     *slog.Logger

	// Overridable in tests.
	now       func() time.Time
	newCaseID func() string
}

var _ tools.SummaryMailer = (*Client)(nil)

// NewClient parses an ACS connection string of the form
// "endpoint=https://...;accesskey=...".
func NewClient(connectionString, senderAddress string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var endpoint, accessKey string
	for _, part := range strings.Split(connectionString, ";") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(strings.ToLower(part), "endpoint="):
			endpoint = part[len("endpoint="):]
		case strings.HasPrefix(strings.ToLower(part), "accesskey="):
			accessKey = part[len("accesskey="):]
		}
	}
	if endpoint == "" || accessKey == "" {
		return nil, fmt.Errorf("email: connection string must contain endpoint and accesskey")
	}
	u, err := url.Parse(strings.TrimSuffix(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("email: parse endpoint: %w", err)
	}
	key, err := base64.StdEncoding.DecodeString(accessKey)
	if err != nil {
		return nil, fmt.Errorf("email: decode access key: %w", err)
	}
	return &Client{
		endpoint:   u,
		key:        key,
		sender:     senderAddress,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
		now:        time.Now,
		newCaseID:  func() string { return uuid.NewString()[:13] },
	}, nil
}

type sendRequest struct {
	SenderAddress string     `json:"senderAddress"`
	Recipients    recipients `json:"recipients"`
	Content       content    `json:"content"`
}

type recipients struct {
	To []address `json:"to"`
}

type address struct {
	Address string `json:"address"`
}

type content struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// SendSummary fires the summary email and returns without polling the
// delivery operation; callers only need the accepted operation id.
func (c *Client) SendSummary(ctx context.Context, to, name, clientID, summary string) (tools.MailReceipt, error) {
	caseID := c.newCaseID()

	html, err := summaryHTML(caseID, name, to, clientID, summary)
	if err != nil {
		return tools.MailReceipt{}, fmt.Errorf("email: render summary: %w", err)
	}
	payload, err := json.Marshal(sendRequest{
		SenderAddress: c.sender,
		Recipients:    recipients{To: []address{{Address: to}}},
		Content: content{
			Subject: "Conversation Summary " + caseID,
			HTML:    html,
		},
	})
	if err != nil {
		return tools.MailReceipt{}, fmt.Errorf("email: encode request: %w", err)
	}

	u := *c.endpoint
	u.Path = "/emails:send"
	u.RawQuery = "api-version=" + apiVersion

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return tools.MailReceipt{}, fmt.Errorf("email: build request: %w", err)
	}
	c.sign(req, payload)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return tools.MailReceipt{}, fmt.Errorf("email: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return tools.MailReceipt{}, fmt.Errorf("email: send rejected: status %d: %s", resp.StatusCode, body)
	}

	operationID := "pending"
	var accepted struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err == nil && accepted.ID != "" {
		operationID = accepted.ID
	}

	c.logger.Info("summary email accepted", "to", to, "case_id", caseID, "operation_id", operationID)
	return tools.MailReceipt{OperationID: operationID, CaseID: caseID}, nil
}

// sign applies the ACS shared-key scheme: the signed string is
// METHOD, path-and-query, then date;host;content-hash.
func (c *Client) sign(req *http.Request, body []byte) {
	sum := sha256.Sum256(body)
	contentHash := base64.StdEncoding.EncodeToString(sum[:])
	date := c.now().UTC().Format(http.TimeFormat)

	stringToSign := req.Method + "\n" +
		req.URL.RequestURI() + "\n" +
		date + ";" + req.URL.Host + ";" + contentHash

	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(stringToSign))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-ms-date", date)
	req.Header.Set("x-ms-content-sha256", contentHash)
	req.Header.Set("Authorization",
		"HMAC-SHA256 SignedHeaders=x-ms-date;host;x-ms-content-sha256&Signature="+signature)
}
