package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/netutil"
	"github.com/m3rciful/leadbot/core/outbound"
)

// APIError is a non-2xx answer from the Cloud API.
type APIError struct {
	HTTPStatus int
	APICode    int
	Subcode    int
	Type       string
	Message    string
	TraceID    string
}

func (e *APIError) Error() string {
	if e.APICode != 0 {
		return fmt.Sprintf("whatsapp: api error %d (http %d): %s", e.APICode, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("whatsapp: http %d: %s", e.HTTPStatus, e.Message)
}

// StatusCode returns the HTTP status, which drives retry decisions.
func (e *APIError) StatusCode() int { return e.HTTPStatus }

// Code returns a stable identifier for logs.
func (e *APIError) Code() string {
	if e.APICode != 0 {
		return "WA_" + strconv.Itoa(e.APICode)
	}
	return "HTTP_" + strconv.Itoa(e.HTTPStatus)
}

// Client sends messages through the Cloud API. It implements outbound.Transport.
type Client struct {
	http     *http.Client
	endpoint string
	token    string
}

// NewClient builds a client from cfg. A nil httpClient selects a tuned default.
func NewClient(cfg config.WhatsAppConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = netutil.BuildHTTPClient(netutil.ClientOptions{
			Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
			MaxRetries: 1,
		})
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		http:     httpClient,
		endpoint: fmt.Sprintf("%s/%s/%s/messages", base, cfg.APIVersion, cfg.PhoneNumberID),
		token:    cfg.Token,
	}
}

type textMessage struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type interactiveMessage struct {
	Type string `json:"type"`
	Body struct {
		Text string `json:"text"`
	} `json:"body"`
	Action struct {
		Buttons []replyButton `json:"buttons"`
	} `json:"action"`
}

type replyButton struct {
	Type  string `json:"type"`
	Reply Reply  `json:"reply"`
}

type sendRequest struct {
	MessagingProduct string              `json:"messaging_product"`
	RecipientType    string              `json:"recipient_type"`
	To               string              `json:"to"`
	Type             string              `json:"type"`
	Text             *textMessage        `json:"text,omitempty"`
	Interactive      *interactiveMessage `json:"interactive,omitempty"`
}

// SendText implements outbound.Transport.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	return c.post(ctx, sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             &textMessage{Body: body},
	})
}

// SendButtons implements outbound.Transport with an interactive reply-button message.
func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []outbound.Button) error {
	im := &interactiveMessage{Type: "button"}
	im.Body.Text = body
	for _, b := range buttons {
		im.Action.Buttons = append(im.Action.Buttons, replyButton{Type: "reply", Reply: Reply{ID: b.ID, Title: b.Title}})
	}
	return c.post(ctx, sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "interactive",
		Interactive:      im,
	})
}

func (c *Client) post(ctx context.Context, msg sendRequest) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("whatsapp: encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decodeAPIError(resp)
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Error struct {
			Message   string `json:"message"`
			Type      string `json:"type"`
			Code      int    `json:"code"`
			Subcode   int    `json:"error_subcode"`
			FBTraceID string `json:"fbtrace_id"`
		} `json:"error"`
	}
	apiErr := &APIError{HTTPStatus: resp.StatusCode}
	if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
		apiErr.APICode = body.Error.Code
		apiErr.Subcode = body.Error.Subcode
		apiErr.Type = body.Error.Type
		apiErr.Message = body.Error.Message
		apiErr.TraceID = body.Error.FBTraceID
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}
