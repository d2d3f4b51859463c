package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/K3das/orange-scribe/protocol"
)

// MessagePath is where the web server receives runtime messages.
const MessagePath = "/runtime/message"

// Client sends runtime messages to a worker served over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ protocol.Sender = (*Client)(nil)

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) SendMessage(ctx context.Context, message protocol.Message) (*protocol.Response, error) {
	body, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("marshaling message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+MessagePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &protocol.SendError{Message: MessageRuntimeUnreachable, Err: fmt.Errorf("sending message: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &protocol.SendError{Message: MessageRuntimeUnreachable, Err: fmt.Errorf("non-ok http response: [%d] %s", resp.StatusCode, resp.Status)}
	}

	var response protocol.Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, &protocol.SendError{Message: MessageRuntimeUnreachable, Err: fmt.Errorf("decoding response json: %w", err)}
	}

	return &response, nil
}
