package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type MessageType string

const (
	MessageGetPrediction  MessageType = "get-prediction"
	MessageGetUserRanking MessageType = "get-user-ranking"
)

// UserRef identifies a user for a cross-process request.
type UserRef struct {
	Username string `json:"username"`
	Region   string `json:"region"`
}

// Message is a request to the privileged process.
type Message struct {
	Type        MessageType `json:"type"`
	ContestSlug string      `json:"contestSlug,omitempty"`
	Users       []UserRef   `json:"users,omitempty"`
	Username    string      `json:"username,omitempty"`
}

// Messenger is the opaque request/response channel to a privileged process.
// The channel is asynchronous and may fail; no particular transport is
// assumed.
type Messenger interface {
	Request(ctx context.Context, msg Message) (json.RawMessage, error)
}

// HTTPMessenger reaches the privileged process over a plain HTTP endpoint.
type HTTPMessenger struct {
	url  string
	http *http.Client
}

func NewHTTPMessenger(url string, timeout time.Duration) *HTTPMessenger {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPMessenger{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

func (m *HTTPMessenger) Request(ctx context.Context, msg Message) (json.RawMessage, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("message %q: unexpected status %d", msg.Type, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
