package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ffdc.sales_insights/pkg/tabular"
)

var ErrServer = errors.New("server error")

// Response mirrors the body of POST /ask. Answer is kept raw so callers
// can apply the tabular checks to whatever the server returned.
type Response struct {
	Question     string          `json:"question"`
	GeneratedSQL string          `json:"generated_sql"`
	Answer       json.RawMessage `json:"answer"`
}

// Frame is one message of the streaming endpoint.
type Frame struct {
	Type  string            `json:"type"`
	Data  string            `json:"data,omitempty"`
	Chart *tabular.BarChart `json:"chart,omitempty"`
}

type Client struct {
	endpoint string
	http     *http.Client
}

func New(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *Client) Ask(ctx context.Context, question string) (*Response, error) {
	body, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Detail string `json:"detail"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &e) != nil || e.Detail == "" {
			e.Detail = strings.TrimSpace(string(data))
		}
		return nil, fmt.Errorf("%w: %d %s", ErrServer, resp.StatusCode, e.Detail)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// StreamURL derives the websocket endpoint served next to the ask endpoint.
func StreamURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/api/ws"
	u.RawQuery = ""
	return u.String(), nil
}

// Stream sends question over the websocket endpoint and calls handle for
// every frame until the answer is done, stopped or failed.
func (c *Client) Stream(ctx context.Context, question string, handle func(Frame) error) error {
	wsURL, err := StreamURL(c.endpoint)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	var mu sync.Mutex
	send := func(msg string) error {
		mu.Lock()
		defer mu.Unlock()
		return conn.WriteJSON(map[string]string{"message": msg})
	}

	stop := context.AfterFunc(ctx, func() { send("stop") })
	defer stop()

	if err := send(question); err != nil {
		return err
	}

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			return err
		}
		if err := handle(f); err != nil {
			return err
		}
		switch f.Type {
		case "done":
			return nil
		case "stopped":
			return context.Canceled
		case "error":
			return fmt.Errorf("%w: %s", ErrServer, f.Data)
		}
	}
}
