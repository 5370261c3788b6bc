package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// StdioProxy forwards newline-delimited JSON-RPC from stdin to a
// stance-server /mcp endpoint and writes the replies to stdout.
type StdioProxy struct {
	client *resty.Client
}

// NewStdioProxy creates a proxy for the server at serverURL.
func NewStdioProxy(serverURL string, timeout time.Duration) *StdioProxy {
	client := resty.New().
		SetBaseURL(strings.TrimRight(serverURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json, text/event-stream")
	return &StdioProxy{client: client}
}

// RunWithIO reads messages from r until EOF or ctx ends. Transport failures
// are reported to the caller as JSON-RPC errors on the request's id.
func (p *StdioProxy) RunWithIO(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Allow large messages (up to 10MB)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		reply, err := p.forward(ctx, line)
		if err != nil {
			reply = jsonRPCError(extractID(line), -32000, err.Error())
		}
		if len(reply) == 0 {
			// notifications get no reply
			continue
		}
		if _, err := w.Write(append(reply, '\n')); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (p *StdioProxy) forward(ctx context.Context, body []byte) ([]byte, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/mcp")
	if err != nil {
		return nil, fmt.Errorf("server request failed: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusAccepted:
		return nil, nil
	case resp.IsError():
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	if strings.HasPrefix(resp.Header().Get("Content-Type"), "text/event-stream") {
		return lastEventData(resp.Body()), nil
	}
	return bytes.TrimSpace(resp.Body()), nil
}

// lastEventData returns the data of the final event in an SSE body, which
// carries the JSON-RPC response.
func lastEventData(body []byte) []byte {
	var last []byte
	for _, line := range bytes.Split(body, []byte("\n")) {
		if data, ok := bytes.CutPrefix(bytes.TrimRight(line, "\r"), []byte("data:")); ok {
			last = bytes.TrimSpace(data)
		}
	}
	return last
}

// extractID pulls the "id" field from a JSON-RPC request for error responses.
func extractID(msg []byte) json.RawMessage {
	var req struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(msg, &req); err != nil || req.ID == nil {
		return json.RawMessage("null")
	}
	return req.ID
}

func jsonRPCError(id json.RawMessage, code int, message string) []byte {
	data, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
	return data
}
