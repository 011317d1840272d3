package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const anthropicVersion = "2023-06-01"

// Stop reasons reported by the messages endpoint.
const (
	StopEndTurn = "end_turn"
	StopToolUse = "tool_use"
)

// ChatConfig holds API settings for the Anthropic-style messages endpoint.
type ChatConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
}

// ToolDefinition is the machine-readable schema of one tool, in the shape the
// messages endpoint expects.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"input_schema"`
}

type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// ContentBlock is one element of a message. Text blocks carry Text; tool_use
// blocks carry ID, Name and Input; tool_result blocks carry ToolUseID and Content.
type ContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// Request is one model round. Tools may be nil, in which case the request
// carries no tool schemas at all and the model cannot request an invocation.
type Request struct {
	System   string
	Messages []Message
	Tools    []ToolDefinition
}

// Response is the model's reply to one round.
type Response struct {
	StopReason string         `json:"stop_reason"`
	Content    []ContentBlock `json:"content"`
}

// Text returns the first text block, or empty if the response has none.
func (r *Response) Text() string {
	for _, b := range r.Content {
		if b.Type == "text" {
			return b.Text
		}
	}
	return ""
}

// ToolUses returns the tool invocation blocks in response order.
func (r *Response) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, b := range r.Content {
		if b.Type == "tool_use" {
			uses = append(uses, b)
		}
	}
	return uses
}

// UserText builds a single-text-block user message.
func UserText(text string) Message {
	return Message{Role: "user", Content: []ContentBlock{{Type: "text", Text: text}}}
}

// Generator abstracts the messages endpoint for the orchestrator.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// AnthropicClient talks to an Anthropic-style messages API. Decoding is pinned
// to temperature 0 so identical rounds produce identical requests.
type AnthropicClient struct {
	cfg        ChatConfig
	httpClient *http.Client
}

func NewAnthropicClient(cfg ChatConfig) *AnthropicClient {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	return &AnthropicClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

func (c *AnthropicClient) Generate(ctx context.Context, r Request) (*Response, error) {
	body := map[string]interface{}{
		"model":       c.cfg.Model,
		"max_tokens":  c.cfg.MaxTokens,
		"temperature": 0,
		"messages":    r.Messages,
	}
	if r.System != "" {
		body["system"] = r.System
	}
	if len(r.Tools) > 0 {
		body["tools"] = r.Tools
		body["tool_choice"] = map[string]string{"type": "auto"}
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal model request failed: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build model request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read model response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("model response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed Response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse model json failed: %w", err)
	}
	if len(parsed.Content) == 0 {
		return nil, fmt.Errorf("empty model content")
	}
	return &parsed, nil
}
