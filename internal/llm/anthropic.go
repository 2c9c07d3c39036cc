package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/joestump/hookline/internal/apperr"
	"github.com/joestump/hookline/internal/config"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	defaultAnthropicModel   = "claude-haiku-4-5-20251001"
	anthropicMaxTokens      = 1024
	anthropicWebSearchUses  = 5
)

type anthropicGenerator struct {
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	client  *http.Client
}

func newAnthropicGenerator(cfg *config.Config) *anthropicGenerator {
	model := cfg.LLM.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	baseURL := cfg.LLM.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	return &anthropicGenerator{
		apiKey:  cfg.LLM.APIKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeoutOrDefault(cfg.LLM.Timeout),
		client:  &http.Client{},
	}
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Stream    bool               `json:"stream"`
	Messages  []anthropicMessage `json:"messages"`
	Tools     []anthropicTool    `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicTool struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	MaxUses int    `json:"max_uses,omitempty"`
}

// anthropicEvent covers the fields used from every streamed event type.
type anthropicEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type       string `json:"type"`
		Text       string `json:"text"`
		StopReason string `json:"stop_reason"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *anthropicGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if err := req.validate(); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	body := anthropicRequest{
		Model:     a.model,
		MaxTokens: anthropicMaxTokens,
		Stream:    true,
		Messages:  []anthropicMessage{{Role: "user", Content: req.Prompt}},
		Tools:     []anthropicTool{{Type: "web_search_20250305", Name: "web_search", MaxUses: anthropicWebSearchUses}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", apperr.Generation("anthropic request", "marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", apperr.Generation("anthropic request", "create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", classify(ctx, "anthropic request", 0, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", classify(ctx, "anthropic request", resp.StatusCode,
			fmt.Errorf("anthropic API returned %d: %s", resp.StatusCode, bytes.TrimSpace(respBody)))
	}

	return Collect(&anthropicStream{ctx: ctx, body: resp.Body, sse: newSSEReader(resp.Body)})
}

// anthropicStream turns Messages API stream events into text fragments. Only
// text_delta events carry answer text; web search tool blocks are skipped.
type anthropicStream struct {
	ctx        context.Context
	body       io.ReadCloser
	sse        *sseReader
	cur        string
	stopReason string
	done       bool
	err        error
}

func (a *anthropicStream) Next() bool {
	if a.err != nil || a.done {
		return false
	}
	for {
		_, data, err := a.sse.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				a.err = apperr.Generation("anthropic stream", "stream ended before message_stop", nil)
			} else {
				a.err = classify(a.ctx, "anthropic stream", 0, err)
			}
			return false
		}

		var ev anthropicEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			a.err = apperr.Generation("anthropic stream", "decode event", err)
			return false
		}

		switch ev.Type {
		case "content_block_delta":
			if ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
				a.cur = ev.Delta.Text
				return true
			}
		case "message_delta":
			if ev.Delta.StopReason != "" {
				a.stopReason = ev.Delta.StopReason
			}
		case "message_stop":
			a.done = true
			if a.stopReason == "refusal" {
				a.err = apperr.Generation("anthropic stream", "the AI service declined to answer", nil)
			}
			return false
		case "error":
			status := 0
			if ev.Error.Type == "authentication_error" || ev.Error.Type == "permission_error" {
				status = http.StatusUnauthorized
			}
			a.err = classify(a.ctx, "anthropic stream", status,
				fmt.Errorf("%s: %s", ev.Error.Type, ev.Error.Message))
			return false
		}
	}
}

func (a *anthropicStream) Fragment() string { return a.cur }
func (a *anthropicStream) Err() error       { return a.err }
func (a *anthropicStream) Close() error     { return a.body.Close() }
