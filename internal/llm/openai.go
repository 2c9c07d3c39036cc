package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"

	"github.com/joestump/hookline/internal/apperr"
	"github.com/joestump/hookline/internal/config"
)

const (
	defaultOpenAIModel             = string(openai.ChatModelGPT4oMiniSearchPreview)
	defaultSearchContextSize       = "medium"
	finishReasonContentFilter      = "content_filter"
	errOpenAIStreamEndedUnfinished = "stream ended before the model finished its answer"
)

type openaiGenerator struct {
	client            openai.Client
	model             string
	searchContextSize string
	timeout           time.Duration
}

func newOpenAIGenerator(cfg *config.Config) *openaiGenerator {
	model := cfg.LLM.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	size := cfg.LLM.SearchContextSize
	if size == "" {
		size = defaultSearchContextSize
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.LLM.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.LLM.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.LLM.BaseURL, "/")+"/"))
	}
	return &openaiGenerator{
		client:            openai.NewClient(opts...),
		model:             model,
		searchContextSize: size,
		timeout:           timeoutOrDefault(cfg.LLM.Timeout),
	}
}

func (o *openaiGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if err := req.validate(); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:          openai.ChatModel(o.model),
		Messages:       []openai.ChatCompletionMessageParamUnion{openai.UserMessage(req.Prompt)},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{OfText: ptr(shared.NewResponseFormatTextParam())},
		WebSearchOptions: openai.ChatCompletionNewParamsWebSearchOptions{
			SearchContextSize: o.searchContextSize,
		},
	}

	stream := o.client.Chat.Completions.NewStreaming(ctx, params)
	text, err := Collect(&openaiStream{ctx: ctx, s: stream})
	if err != nil {
		return "", err
	}
	return text, nil
}

// openaiStream adapts the SDK chunk stream to Stream. It tracks the finish
// reason so a connection that closes mid-answer is reported as a failure.
type openaiStream struct {
	ctx     context.Context
	s       *ssestream.Stream[openai.ChatCompletionChunk]
	cur     string
	finish  string
	refusal strings.Builder
	err     error
}

func (o *openaiStream) Next() bool {
	if o.err != nil {
		return false
	}
	for o.s.Next() {
		chunk := o.s.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.FinishReason != "" {
			o.finish = choice.FinishReason
		}
		if choice.Delta.Refusal != "" {
			o.refusal.WriteString(choice.Delta.Refusal)
		}
		if choice.Delta.Content != "" {
			o.cur = choice.Delta.Content
			return true
		}
	}
	o.err = o.terminalErr()
	return false
}

func (o *openaiStream) terminalErr() error {
	if err := o.s.Err(); err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return classify(o.ctx, "openai stream", apiErr.StatusCode, err)
		}
		return classify(o.ctx, "openai stream", 0, err)
	}
	switch {
	case o.refusal.Len() > 0:
		return apperr.Generation("openai stream", "the AI service declined to answer: "+o.refusal.String(), nil)
	case o.finish == finishReasonContentFilter:
		return apperr.Generation("openai stream", "the response was blocked by the content filter", nil)
	case o.finish == "":
		return apperr.Generation("openai stream", errOpenAIStreamEndedUnfinished, nil)
	}
	return nil
}

func (o *openaiStream) Fragment() string { return o.cur }
func (o *openaiStream) Err() error       { return o.err }
func (o *openaiStream) Close() error     { return o.s.Close() }

func ptr[T any](v T) *T { return &v }
