package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/crimson-sun/daybook/internal/summarize"
	"github.com/crimson-sun/daybook/internal/summarize/httpclient"
)

const (
	defaultEndpoint = "https://api.openai.com"
	defaultModel    = "gpt-4o-mini"
)

func init() {
	summarize.Register("openai", New)
}

// Summarizer calls an OpenAI-compatible chat completions endpoint.
type Summarizer struct {
	client *httpclient.Client
	model  string
}

// New builds a Summarizer from cfg. An API key is required.
func New(cfg summarize.Config) (summarize.Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	opts := []httpclient.Option{httpclient.WithBearer(cfg.APIKey)}
	if cfg.Timeout > 0 {
		opts = append(opts, httpclient.WithTimeout(cfg.Timeout))
	}
	return &Summarizer{
		client: httpclient.New(strings.TrimRight(endpoint, "/"), opts...),
		model:  model,
	}, nil
}

func (s *Summarizer) Name() string { return "openai:" + s.model }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens,omitempty"`
	Messages  []message `json:"messages"`
}

type response struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Summarize sends a system and a user message and returns the first choice.
func (s *Summarizer) Summarize(ctx context.Context, req summarize.Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = summarize.DefaultMaxTokens
	}
	msgs := make([]message, 0, 2)
	if req.System != "" {
		msgs = append(msgs, message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, message{Role: "user", Content: req.Prompt})

	var resp response
	body := request{Model: s.model, MaxTokens: maxTokens, Messages: msgs}
	if err := s.client.PostJSON(ctx, "/v1/chat/completions", body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
