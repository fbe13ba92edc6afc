package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/crimson-sun/daybook/internal/summarize"
	"github.com/crimson-sun/daybook/internal/summarize/httpclient"
)

const (
	defaultEndpoint = "https://api.anthropic.com"
	defaultModel    = "claude-sonnet-4-20250514"
	apiVersion      = "2023-06-01"
)

func init() {
	summarize.Register("anthropic", New)
}

// Summarizer calls the Anthropic Messages API.
type Summarizer struct {
	client *httpclient.Client
	model  string
}

// New builds a Summarizer from cfg. An API key is required.
func New(cfg summarize.Config) (summarize.Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	opts := []httpclient.Option{
		httpclient.WithHeader("x-api-key", cfg.APIKey),
		httpclient.WithHeader("anthropic-version", apiVersion),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, httpclient.WithTimeout(cfg.Timeout))
	}
	return &Summarizer{
		client: httpclient.New(strings.TrimRight(endpoint, "/"), opts...),
		model:  model,
	}, nil
}

func (s *Summarizer) Name() string { return "anthropic:" + s.model }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Summarize sends one user turn and joins the text blocks of the reply.
func (s *Summarizer) Summarize(ctx context.Context, req summarize.Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = summarize.DefaultMaxTokens
	}
	body := request{
		Model:     s.model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  []message{{Role: "user", Content: req.Prompt}},
	}
	var resp response
	if err := s.client.PostJSON(ctx, "/v1/messages", body, &resp); err != nil {
		return "", err
	}
	var parts []string
	for _, c := range resp.Content {
		if c.Type == "text" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, ""), nil
}
