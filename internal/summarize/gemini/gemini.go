package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/crimson-sun/daybook/internal/summarize"
)

const defaultModel = "gemini-2.5-flash"

func init() {
	summarize.Register("genai", New)
}

// Summarizer generates entries with the Gemini API.
type Summarizer struct {
	client *genai.Client
	model  string
}

// New builds a Summarizer from cfg. An API key is required.
func New(cfg summarize.Config) (summarize.Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("genai: API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Summarizer{client: client, model: model}, nil
}

func (s *Summarizer) Name() string { return "genai:" + s.model }

// Summarize runs one GenerateContent call with the system prompt as the
// system instruction.
func (s *Summarizer) Summarize(ctx context.Context, req summarize.Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = summarize.DefaultMaxTokens
	}
	cfg := &genai.GenerateContentConfig{MaxOutputTokens: int32(maxTokens)}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	return resp.Text(), nil
}
