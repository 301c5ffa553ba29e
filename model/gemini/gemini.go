// Package gemini implements model.Model on the Google Gen AI SDK.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/hupe1980/carebook/core"
	"github.com/hupe1980/carebook/model"
)

// DefaultModel is used when Options.Model is empty.
const DefaultModel = "gemini-2.5-flash"

// Options configures the Gemini model adapter.
type Options struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	// APIKey overrides GOOGLE_API_KEY / GEMINI_API_KEY when set.
	APIKey string
}

// Model wraps the Gemini generateContent API behind model.Model.
type Model struct {
	client *genai.Client
	opts   Options
}

var _ model.Model = (*Model)(nil)

// NewModel creates a Gemini model backed by the Gemini API.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Model{client: client, opts: opts}, nil
}

// NewModelFromClient creates a Gemini model from an existing client.
func NewModelFromClient(client *genai.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:           DefaultModel,
		Temperature:     0.7,
		MaxOutputTokens: 4096,
	}
}

// Generate implements model.Model. Streaming requests are served by a single
// non-partial response.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		resp, err := m.client.Models.GenerateContent(ctx, m.opts.Model, toContents(req.Contents), m.config(req))
		if err != nil {
			errCh <- fmt.Errorf("gemini api error: %w", err)
			return
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			errCh <- fmt.Errorf("gemini: no candidates returned")
			return
		}

		cand := resp.Candidates[0]

		r := model.Response{
			ID:           resp.ResponseID,
			Content:      core.Content{Role: core.RoleAssistant, Parts: fromParts(cand.Content.Parts)},
			FinishReason: strings.ToLower(string(cand.FinishReason)),
		}

		if u := resp.UsageMetadata; u != nil {
			r.Usage = &model.TokenUsage{
				PromptTokens:     int(u.PromptTokenCount),
				CompletionTokens: int(u.CandidatesTokenCount),
				TotalTokens:      int(u.TotalTokenCount),
			}
		}

		out <- r
	}()

	return out, errCh
}

// Info implements model.Model.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "gemini",
		SupportsTools: true,
	}
}

func (m *Model) config(req model.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(m.opts.Temperature),
		MaxOutputTokens: m.opts.MaxOutputTokens,
	}

	if req.Instructions != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.Instructions, genai.RoleUser)
	}

	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, len(req.Tools))
		for i, def := range req.Tools {
			decls[i] = &genai.FunctionDeclaration{
				Name:                 def.Function.Name,
				Description:          def.Function.Description,
				ParametersJsonSchema: def.Function.Parameters,
			}
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	return cfg
}

// toContents maps the history onto Gemini roles: assistant turns become
// "model", user text and tool results become "user".
func toContents(contents []core.Content) []*genai.Content {
	out := make([]*genai.Content, 0, len(contents))

	for _, c := range contents {
		role := genai.RoleUser
		if c.Role == core.RoleAssistant {
			role = genai.RoleModel
		}

		var parts []*genai.Part

		for _, p := range c.Parts {
			switch part := p.(type) {
			case core.TextPart:
				if part.Text != "" {
					parts = append(parts, genai.NewPartFromText(part.Text))
				}
			case core.FunctionCallPart:
				args := map[string]any{}
				if part.FunctionCall.Arguments != "" {
					_ = json.Unmarshal([]byte(part.FunctionCall.Arguments), &args)
				}
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   part.FunctionCall.ID,
					Name: part.FunctionCall.Name,
					Args: args,
				}})
			case core.FunctionResponsePart:
				fr := part.FunctionResponse
				payload := map[string]any{"output": model.FunctionResponseText(fr)}
				if fr.Error != "" {
					payload = map[string]any{"error": fr.Error}
				}
				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       fr.ID,
					Name:     fr.Name,
					Response: payload,
				}})
			}
		}

		if len(parts) == 0 {
			continue
		}

		// Consecutive tool results must share one content.
		if n := len(out); n > 0 && out[n-1].Role == role && c.Role == core.RoleTool {
			out[n-1].Parts = append(out[n-1].Parts, parts...)
			continue
		}

		out = append(out, &genai.Content{Role: role, Parts: parts})
	}

	return out
}

func fromParts(parts []*genai.Part) []core.Part {
	out := make([]core.Part, 0, len(parts))

	for _, p := range parts {
		switch {
		case p == nil:
		case p.FunctionCall != nil:
			args := "{}"
			if raw, err := json.Marshal(p.FunctionCall.Args); err == nil && p.FunctionCall.Args != nil {
				args = string(raw)
			}
			id := p.FunctionCall.ID
			if id == "" {
				id = core.NewID()
			}
			out = append(out, core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: id, Name: p.FunctionCall.Name, Arguments: args}})
		case p.Text != "" && !p.Thought:
			out = append(out, core.TextPart{Text: p.Text})
		}
	}

	return out
}
