package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/hupe1980/carebook/core"
)

func TestToContents(t *testing.T) {
	contents := []core.Content{
		{Role: core.RoleUser, Parts: []core.Part{core.TextPart{Text: "hi"}}},
		{Role: core.RoleAssistant, Parts: []core.Part{
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c1", Name: "ToGetInfo", Arguments: `{"request":"dentists"}`}},
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c2", Name: "set_appointment"}},
		}},
		{Role: core.RoleTool, Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "c1", Name: "ToGetInfo", Response: "ok"}}}},
		{Role: core.RoleTool, Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "c2", Name: "set_appointment", Error: "not executed"}}}},
	}

	out := toContents(contents)
	require.Len(t, out, 3)

	assert.Equal(t, genai.RoleUser, out[0].Role)
	assert.Equal(t, genai.RoleModel, out[1].Role)
	assert.Equal(t, "dentists", out[1].Parts[0].FunctionCall.Args["request"])
	assert.Empty(t, out[1].Parts[1].FunctionCall.Args)

	require.Len(t, out[2].Parts, 2, "tool results are merged")
	assert.Equal(t, "ok", out[2].Parts[0].FunctionResponse.Response["output"])
	assert.Equal(t, "not executed", out[2].Parts[1].FunctionResponse.Response["error"])
}

func TestFromParts(t *testing.T) {
	parts := fromParts([]*genai.Part{
		{Text: "thinking", Thought: true},
		{Text: "hello"},
		{FunctionCall: &genai.FunctionCall{Name: "CompleteOrEscalate", Args: map[string]any{"reason": "done"}}},
	})

	require.Len(t, parts, 2)
	assert.Equal(t, core.TextPart{Text: "hello"}, parts[0])

	fc := parts[1].(core.FunctionCallPart).FunctionCall
	assert.Equal(t, "CompleteOrEscalate", fc.Name)
	assert.NotEmpty(t, fc.ID)
	assert.JSONEq(t, `{"reason":"done"}`, fc.Arguments)
}
