package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/carebook/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect_Final(t *testing.T) {
	m := NewScriptedModel(TextStep("hello"), CallStep("c1", "ToGetInfo", `{"request":"x"}`))

	resp, err := Collect(context.Background(), m, Request{Instructions: "be nice"})
	require.NoError(t, err)
	assert.Equal(t, core.RoleAssistant, resp.Content.Role)
	assert.Equal(t, "hello", resp.Content.Parts[0].(core.TextPart).Text)

	resp, err = Collect(context.Background(), m, Request{})
	require.NoError(t, err)
	assert.Equal(t, "ToGetInfo", resp.Content.Parts[0].(core.FunctionCallPart).FunctionCall.Name)

	assert.Len(t, m.Requests(), 2)
	assert.Equal(t, "be nice", m.Requests()[0].Instructions)
	assert.Zero(t, m.Remaining())
}

func TestCollect_ProviderErrorIsAdapterFailure(t *testing.T) {
	m := NewScriptedModel(ErrorStep(errors.New("503")))

	_, err := Collect(context.Background(), m, Request{})
	require.Error(t, err)
	assert.True(t, core.IsAdapterFailure(err))

	_, err = Collect(context.Background(), m, Request{})
	assert.True(t, core.IsAdapterFailure(err), "exhausted script is a provider failure")
}

func TestCollect_ContextCancelled(t *testing.T) {
	m := NewScriptedModel(TextStep("late"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := Collect(ctx, m, Request{})
	require.Error(t, err)
	assert.False(t, core.IsAdapterFailure(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFunctionResponseText(t *testing.T) {
	assert.Equal(t, "ok", FunctionResponseText(core.FunctionResponse{Response: "ok"}))
	assert.Equal(t, "Error: bad", FunctionResponseText(core.FunctionResponse{Response: "ok", Error: "bad"}))
	assert.Equal(t, `{"a":1}`, FunctionResponseText(core.FunctionResponse{Response: map[string]int{"a": 1}}))
	assert.Empty(t, FunctionResponseText(core.FunctionResponse{}))
}

func TestParseArguments(t *testing.T) {
	args, err := ParseArguments(`{"id_number":1234567}`)
	require.NoError(t, err)
	assert.Equal(t, 1234567.0, args["id_number"])

	empty, err := ParseArguments("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseArguments("{not json")
	assert.Error(t, err)
}
