package commands

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/carebook/core"
	"github.com/hupe1980/carebook/engine"
	"github.com/hupe1980/carebook/model"
)

type mockAsker struct{ mock.Mock }

func (m *mockAsker) Ask(ctx context.Context, threadID, query string) (engine.Reply, error) {
	args := m.Called(ctx, threadID, query)
	return args.Get(0).(engine.Reply), args.Error(1)
}

func (m *mockAsker) Reset(ctx context.Context, threadID string) error {
	return m.Called(ctx, threadID).Error(0)
}

func TestRunChat(t *testing.T) {
	a := new(mockAsker)
	a.On("Ask", mock.Anything, "t1", "hi").Return(engine.Reply{Answer: "Hello!", DialogState: core.ContextRouter}, nil).Once()
	a.On("Ask", mock.Anything, "t1", "book").Return(engine.Reply{}, errors.New("boom")).Once()
	a.On("Reset", mock.Anything, "t1").Return(nil).Once()

	var out bytes.Buffer
	in := strings.NewReader("hi\n\nbook\n/reset\n/exit\nignored\n")

	require.NoError(t, runChat(context.Background(), a, nil, "t1", in, &out))

	a.AssertExpectations(t)
	assert.Contains(t, out.String(), "[router] Hello!")
	assert.Contains(t, out.String(), "error: boom")
	assert.Contains(t, out.String(), "Conversation cleared.")
	assert.NotContains(t, out.String(), "ignored")
}

func TestRunChat_OfflineEnqueuesReply(t *testing.T) {
	offline := model.NewScriptedModel()
	a := new(mockAsker)
	a.On("Ask", mock.Anything, "t1", "hello").Return(engine.Reply{Answer: "ok", DialogState: core.ContextRouter}, nil).Once()

	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), a, offline, "t1", strings.NewReader("hello\n"), &out))

	assert.Equal(t, 1, offline.Remaining())
	a.AssertExpectations(t)
}
