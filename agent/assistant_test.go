package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/carebook/core"
	"github.com/hupe1980/carebook/model"
	"github.com/hupe1980/carebook/schedule"
	"github.com/hupe1980/carebook/tool"
)

// MockModel is a testify double for model.Model.
type MockModel struct{ mock.Mock }

func (m *MockModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	args := m.Called(ctx, req)

	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	if err := args.Error(1); err != nil {
		errCh <- err
	} else {
		respCh <- args.Get(0).(model.Response)
	}

	close(respCh)
	close(errCh)

	return respCh, errCh
}

func (m *MockModel) Info() model.Info { return model.Info{Name: "mock", Provider: "mock"} }

func textResponse(text string) model.Response {
	return model.Response{Content: core.Content{Role: core.RoleAssistant, Parts: []core.Part{core.TextPart{Text: text}}}}
}

func newTestDescriptors(t *testing.T) *Descriptors {
	t.Helper()

	store, err := schedule.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ds, err := NewDescriptors(store)
	require.NoError(t, err)

	return ds
}

func newState(text string) *core.ConversationState {
	s := core.NewConversationState("t1")
	s.Append(core.NewUserMessage(text))
	return s
}

func noBackoff(o *AssistantOptions) { o.RetryBackoff = 0 }

func TestAssistant_ReturnsText(t *testing.T) {
	ds := newTestDescriptors(t)
	m := new(MockModel)
	m.On("Generate", mock.Anything, mock.Anything).Return(textResponse("Hello! How can I help?"), nil).Once()

	a := NewAssistant(ds.Router, m, func(o *AssistantOptions) {
		o.Clock = func() time.Time { return time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC) }
	})

	msg, err := a.Invoke(context.Background(), newState("Hi"))
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help?", msg.Text())
	assert.Equal(t, "router", msg.Author)

	req := m.Calls[0].Arguments.Get(1).(model.Request)
	assert.Contains(t, req.Instructions, "Today is 01-08-2025")
	assert.Len(t, req.Tools, 4)
	assert.Len(t, req.Contents, 1)
	m.AssertExpectations(t)
}

func TestAssistant_EmptyReplyIsRetried(t *testing.T) {
	ds := newTestDescriptors(t)
	m := new(MockModel)
	m.On("Generate", mock.Anything, mock.Anything).Return(textResponse("  "), nil).Once()
	m.On("Generate", mock.Anything, mock.Anything).Return(textResponse("Which doctor?"), nil).Once()

	state := newState("book me")
	msg, err := NewAssistant(ds.Booking, m).Invoke(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "Which doctor?", msg.Text())

	retry := m.Calls[1].Arguments.Get(1).(model.Request)
	require.Len(t, retry.Contents, 2)
	assert.Equal(t, CorrectivePrompt, retry.Contents[1].Parts[0].(core.TextPart).Text)

	assert.Len(t, state.Messages, 1, "corrective prompts are not persisted")
}

func TestAssistant_EmptyRetriesExhausted(t *testing.T) {
	ds := newTestDescriptors(t)
	m := new(MockModel)
	m.On("Generate", mock.Anything, mock.Anything).Return(model.Response{Content: core.Content{Role: core.RoleAssistant}}, nil)

	msg, err := NewAssistant(ds.Info, m, func(o *AssistantOptions) { o.MaxEmptyRetries = 2 }).
		Invoke(context.Background(), newState("?"))
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, msg.Text())
	m.AssertNumberOfCalls(t, "Generate", 3)
}

func TestAssistant_FunctionCallIsActionable(t *testing.T) {
	ds := newTestDescriptors(t)
	m := new(MockModel)
	m.On("Generate", mock.Anything, mock.Anything).Return(model.Response{Content: core.Content{Role: core.RoleAssistant, Parts: []core.Part{
		core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c1", Name: tool.ToGetInfoName, Arguments: "{}"}},
	}}}, nil).Once()

	msg, err := NewAssistant(ds.Router, m).Invoke(context.Background(), newState("dentists on friday?"))
	require.NoError(t, err)
	require.Len(t, msg.FunctionCalls(), 1)
	assert.Equal(t, tool.ToGetInfoName, msg.FunctionCalls()[0].Name)
}

func TestAssistant_AdapterFailureRetried(t *testing.T) {
	ds := newTestDescriptors(t)
	m := new(MockModel)
	m.On("Generate", mock.Anything, mock.Anything).Return(model.Response{}, errors.New("503")).Twice()
	m.On("Generate", mock.Anything, mock.Anything).Return(textResponse("ok"), nil).Once()

	var calls int
	a := NewAssistant(ds.Router, m, noBackoff, func(o *AssistantOptions) {
		o.OnModelCall = func(string, time.Duration, error) { calls++ }
	})

	msg, err := a.Invoke(context.Background(), newState("hi"))
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Text())
	assert.Equal(t, 3, calls)
}

func TestAssistant_AdapterFailureSurfaced(t *testing.T) {
	ds := newTestDescriptors(t)
	m := new(MockModel)
	m.On("Generate", mock.Anything, mock.Anything).Return(model.Response{}, errors.New("503"))

	_, err := NewAssistant(ds.Router, m, noBackoff).Invoke(context.Background(), newState("hi"))
	require.Error(t, err)
	assert.True(t, core.IsAdapterFailure(err))
	m.AssertNumberOfCalls(t, "Generate", 3)
}

func TestAssistant_ContextErrorNotRetried(t *testing.T) {
	ds := newTestDescriptors(t)
	m := new(MockModel)
	m.On("Generate", mock.Anything, mock.Anything).Return(model.Response{}, context.Canceled)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAssistant(ds.Router, m).Invoke(ctx, newState("hi"))
	require.Error(t, err)
	assert.True(t, IsContextError(err))
	assert.False(t, core.IsAdapterFailure(err))
}

func TestAssistant_ProviderDeadlineNotRetried(t *testing.T) {
	ds := newTestDescriptors(t)
	m := new(MockModel)
	m.On("Generate", mock.Anything, mock.Anything).Return(model.Response{}, fmt.Errorf("stream: %w", context.DeadlineExceeded))

	_, err := NewAssistant(ds.Router, m, noBackoff).Invoke(context.Background(), newState("hi"))
	require.Error(t, err)
	assert.True(t, IsContextError(err))
	m.AssertNumberOfCalls(t, "Generate", 1)
}

func TestDescriptors(t *testing.T) {
	ds := newTestDescriptors(t)

	assert.Equal(t, []string{
		tool.CompleteOrEscalateName,
		tool.ToAppointmentBookingAssistantName,
		tool.ToGetInfoName,
		tool.ToPrimaryBookingAssistantName,
	}, ds.Router.Tools.Names())

	// Names sorts bytewise, so the CamelCase signal tool precedes snake_case tools.
	assert.Equal(t, []string{
		tool.CompleteOrEscalateName,
		tool.CheckAvailabilityByDoctorName,
		tool.CheckAvailabilityBySpecializationName,
	}, ds.Info.Tools.Names())

	assert.Equal(t, []string{
		tool.CompleteOrEscalateName,
		tool.CancelAppointmentName,
		tool.RescheduleAppointmentName,
		tool.SetAppointmentName,
	}, ds.Booking.Tools.Names())

	d, ok := ds.ForContext(core.ContextBooking)
	require.True(t, ok)
	assert.Same(t, ds.Booking, d)

	_, ok = ds.ForContext("billing")
	assert.False(t, ok)

	defs := ds.Info.ToolDefinitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "function", defs[0].Type)
	assert.NotEmpty(t, defs[0].Function.Parameters["properties"])
}
