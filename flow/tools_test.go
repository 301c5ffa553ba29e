package flow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/carebook/agent"
	"github.com/hupe1980/carebook/core"
	"github.com/hupe1980/carebook/internal/testutil"
	"github.com/hupe1980/carebook/tool"
)

type mockTool struct {
	name     string
	delay    time.Duration
	result   any
	err      error
	panicMsg any
}

func (mt *mockTool) Name() string               { return mt.name }
func (mt *mockTool) Description() string        { return "mock tool" }
func (mt *mockTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (mt *mockTool) Call(tc *core.ToolContext, _ map[string]any) (any, error) {
	if mt.delay > 0 {
		select {
		case <-time.After(mt.delay):
		case <-tc.Context().Done():
			return nil, tc.Context().Err()
		}
	}
	if mt.panicMsg != nil {
		panic(mt.panicMsg)
	}
	return mt.result, mt.err
}

func mockDescriptor(tools ...tool.Tool) *agent.Descriptor {
	return &agent.Descriptor{Name: "booking_specialist", Context: core.ContextBooking, Tools: tool.MustRegistry(tools...)}
}

func callState(calls ...core.FunctionCall) *core.ConversationState {
	b := testutil.NewMessageBuilder().Author("booking_specialist")
	for _, fc := range calls {
		b.CallWithID(fc.ID, fc.Name, nil)
	}
	return testutil.NewStateBuilder("t1").Push(core.ContextBooking).Message(b.Build()).Build()
}

func TestToolsNode_RealScheduleTools(t *testing.T) {
	ds := newSeededDescriptors(t)

	state := testutil.NewStateBuilder("t1").
		Push(core.ContextInfo).
		Message(testutil.NewMessageBuilder().Author("info_specialist").
			CallWithID("c1", tool.CheckAvailabilityByDoctorName, map[string]any{"desired_date": "01-08-2025", "doctor_name": "john doe"}).
			CallWithID("c2", tool.CheckAvailabilityByDoctorName, map[string]any{"desired_date": "2025-08-01", "doctor_name": "john doe"}).
			Build()).
		Build()

	var (
		mu     sync.Mutex
		called []string
	)
	env := testEnv()
	env.OnToolCall = func(name string, _ time.Duration, err error) {
		mu.Lock()
		defer mu.Unlock()
		called = append(called, name)
	}

	upd, err := NewToolsNode(NodeInfoTools, ds.Info).Run(context.Background(), env, state)
	require.NoError(t, err)
	require.Len(t, upd.Messages, 2)
	assert.Equal(t, core.StackUpdate{}, upd.Stack)

	ok := upd.Messages[0].FunctionResponses()[0]
	assert.Empty(t, ok.Error)
	assert.Equal(t, "Availability for john doe on 01-08-2025:\nAvailable slots: 9:00 AM, 10:00 AM, 11:00 AM, 12:00 PM, 1:00 PM, 2:00 PM, 3:00 PM", ok.Response)

	bad := upd.Messages[1].FunctionResponses()[0]
	assert.Contains(t, bad.Error, tool.CodeValidation)

	assert.Len(t, called, 2)
}

func TestToolsNode_ErrorsBecomeResults(t *testing.T) {
	d := mockDescriptor(
		&mockTool{name: "boom", panicMsg: "kaboom"},
		&mockTool{name: "fails", err: errors.New("db down")},
		&mockTool{name: "works", result: "fine"},
		tool.NewCompleteOrEscalate(),
	)

	state := callState(
		core.FunctionCall{ID: "1", Name: "boom"},
		core.FunctionCall{ID: "2", Name: "fails"},
		core.FunctionCall{ID: "3", Name: "works"},
		core.FunctionCall{ID: "4", Name: "missing"},
		core.FunctionCall{ID: "5", Name: tool.CompleteOrEscalateName},
	)

	upd, err := NewToolsNode(NodeBookingTools, d).Run(context.Background(), testEnv(), state)
	require.NoError(t, err)
	require.Len(t, upd.Messages, 5)

	results := make([]core.FunctionResponse, 0, 5)
	for _, m := range upd.Messages {
		results = append(results, m.FunctionResponses()[0])
	}

	assert.Contains(t, results[0].Error, tool.CodePanic)
	assert.Equal(t, "db down", results[1].Error)
	assert.Equal(t, "fine", results[2].Response)
	assert.Contains(t, results[3].Error, tool.CodeUnknown)
	assert.Equal(t, NotExecutedResult, results[4].Response)

	for i, r := range results {
		assert.Equal(t, state.Messages[0].FunctionCalls()[i].ID, r.ID, "results keep call order")
	}
}

func TestToolsNode_ToolTimeout(t *testing.T) {
	d := mockDescriptor(&mockTool{name: "slow", delay: time.Second})

	env := testEnv()
	env.ToolTimeout = 10 * time.Millisecond

	upd, err := NewToolsNode(NodeBookingTools, d).Run(context.Background(), env, callState(core.FunctionCall{ID: "1", Name: "slow"}))
	require.NoError(t, err)
	assert.Contains(t, upd.Messages[0].FunctionResponses()[0].Error, "timed out")
}

func TestToolsNode_MinimalEnv(t *testing.T) {
	d := mockDescriptor(&mockTool{name: "works", result: "fine"})

	upd, err := NewToolsNode(NodeBookingTools, d).Run(context.Background(), &Env{ThreadID: "t1"}, callState(core.FunctionCall{ID: "1", Name: "works"}))
	require.NoError(t, err)
	require.Len(t, upd.Messages, 1)
	assert.Equal(t, "fine", upd.Messages[0].FunctionResponses()[0].Response)
}

func TestToolsNode_TurnCancellationFails(t *testing.T) {
	d := mockDescriptor(&mockTool{name: "slow", delay: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := NewToolsNode(NodeBookingTools, d).Run(ctx, testEnv(), callState(core.FunctionCall{ID: "1", Name: "slow"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
