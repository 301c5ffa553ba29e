package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToolContext_Signals(t *testing.T) {
	tc := NewToolContext(context.Background(), "t-1", "router", "call-1", nil)

	assert.NoError(t, tc.Validate())
	assert.Equal(t, "t-1", tc.ThreadID())
	assert.Equal(t, "router", tc.AgentName())
	assert.Equal(t, "call-1", tc.FunctionCallID())

	_, ok := tc.TransferTarget()
	assert.False(t, ok)
	assert.False(t, tc.Escalated())

	tc.TransferToAgent(ContextBooking)
	target, ok := tc.TransferTarget()
	assert.True(t, ok)
	assert.Equal(t, ContextBooking, target)

	tc.Escalate()
	assert.True(t, tc.Escalated())
}

func TestToolContext_ValidateRejectsMissingIDs(t *testing.T) {
	tc := NewToolContext(context.Background(), "", "router", "call-1", nil)
	assert.Error(t, tc.Validate())

	tc = NewToolContext(context.Background(), "t-1", "router", "", nil)
	assert.Error(t, tc.Validate())
}

func TestStepLimiter(t *testing.T) {
	sl := NewStepLimiter(2)

	assert.NoError(t, sl.Increment("router"))
	assert.NoError(t, sl.Increment("enter_info"))
	assert.Equal(t, 0, sl.Remaining())

	err := sl.Increment("info_specialist")
	assert.Error(t, err)
	assert.True(t, IsRoutingError(err))
	assert.ErrorIs(t, err, ErrStepLimitExceeded)
	assert.Equal(t, 3, sl.Count())

	assert.Equal(t, -1, NewStepLimiter(0).Remaining())
}

type recordingLogger struct {
	msgs []string
	args [][]any
}

func (r *recordingLogger) record(msg string, args []any) {
	r.msgs = append(r.msgs, msg)
	r.args = append(r.args, args)
}

func (r *recordingLogger) Debug(msg string, args ...any) { r.record(msg, args) }
func (r *recordingLogger) Info(msg string, args ...any)  { r.record(msg, args) }
func (r *recordingLogger) Warn(msg string, args ...any)  { r.record(msg, args) }
func (r *recordingLogger) Error(msg string, args ...any) { r.record(msg, args) }

func TestToolContext_LoggerCarriesCallIDs(t *testing.T) {
	rec := &recordingLogger{}
	tc := NewToolContext(context.Background(), "t-1", "booking_specialist", "call-9", rec)

	tc.Logger().Warn("tool.call.slow", "tool", "set_appointment")
	tc.Escalate()

	assert.Equal(t, []string{"tool.call.slow", "tool.escalate.request"}, rec.msgs)
	assert.Equal(t, []any{"thread_id", "t-1", "agent", "booking_specialist", "fc_id", "call-9", "tool", "set_appointment"}, rec.args[0])
	assert.Equal(t, []any{"thread_id", "t-1", "agent", "booking_specialist", "fc_id", "call-9"}, rec.args[1])
}
