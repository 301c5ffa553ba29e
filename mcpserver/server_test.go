package mcpserver

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/carebook/schedule"
	"github.com/hupe1980/carebook/tool"
)

func newTestServer(t *testing.T, optFns ...func(o *Options)) (*Server, *schedule.SQLiteStore) {
	t.Helper()

	store, err := schedule.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = schedule.Seed(context.Background(), store, schedule.DefaultSeedFrom, schedule.DefaultSeedTo)
	require.NoError(t, err)

	s, err := New(store, optFns...)
	require.NoError(t, err)

	return s, store
}

func TestServer_RegistersTools(t *testing.T) {
	s, _ := newTestServer(t)
	assert.ElementsMatch(t, []string{
		tool.CheckAvailabilityByDoctorName,
		tool.CheckAvailabilityBySpecializationName,
		tool.SetAppointmentName,
		tool.CancelAppointmentName,
		tool.RescheduleAppointmentName,
	}, s.Tools())

	ro, _ := newTestServer(t, func(o *Options) { o.ReadOnly = true })
	assert.ElementsMatch(t, []string{
		tool.CheckAvailabilityByDoctorName,
		tool.CheckAvailabilityBySpecializationName,
	}, ro.Tools())
}

func TestServer_CallBooksSlot(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()

	out, err := s.Call(ctx, tool.SetAppointmentName, map[string]any{
		"desired_date": "04-08-2025 10:00",
		"id_number":    float64(7654321),
		"doctor_name":  "jane smith",
	})
	require.NoError(t, err)
	assert.Equal(t, tool.MsgBooked, out)

	slot, err := store.Slot(ctx, schedule.SlotKey{Date: "04-08-2025", Time: "10:00", Doctor: "jane smith"})
	require.NoError(t, err)
	assert.False(t, slot.Available)

	out, err = s.Call(ctx, tool.CheckAvailabilityByDoctorName, map[string]any{"desired_date": "04-08-2025", "doctor_name": "jane smith"})
	require.NoError(t, err)
	assert.NotContains(t, out, "10:00 AM")
}

func TestServer_CallErrors(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.Call(context.Background(), "drop_tables", nil)
	require.Error(t, err)

	_, err = s.Call(context.Background(), tool.CheckAvailabilityByDoctorName, map[string]any{"desired_date": "2025-08-01", "doctor_name": "john doe"})
	require.Error(t, err)

	var te *tool.ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, tool.CodeValidation, te.Code)
}

func TestServer_Handler(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.handler(s.tools[tool.CheckAvailabilityBySpecializationName])

	var req mcp.CallToolRequest
	req.Params.Name = tool.CheckAvailabilityBySpecializationName
	req.Params.Arguments = map[string]any{"desired_date": "01-08-2025", "specialization": "orthodontist"}

	res, err := h(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "Robert Martinez")

	req.Params.Arguments = map[string]any{"desired_date": "01-08-2025", "specialization": "astrology"}
	res, err = h(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
