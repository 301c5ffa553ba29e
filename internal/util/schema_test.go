package util

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handoffArgs struct {
	DesiredDate string  `json:"desired_date" description:"Date" pattern:"^\\d{2}-\\d{2}-\\d{4}$"`
	Doctor      *string `json:"doctor_name,omitempty" enum:"john doe|jane smith"`
	Request     string  `json:"request"`
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(handoffArgs{})

	props := schema["properties"].(map[string]any)
	date := props["desired_date"].(map[string]any)
	assert.Equal(t, "string", date["type"])
	assert.Equal(t, `^\d{2}-\d{2}-\d{4}$`, date["pattern"])
	assert.Equal(t, []string{"john doe", "jane smith"}, props["doctor_name"].(map[string]any)["enum"])
	assert.ElementsMatch(t, []string{"desired_date", "request"}, schema["required"])
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"desired_date": map[string]any{"type": "string", "pattern": `^\d{2}-\d{2}-\d{4} \d{2}:\d{2}$`},
			"id_number":    map[string]any{"type": "integer", "minimum": 1000000, "maximum": 99999999},
			"doctor_name":  map[string]any{"type": "string", "enum": []string{"john doe", "jane smith"}},
		},
		"required": []string{"desired_date", "id_number", "doctor_name"},
	}

	decode := func(s string) map[string]any {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(s), &m))
		return m
	}

	tests := []struct {
		name  string
		args  string
		field string
	}{
		{"valid", `{"desired_date":"01-08-2025 09:00","id_number":1234567,"doctor_name":"john doe"}`, ""},
		{"missing", `{"desired_date":"01-08-2025 09:00","doctor_name":"john doe"}`, "id_number"},
		{"null required", `{"desired_date":"01-08-2025 09:00","id_number":null,"doctor_name":"john doe"}`, "id_number"},
		{"bad pattern", `{"desired_date":"2025-08-01 09:00","id_number":1234567,"doctor_name":"john doe"}`, "desired_date"},
		{"not integer", `{"desired_date":"01-08-2025 09:00","id_number":12345.5,"doctor_name":"john doe"}`, "id_number"},
		{"too short", `{"desired_date":"01-08-2025 09:00","id_number":123456,"doctor_name":"john doe"}`, "id_number"},
		{"too long", `{"desired_date":"01-08-2025 09:00","id_number":123456789,"doctor_name":"john doe"}`, "id_number"},
		{"enum", `{"desired_date":"01-08-2025 09:00","id_number":1234567,"doctor_name":"dr who"}`, "doctor_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParameters(decode(tt.args), schema)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidateParameters_RequiredAsAnySlice(t *testing.T) {
	schema := map[string]any{"required": []any{"reason"}}
	assert.Error(t, ValidateParameters(map[string]any{}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"reason": "done"}, schema))
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("Today is {{.today}}. Year {{.year}}.", map[string]any{"today": "01-08-2025", "year": 2025})
	require.NoError(t, err)
	assert.Equal(t, "Today is 01-08-2025. Year 2025.", out)

	plain, err := RenderTemplate("no markers", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers", plain)
}

func TestRenderTemplate_Errors(t *testing.T) {
	_, err := RenderTemplate("Today is {{.today", nil)
	require.Error(t, err)

	_, err = RenderTemplate("Hello {{.name}}", map[string]any{})
	require.Error(t, err)

	out, err := RenderTemplate(`{{upper .ctx}} {{default "n/a" .missing}}`, map[string]any{"ctx": "router", "missing": ""})
	require.NoError(t, err)
	assert.Equal(t, "ROUTER n/a", out)
}
