package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAMPM(t *testing.T) {
	tests := map[string]string{
		"00:00": "12:00 AM",
		"09:00": "9:00 AM",
		"11:30": "11:30 AM",
		"12:00": "12:00 PM",
		"15:00": "3:00 PM",
		"23:05": "11:05 PM",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatAMPM(in), in)
	}
}

func TestParseSlotKey(t *testing.T) {
	key, err := ParseSlotKey("01-08-2025 09:00", "john doe")
	require.NoError(t, err)
	assert.Equal(t, SlotKey{Date: "01-08-2025", Time: "09:00", Doctor: "john doe"}, key)

	_, err = ParseSlotKey("2025-08-01 09:00", "john doe")
	assert.Error(t, err)

	_, err = ParseSlotKey("31-02-2025 09:00", "john doe")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	_, err := ParseDate("01-08-2025")
	assert.NoError(t, err)

	_, err = ParseDate("32-08-2025")
	assert.Error(t, err)
}

func TestCatalog(t *testing.T) {
	assert.Len(t, DoctorNames(), 11)
	assert.Len(t, Specializations(), 8)

	spec, ok := SpecializationOf("alex turner")
	assert.True(t, ok)
	assert.Equal(t, GeneralMedicine, spec)

	_, ok = SpecializationOf("dr who")
	assert.False(t, ok)

	assert.Equal(t, "Robert Martinez", TitleCase("robert martinez"))
}

func TestSeedSlots(t *testing.T) {
	slots := SeedSlots(DefaultSeedFrom, DefaultSeedTo)

	// 31-07-2025 .. 15-08-2025 has 12 weekdays.
	assert.Len(t, slots, 12*len(Catalog)*7)

	for _, s := range slots {
		assert.NotEqual(t, "02-08-2025", s.Date)
		assert.NotEqual(t, "03-08-2025", s.Date)
		assert.True(t, s.Available)
	}
}
