package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOccupies(t *testing.T) {
	cases := []struct {
		status string
		want   bool
	}{
		{"scheduled", true},
		{"in-progress", true},
		{"confirmed", true},
		{"pending", true},
		{"completed", true},
		{"cancelled", false},
		{"canceled", false},
		{"denied", false},
		{"declined", false},
		{"CANCELLED", false},
		{"  Denied  ", false},
		// Unknown statuses default to occupying.
		{"no-show", true},
		{"", true},
		{"cancelling", true},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Occupies(tc.status), "status %q", tc.status)
	}
}

func TestIsActive(t *testing.T) {
	for _, status := range []string{"scheduled", "in-progress", "confirmed", "pending", " Scheduled "} {
		assert.True(t, IsActive(status), "status %q", status)
	}
	for _, status := range []string{"completed", "cancelled", "denied", "no-show", ""} {
		assert.False(t, IsActive(status), "status %q", status)
	}
}

func TestParseDayTime(t *testing.T) {
	at, err := ParseDayTime("2024-06-10", "09:30")
	assert.NoError(t, err)
	assert.Equal(t, 2024, at.Year())
	assert.Equal(t, 9, at.Hour())
	assert.Equal(t, 30, at.Minute())

	_, err = ParseDayTime("2024-6-10", "09:30")
	assert.Error(t, err)
	_, err = ParseDayTime("2024-06-10", "9:30")
	assert.Error(t, err)
	_, err = ParseDayTime("", "")
	assert.Error(t, err)
}
