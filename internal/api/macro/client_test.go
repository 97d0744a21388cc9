package macro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var parseAt = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func TestParseCalendar(t *testing.T) {
	body := []byte(`{
		"bias": {"score": 0.35},
		"events": [
			{"impact": "LOW",  "time": "2025-03-14T08:00:00Z"},
			{"impact": "HIGH", "time": "2025-03-14T11:30:00Z"},
			{"impact": "HIGH", "time": "2025-03-14T15:00:00Z"}
		]
	}`)

	block, err := parseCalendar(body, parseAt)
	require.NoError(t, err)

	assert.Equal(t, 0.35, block.BiasScore)
	assert.Equal(t, 30.0, block.MinutesSinceNews, "most recent past event wins")
	assert.Equal(t, "HIGH", block.NewsImpact)
	assert.True(t, block.HasUpcomingHighImpact)
}

func TestParseCalendarNoPastEvents(t *testing.T) {
	body := []byte(`{
		"bias": {"score": -0.2},
		"events": [
			{"impact": "HIGH", "time": "2025-03-14T15:00:00Z"}
		]
	}`)

	block, err := parseCalendar(body, parseAt)
	require.NoError(t, err)

	assert.Equal(t, -0.2, block.BiasScore)
	assert.Equal(t, -1.0, block.MinutesSinceNews)
	assert.Empty(t, block.NewsImpact)
	assert.True(t, block.HasUpcomingHighImpact)
}

func TestParseCalendarIgnoresBadTimestamps(t *testing.T) {
	body := []byte(`{
		"bias": {"score": 0},
		"events": [
			{"impact": "HIGH", "time": "not-a-time"},
			{"impact": "MEDIUM", "time": "2025-03-14T11:00:00Z"}
		]
	}`)

	block, err := parseCalendar(body, parseAt)
	require.NoError(t, err)
	assert.Equal(t, 60.0, block.MinutesSinceNews)
	assert.Equal(t, "MEDIUM", block.NewsImpact)
	assert.False(t, block.HasUpcomingHighImpact)
}

func TestParseCalendarMissingSections(t *testing.T) {
	block, err := parseCalendar([]byte(`{}`), parseAt)
	require.NoError(t, err)
	assert.Zero(t, block.BiasScore)
	assert.Equal(t, -1.0, block.MinutesSinceNews)
	assert.False(t, block.HasUpcomingHighImpact)
}

func TestParseCalendarRejectsBadPayloads(t *testing.T) {
	if _, err := parseCalendar([]byte(`null`), parseAt); err == nil {
		t.Error("a null payload must be rejected")
	}
	if _, err := parseCalendar([]byte(`{"bias": {"score": 3.5}}`), parseAt); err == nil {
		t.Error("an out-of-range bias must be rejected")
	}
}
