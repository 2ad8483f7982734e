package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func copenhagen(t *testing.T, now time.Time) *Calendar {
	t.Helper()
	c, err := Load(DefaultTimezone, Fixed(now))
	require.NoError(t, err)
	return c
}

func TestNowLocalIgnoresHostZone(t *testing.T) {
	// 23:30 UTC on Jan 31 is already February in Copenhagen
	c := copenhagen(t, time.Date(2025, 1, 31, 23, 30, 0, 0, time.UTC))
	now := c.NowLocal()
	assert.Equal(t, time.February, now.Month())
	assert.Equal(t, 1, now.Day())
	assert.Equal(t, DefaultTimezone, now.Location().String())
}

func TestFirstOfMonth(t *testing.T) {
	c := copenhagen(t, time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC))

	first := c.CurrentMonthStart()
	assert.Equal(t, "2025-06-30T22:00:00.000Z", FormatISO(first)) // CEST is UTC+2

	winter := c.FirstOfMonth(time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-12-31T23:00:00.000Z", FormatISO(winter))
}

func TestMonthBounds(t *testing.T) {
	c := copenhagen(t, time.Now())
	start, end := c.MonthBounds(time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, time.February, start.Month())
	assert.Equal(t, time.March, end.Month())
	assert.Equal(t, 1, end.Day())
}

func TestShouldResetVariableEntries(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	c := copenhagen(t, now)
	iso := func(t time.Time) *string {
		s := FormatISO(t)
		return &s
	}
	garbage := "not a date"

	cases := []struct {
		name string
		last *string
		want bool
	}{
		{"nil", nil, false},
		{"this month", iso(c.CurrentMonthStart()), false},
		{"later this month", iso(now.Add(24 * time.Hour)), false},
		{"one month ago", iso(c.CurrentMonthStart().AddDate(0, -1, 0)), true},
		{"one year ago", iso(c.CurrentMonthStart().AddDate(-1, 0, 0)), true},
		{"december last year", iso(time.Date(2024, 12, 1, 0, 0, 0, 0, c.Location())), true},
		{"future month", iso(c.CurrentMonthStart().AddDate(0, 1, 0)), false},
		{"unparsable", &garbage, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.ShouldResetVariableEntries(tc.last))
		})
	}
}

func TestShouldResetAtCopenhagenBoundary(t *testing.T) {
	// UTC still says January, Copenhagen already says February.
	c := copenhagen(t, time.Date(2025, 1, 31, 23, 30, 0, 0, time.UTC))
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, c.Location())
	assert.True(t, c.ShouldReset(jan))
	assert.False(t, c.ShouldReset(time.Time{}))
}

func TestParseISO(t *testing.T) {
	got, err := ParseISO("2025-03-01T00:00:00.000Z")
	require.NoError(t, err)
	assert.Equal(t, 2025, got.Year())

	got, err = ParseISO("2025-03-01T01:00:00+01:00")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01T00:00:00.000Z", FormatISO(got))

	_, err = ParseISO("yesterday")
	assert.Error(t, err)
}

func TestLoadUnknownZone(t *testing.T) {
	_, err := Load("Mars/Olympus", nil)
	assert.Error(t, err)
}
