package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := map[string]TimeOfDay{
		"00:00":    0,
		"08:30":    NewTimeOfDay(8, 30),
		"23:59":    NewTimeOfDay(23, 59),
		"24:00":    MaxTimeOfDay,
		"12:15:42": NewTimeOfDay(12, 15),
	}
	for in, want := range cases {
		got, err := ParseTimeOfDay(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "8", "ab:cd", "25:00", "24:01", "10:60", "-1:00", "08:00xyz", "08:00:zz", "08:00 ", "24:00:01"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestTimeOfDayJSON(t *testing.T) {
	var payload struct {
		Start TimeOfDay `json:"start"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"start":"09:05"}`), &payload))
	assert.Equal(t, NewTimeOfDay(9, 5), payload.Start)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"09:05"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"start":905}`), &payload))
}

func TestWeekdayOf(t *testing.T) {
	monday := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, Monday, WeekdayOf(monday))
	assert.Equal(t, Sunday, WeekdayOf(monday.AddDate(0, 0, 6)))
	assert.Equal(t, "sunday", Sunday.String())
	assert.False(t, Weekday(0).Valid())
	assert.False(t, Weekday(8).Valid())
}

func TestSlotOverlapIsHalfOpen(t *testing.T) {
	slot := &AvailabilitySlot{StartTime: NewTimeOfDay(8, 0), EndTime: NewTimeOfDay(12, 0)}

	assert.True(t, slot.Overlaps(NewTimeOfDay(11, 0), NewTimeOfDay(13, 0)))
	assert.True(t, slot.Overlaps(NewTimeOfDay(7, 0), NewTimeOfDay(8, 1)))
	assert.True(t, slot.Overlaps(NewTimeOfDay(9, 0), NewTimeOfDay(10, 0)))
	assert.False(t, slot.Overlaps(NewTimeOfDay(12, 0), NewTimeOfDay(13, 0)))
	assert.False(t, slot.Overlaps(NewTimeOfDay(6, 0), NewTimeOfDay(8, 0)))

	assert.True(t, slot.Contains(NewTimeOfDay(8, 0)))
	assert.True(t, slot.Contains(NewTimeOfDay(11, 59)))
	assert.False(t, slot.Contains(NewTimeOfDay(12, 0)))
}

func TestVisitStatusTerminal(t *testing.T) {
	assert.False(t, VisitStatusWaiting.IsTerminal())
	assert.False(t, VisitStatusInProgress.IsTerminal())
	assert.True(t, VisitStatusCompleted.IsTerminal())
	assert.True(t, VisitStatusCancelled.IsTerminal())
	assert.False(t, VisitStatus("unknown").Valid())
}

func TestPagination(t *testing.T) {
	assert.Equal(t, 50, Pagination{}.Limit())
	assert.Equal(t, 200, Pagination{PageSize: 1000}.Limit())
	assert.Equal(t, 0, Pagination{Page: 1, PageSize: 10}.Offset())
	assert.Equal(t, 20, Pagination{Page: 3, PageSize: 10}.Offset())
}
