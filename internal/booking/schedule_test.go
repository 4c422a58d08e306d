package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "09:00", want: 540},
		{in: "17:30", want: 1050},
		{in: "23:59", want: 1439},
		{in: "9:00", wantErr: true},
		{in: "24:00", wantErr: true},
		{in: "09:60", wantErr: true},
		{in: "0900", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDayWindow(t *testing.T) {
	schedule := []ScheduleEntry{
		{Day: "MONDAY", From: "09:00", To: "12:00"},
		{Day: "FRIDAY", From: "10:00", To: "16:00"},
	}
	monday := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	window, open, err := ResolveDayWindow(schedule, monday)
	require.NoError(t, err)
	require.True(t, open)
	assert.True(t, window.Start.Equal(time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)))
	assert.True(t, window.End.Equal(time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)))
}

func TestResolveDayWindow_ClosedDay(t *testing.T) {
	schedule := []ScheduleEntry{{Day: "MONDAY", From: "09:00", To: "12:00"}}
	tuesday := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)

	_, open, err := ResolveDayWindow(schedule, tuesday)
	require.NoError(t, err)
	assert.False(t, open)
}

func TestResolveDayWindow_FirstMatchWins(t *testing.T) {
	schedule := []ScheduleEntry{
		{Day: "MONDAY", From: "09:00", To: "12:00"},
		{Day: "MONDAY", From: "14:00", To: "18:00"},
	}
	monday := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	window, open, err := ResolveDayWindow(schedule, monday)
	require.NoError(t, err)
	require.True(t, open)
	assert.Equal(t, 9, window.Start.Hour())
	assert.Equal(t, 12, window.End.Hour())
}

func TestResolveDayWindow_KeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	schedule := []ScheduleEntry{{Day: "MONDAY", From: "09:00", To: "12:00"}}
	monday := time.Date(2026, time.March, 2, 0, 0, 0, 0, loc)

	window, open, err := ResolveDayWindow(schedule, monday)
	require.NoError(t, err)
	require.True(t, open)
	assert.Equal(t, loc, window.Start.Location())
	assert.Equal(t, 9, window.Start.Hour())
}

func TestResolveDayWindow_InvalidEntry(t *testing.T) {
	monday := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	_, _, err := ResolveDayWindow([]ScheduleEntry{{Day: "MONDAY", From: "12:00", To: "09:00"}}, monday)
	assert.Error(t, err)

	_, _, err = ResolveDayWindow([]ScheduleEntry{{Day: "MONDAY", From: "9:00", To: "12:00"}}, monday)
	assert.Error(t, err)
}

func TestValidateSchedule(t *testing.T) {
	valid := []ScheduleEntry{
		{Day: "MONDAY", From: "09:00", To: "17:00"},
		{Day: "SATURDAY", From: "10:00", To: "14:00"},
	}
	assert.NoError(t, ValidateSchedule(valid))

	assert.Error(t, ValidateSchedule([]ScheduleEntry{{Day: "FUNDAY", From: "09:00", To: "17:00"}}))
	assert.Error(t, ValidateSchedule([]ScheduleEntry{{Day: "MONDAY", From: "09:00", To: "09:00"}}))
	assert.Error(t, ValidateSchedule([]ScheduleEntry{{Day: "MONDAY", From: "09:00", To: "7:00"}}))
}
