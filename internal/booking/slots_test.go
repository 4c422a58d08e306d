package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minuteMark(min int) time.Time {
	return time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC).Add(time.Duration(min) * time.Minute)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{"identical", minuteMark(0), minuteMark(30), minuteMark(0), minuteMark(30), true},
		{"contained", minuteMark(0), minuteMark(60), minuteMark(15), minuteMark(30), true},
		{"partial overlap", minuteMark(0), minuteMark(30), minuteMark(15), minuteMark(45), true},
		{"back-to-back", minuteMark(0), minuteMark(30), minuteMark(30), minuteMark(60), false},
		{"back-to-back reversed", minuteMark(30), minuteMark(60), minuteMark(0), minuteMark(30), false},
		{"disjoint", minuteMark(0), minuteMark(30), minuteMark(60), minuteMark(90), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
		})
	}
}

func TestWindowSlots(t *testing.T) {
	window := Window{Start: minuteMark(0), End: minuteMark(180)} // 09:00-12:00

	var got []Slot
	for slot := range window.Slots(30 * time.Minute) {
		got = append(got, slot)
	}

	require.Len(t, got, 6)
	for i, slot := range got {
		assert.True(t, slot.Start.Equal(minuteMark(i*30)), "slot %d start", i)
		assert.True(t, slot.End.Equal(minuteMark(i*30+30)), "slot %d end", i)
	}
}

func TestWindowSlots_NoPartialTrailingSlot(t *testing.T) {
	window := Window{Start: minuteMark(0), End: minuteMark(75)} // 09:00-10:15

	var got []Slot
	for slot := range window.Slots(30 * time.Minute) {
		got = append(got, slot)
	}

	require.Len(t, got, 2)
	assert.True(t, got[1].End.Equal(minuteMark(60)))
}

func TestWindowSlots_Restartable(t *testing.T) {
	window := Window{Start: minuteMark(0), End: minuteMark(90)}
	seq := window.Slots(30 * time.Minute)

	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}

	assert.Equal(t, 3, count())
	assert.Equal(t, 3, count(), "sequence should be restartable")
}

func TestWindowSlots_InvalidDuration(t *testing.T) {
	window := Window{Start: minuteMark(0), End: minuteMark(90)}

	for range window.Slots(0) {
		t.Fatal("no slots expected for zero duration")
	}
}

func TestSubSlots(t *testing.T) {
	got := SubSlots(minuteMark(0), 3, 30*time.Minute)

	require.Len(t, got, 3)
	assert.True(t, got[0].Start.Equal(minuteMark(0)))
	assert.True(t, got[1].Start.Equal(minuteMark(30)))
	assert.True(t, got[2].Start.Equal(minuteMark(60)))
	assert.True(t, got[2].End.Equal(minuteMark(90)))
}
