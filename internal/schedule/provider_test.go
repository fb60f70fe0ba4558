package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-10-19 is a Monday.
func fixedProvider(t *testing.T, value string) *Provider {
	t.Helper()
	now, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return NewProvider(WithClock(func() time.Time { return now }))
}

func TestWeeklySlots_WeekdaysOnly(t *testing.T) {
	p := fixedProvider(t, "2026-10-24T12:00:00Z") // Saturday
	slots := p.WeeklySlots()

	require.Len(t, slots, 5*len(dailyTimes))
	for _, s := range slots {
		assert.NotEqual(t, "Saturday", s.Day)
		assert.NotEqual(t, "Sunday", s.Day)
	}
	assert.Equal(t, "2026-10-26-0900", slots[0].ID)
	assert.Equal(t, "Monday", slots[0].Day)
	assert.Equal(t, "9:00 AM", slots[0].DisplayTime)
}

func TestWeeklySlots_DeterministicUnavailable(t *testing.T) {
	p := fixedProvider(t, "2026-10-19T08:00:00Z")
	a := p.WeeklySlots()
	b := p.WeeklySlots()
	assert.Equal(t, a, b)

	byID := map[string]TimeSlot{}
	for _, s := range a {
		byID[s.ID] = s
	}
	assert.False(t, byID["2026-10-19-1000"].Available)
	assert.False(t, byID["2026-10-22-1545"].Available)
	assert.True(t, byID["2026-10-22-1430"].Available)
	assert.Len(t, p.AvailableSlots(), 20)
}

func TestWeeklySlots_UsesClinicLocation(t *testing.T) {
	now, err := time.Parse(time.RFC3339, "2026-10-20T02:00:00Z") // Monday evening in New York
	require.NoError(t, err)
	p := NewProvider(
		WithClock(func() time.Time { return now }),
		WithLocation(ClinicLocation("America/New_York")),
	)
	assert.Equal(t, "2026-10-19", p.WeeklySlots()[0].Date)
}

func TestDemoSlots(t *testing.T) {
	starts := []string{
		"2026-10-19T08:00:00Z",
		"2026-10-22T20:00:00Z",
		"2026-10-23T08:00:00Z",
		"2026-10-25T08:00:00Z",
	}
	for _, start := range starts {
		t.Run(start, func(t *testing.T) {
			slots := fixedProvider(t, start).DemoSlots()
			require.Len(t, slots, 2)
			assert.Equal(t, "Thursday", slots[0].Day)
			assert.Equal(t, "2:30 PM", slots[0].DisplayTime)
			assert.Equal(t, "5:10 PM", slots[1].DisplayTime)
		})
	}
}

func TestMockExistingBooking(t *testing.T) {
	booking := fixedProvider(t, "2026-10-19T08:00:00Z").MockExistingBooking()
	assert.Equal(t, "Friday", booking.Slot.Day)
	assert.Equal(t, "10:00", booking.Slot.Time)
	assert.Equal(t, "Botox", booking.Service)
}

func TestRescheduleOptions(t *testing.T) {
	p := fixedProvider(t, "2026-10-19T08:00:00Z")
	opts := p.RescheduleOptions("2026-10-19-0900")
	require.Len(t, opts, 2)
	assert.Equal(t, "2026-10-19-1130", opts[0].ID)
	assert.Equal(t, "2026-10-19-1430", opts[1].ID)
	for _, s := range opts {
		assert.True(t, s.Available)
	}
}

func TestIsValidPhone(t *testing.T) {
	assert.True(t, IsValidPhone("555-123-4567"))
	assert.True(t, IsValidPhone("(555) 123 4567"))
	assert.True(t, IsValidPhone("5551234567"))
	assert.False(t, IsValidPhone("12345"))
	assert.False(t, IsValidPhone("+1 555 123 4567"))
	assert.False(t, IsValidPhone(""))
}

func TestIsValidName(t *testing.T) {
	assert.True(t, IsValidName("O'Brien"))
	assert.True(t, IsValidName("Jane"))
	assert.True(t, IsValidName("  Mary-Kate  "))
	assert.False(t, IsValidName("X"))
	assert.False(t, IsValidName("5551234567"))
	assert.False(t, IsValidName("Jane3"))
	assert.False(t, IsValidName("   "))
}

func TestSlotLabel(t *testing.T) {
	s := TimeSlot{Day: "Thursday", DisplayTime: "2:30 PM"}
	assert.Equal(t, "Thursday 2:30 PM", s.Label())
}
