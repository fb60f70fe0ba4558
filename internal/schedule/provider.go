package schedule

import (
	"regexp"
	"strings"
	"time"
)

// Provider generates slots relative to its clock.
type Provider struct {
	now func() time.Time
	loc *time.Location
}

// Option configures a Provider.
type Option func(*Provider)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLocation sets the clinic time zone used to decide what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(p *Provider) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// NewProvider returns a provider using the system clock in UTC unless
// configured otherwise.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ClinicLocation resolves a clinic time zone, falling back to UTC.
func ClinicLocation(timezone string) *time.Location {
	if timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WeeklySlots returns every weekday slot in the 7-day window starting today.
func (p *Provider) WeeklySlots() []TimeSlot {
	today := p.now().In(p.loc)
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, p.loc)

	slots := make([]TimeSlot, 0, 5*len(dailyTimes))
	for i := 0; i < windowDays; i++ {
		day := start.AddDate(0, 0, i)
		if isWeekend(day.Weekday()) {
			continue
		}
		for idx := range dailyTimes {
			slots = append(slots, newSlot(day, idx))
		}
	}
	return slots
}

// AvailableSlots filters WeeklySlots to open times.
func (p *Provider) AvailableSlots() []TimeSlot {
	var out []TimeSlot
	for _, s := range p.WeeklySlots() {
		if s.Available {
			out = append(out, s)
		}
	}
	return out
}

// DemoSlots always returns exactly two slots, preferring Thursday 2:30 PM and
// 5:10 PM.
func (p *Provider) DemoSlots() []TimeSlot {
	all := p.WeeklySlots()
	var first, second *TimeSlot
	for i := range all {
		s := all[i]
		if s.Day != demoDay.String() {
			continue
		}
		switch {
		case s.Time == demoFirstTime && first == nil:
			first = &all[i]
		case s.Time == demoSecondTime && second == nil:
			second = &all[i]
		}
	}
	if first != nil && second != nil {
		return []TimeSlot{*first, *second}
	}

	out := make([]TimeSlot, 0, demoSlotCount)
	for _, s := range all {
		if s.Available {
			out = append(out, s)
			if len(out) == demoSlotCount {
				return out
			}
		}
	}
	// Fewer than two open slots can only happen with a custom table; pad from
	// the full list so callers always get two.
	for _, s := range all {
		if len(out) == demoSlotCount {
			break
		}
		if !containsSlot(out, s.ID) {
			out = append(out, s)
		}
	}
	return out
}

// MockExistingBooking returns the canned Friday morning appointment, or the
// first generated slot when Friday 10:00 is outside the window.
func (p *Provider) MockExistingBooking() ExistingBooking {
	all := p.WeeklySlots()
	booking := ExistingBooking{Service: bookedService, Provider: bookedProvider}
	for _, s := range all {
		if s.Day == bookedDay.String() && s.Time == bookedTime {
			booking.Slot = s
			return booking
		}
	}
	if len(all) > 0 {
		booking.Slot = all[0]
	}
	return booking
}

// RescheduleOptions returns up to two open slots other than excludeID.
func (p *Provider) RescheduleOptions(excludeID string) []TimeSlot {
	out := make([]TimeSlot, 0, rescheduleLimit)
	for _, s := range p.AvailableSlots() {
		if s.ID == excludeID {
			continue
		}
		out = append(out, s)
		if len(out) == rescheduleLimit {
			break
		}
	}
	return out
}

func containsSlot(slots []TimeSlot, id string) bool {
	for _, s := range slots {
		if s.ID == id {
			return true
		}
	}
	return false
}

var namePattern = regexp.MustCompile(`^[A-Za-z\s'-]+$`)

// IsValidName accepts letters, spaces, hyphens and apostrophes, two
// characters minimum after trimming.
func IsValidName(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) >= 2 && namePattern.MatchString(s)
}

// IsValidPhone requires exactly 10 digits once formatting is stripped.
func IsValidPhone(s string) bool {
	return len(DigitsOnly(s)) == 10
}

// DigitsOnly strips every non-digit rune.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
