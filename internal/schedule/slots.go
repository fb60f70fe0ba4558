// Package schedule supplies mock appointment availability for the demo.
// Nothing here touches a real calendar; every call derives its result from
// the provider clock.
package schedule

import (
	"fmt"
	"time"
)

// TimeSlot is one bookable time. IDs are only stable within a single day.
type TimeSlot struct {
	ID          string `json:"id"`
	Day         string `json:"day"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	DisplayTime string `json:"display_time"`
	Available   bool   `json:"available"`
}

// Label renders the slot the way the chat shows it, e.g. "Thursday 2:30 PM".
func (s TimeSlot) Label() string {
	return s.Day + " " + s.DisplayTime
}

// ExistingBooking is the canned appointment used by the reschedule flow.
type ExistingBooking struct {
	Slot     TimeSlot `json:"slot"`
	Service  string   `json:"service"`
	Provider string   `json:"provider"`
}

type slotTime struct {
	hour, minute int
}

// dailyTimes are the fixed offsets generated for every weekday.
var dailyTimes = []slotTime{
	{9, 0},
	{10, 0},
	{11, 30},
	{14, 30},
	{15, 45},
	{17, 10},
}

// unavailable marks slot indexes into dailyTimes that are pre-booked.
var unavailable = map[time.Weekday][]int{
	time.Monday:    {1, 4},
	time.Tuesday:   {0, 3},
	time.Wednesday: {2, 5},
	time.Thursday:  {1, 4},
	time.Friday:    {2, 5},
}

const windowDays = 7

const (
	demoDay         = time.Thursday
	demoFirstTime   = "14:30"
	demoSecondTime  = "17:10"
	bookedDay       = time.Friday
	bookedTime      = "10:00"
	bookedService   = "Botox"
	bookedProvider  = "Nurse Amy"
	demoSlotCount   = 2
	rescheduleLimit = 2
)

func newSlot(day time.Time, idx int) TimeSlot {
	st := dailyTimes[idx]
	at := time.Date(day.Year(), day.Month(), day.Day(), st.hour, st.minute, 0, 0, day.Location())
	return TimeSlot{
		ID:          fmt.Sprintf("%s-%02d%02d", at.Format("2006-01-02"), st.hour, st.minute),
		Day:         at.Weekday().String(),
		Date:        at.Format("2006-01-02"),
		Time:        at.Format("15:04"),
		DisplayTime: at.Format("3:04 PM"),
		Available:   !isUnavailable(at.Weekday(), idx),
	}
}

func isUnavailable(day time.Weekday, idx int) bool {
	for _, i := range unavailable[day] {
		if i == idx {
			return true
		}
	}
	return false
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}
