package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeCalculatorName is the registry name of the time-resolution tool.
const TimeCalculatorName = "time_calculator"

// ErrUnresolvableDate is returned for dates the calculator cannot pin down,
// such as "upcoming" or "next week".
var ErrUnresolvableDate = errors.New("unresolvable event date")

// Timing holds the offsets the calculator derives from an event start.
type Timing struct {
	DeadlineOffset   time.Duration
	ResolutionWindow time.Duration
	// DefaultTime is the "HH:MM" start used when no time is given.
	DefaultTime string
}

// TimingArgs is the input of the time calculator.
type TimingArgs struct {
	EventDate string `json:"event_date"`
	EventTime string `json:"event_time,omitempty"`
}

// TimeUntil breaks down the time left before an event.
type TimeUntil struct {
	TotalHours    int    `json:"total_hours"`
	Days          int    `json:"days"`
	Hours         int    `json:"hours"`
	HumanReadable string `json:"human_readable"`
}

// TimingResult is the output of the time calculator. All times are UTC.
type TimingResult struct {
	Success         bool      `json:"success"`
	CurrentTime     time.Time `json:"current_time"`
	EventDatetime   time.Time `json:"event_datetime"`
	TimeUntilEvent  TimeUntil `json:"time_until_event"`
	BettingDeadline time.Time `json:"betting_deadline"`
	ResolutionTime  time.Time `json:"resolution_time"`
	IsBettingOpen   bool      `json:"is_betting_open"`
}

// TimeCalculator resolves an event date into an absolute start time, betting
// deadline and resolution time.
type TimeCalculator struct {
	timing Timing
	now    func() time.Time
}

// NewTimeCalculator returns a calculator reading the current moment from now.
// Relative dates resolve in now's location.
func NewTimeCalculator(timing Timing, now func() time.Time) *TimeCalculator {
	if now == nil {
		now = time.Now
	}
	return &TimeCalculator{timing: timing, now: now}
}

func (c *TimeCalculator) Name() string { return TimeCalculatorName }

func (c *TimeCalculator) Description() string {
	return "Calculate time until event and determine betting deadlines"
}

func (c *TimeCalculator) Invoke(_ context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var args TimingArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("parse timing args: %w", err)
	}
	res, err := c.Compute(args.EventDate, args.EventTime)
	if err != nil {
		return nil, err
	}
	return json.Marshal(res)
}

// Compute resolves eventDate and optional eventTime relative to now.
func (c *TimeCalculator) Compute(eventDate, eventTime string) (TimingResult, error) {
	now := c.now()
	start, err := c.resolve(now, eventDate, eventTime)
	if err != nil {
		return TimingResult{}, err
	}

	until := start.Sub(now)
	totalHours := int(math.Floor(until.Hours()))
	deadline := start.Add(-c.timing.DeadlineOffset)

	return TimingResult{
		Success:       true,
		CurrentTime:   now.UTC(),
		EventDatetime: start.UTC(),
		TimeUntilEvent: TimeUntil{
			TotalHours:    totalHours,
			Days:          floorDiv(totalHours, 24),
			Hours:         totalHours - floorDiv(totalHours, 24)*24,
			HumanReadable: humanUntil(totalHours),
		},
		BettingDeadline: deadline.UTC(),
		ResolutionTime:  start.Add(c.timing.ResolutionWindow).UTC(),
		IsBettingOpen:   now.Before(deadline),
	}, nil
}

var (
	clockRE    = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
	ordinalRE  = regexp.MustCompile(`(\d)(st|nd|rd|th)\b`)
	weekdayIdx = map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
		"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
	}
	absoluteLayouts = []string{"2006-01-02", "January 2 2006", "Jan 2 2006", "2 January 2006", "2 Jan 2006"}
	monthDayLayouts = []string{"January 2", "Jan 2", "2 January", "2 Jan", "2 of January", "2 of Jan"}
)

func (c *TimeCalculator) resolve(now time.Time, date, clock string) (time.Time, error) {
	d := strings.ToLower(strings.Join(strings.Fields(date), " "))
	if d == "" {
		return time.Time{}, ErrUnresolvableDate
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(date)); err == nil {
		return t.In(now.Location()), nil
	}

	hour, minute, err := c.clock(clock)
	if err != nil {
		return time.Time{}, err
	}
	at := func(day time.Time) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())
	}

	switch d {
	case "today", "tonight":
		return at(now), nil
	case "tomorrow":
		return at(now.AddDate(0, 0, 1)), nil
	case "day after tomorrow":
		return at(now.AddDate(0, 0, 2)), nil
	}

	if wd, ok := weekdayIdx[strings.TrimPrefix(strings.TrimPrefix(d, "this "), "next ")]; ok {
		days := (int(wd) - int(now.Weekday()) + 7) % 7
		if days == 0 && strings.HasPrefix(d, "next ") {
			days = 7
		}
		return at(now.AddDate(0, 0, days)), nil
	}

	cleaned := ordinalRE.ReplaceAllString(strings.ReplaceAll(d, ",", ""), "$1")
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, titleMonths(cleaned), now.Location()); err == nil {
			return at(t), nil
		}
	}
	for _, layout := range monthDayLayouts {
		if t, err := time.ParseInLocation(layout, titleMonths(cleaned), now.Location()); err == nil {
			day := time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())
			if at(day).Before(now) {
				day = day.AddDate(1, 0, 0)
			}
			return at(day), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q: %w", date, ErrUnresolvableDate)
}

func (c *TimeCalculator) clock(s string) (int, int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		s = c.timing.DefaultTime
	}
	m := clockRE.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid event time %q", s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid event time %q", s)
	}
	return hour, minute, nil
}

// titleMonths capitalises words so that Go's month-name layouts match.
func titleMonths(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w != "of" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func humanUntil(hours int) string {
	switch {
	case hours < 0:
		return "Event has passed"
	case hours < 24:
		return fmt.Sprintf("%d hours", hours)
	}
	days, rem := hours/24, hours%24
	if rem > 0 {
		return fmt.Sprintf("%d days and %d hours", days, rem)
	}
	return fmt.Sprintf("%d days", days)
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}
