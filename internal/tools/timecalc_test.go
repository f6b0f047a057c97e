package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// Tuesday.
var fixedNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func testCalculator() *TimeCalculator {
	return NewTimeCalculator(Timing{
		DeadlineOffset:   2 * time.Hour,
		ResolutionWindow: 5 * time.Hour,
		DefaultTime:      "19:30",
	}, func() time.Time { return fixedNow })
}

func TestCompute_ResolvesDates(t *testing.T) {
	tests := []struct {
		date, clock string
		want        time.Time
	}{
		{"today", "", time.Date(2025, 6, 10, 19, 30, 0, 0, time.UTC)},
		{"Tonight", "", time.Date(2025, 6, 10, 19, 30, 0, 0, time.UTC)},
		{"tomorrow", "", time.Date(2025, 6, 11, 19, 30, 0, 0, time.UTC)},
		{"tomorrow", "15:00", time.Date(2025, 6, 11, 15, 0, 0, 0, time.UTC)},
		{"tomorrow", "7pm", time.Date(2025, 6, 11, 19, 0, 0, 0, time.UTC)},
		{"tomorrow", "12 am", time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)},
		{"day after tomorrow", "", time.Date(2025, 6, 12, 19, 30, 0, 0, time.UTC)},
		{"friday", "", time.Date(2025, 6, 13, 19, 30, 0, 0, time.UTC)},
		{"this saturday", "", time.Date(2025, 6, 14, 19, 30, 0, 0, time.UTC)},
		{"tuesday", "", time.Date(2025, 6, 10, 19, 30, 0, 0, time.UTC)},
		{"next tuesday", "", time.Date(2025, 6, 17, 19, 30, 0, 0, time.UTC)},
		{"2025-06-20", "", time.Date(2025, 6, 20, 19, 30, 0, 0, time.UTC)},
		{"2025-06-20T18:00:00Z", "", time.Date(2025, 6, 20, 18, 0, 0, 0, time.UTC)},
		{"June 20, 2025", "", time.Date(2025, 6, 20, 19, 30, 0, 0, time.UTC)},
		{"15th of June", "", time.Date(2025, 6, 15, 19, 30, 0, 0, time.UTC)},
		{"June 15", "20:00", time.Date(2025, 6, 15, 20, 0, 0, 0, time.UTC)},
		{"March 15th", "", time.Date(2026, 3, 15, 19, 30, 0, 0, time.UTC)},
		{"1 Jul", "", time.Date(2025, 7, 1, 19, 30, 0, 0, time.UTC)},
	}

	c := testCalculator()
	for _, tt := range tests {
		t.Run(tt.date+"/"+tt.clock, func(t *testing.T) {
			res, err := c.Compute(tt.date, tt.clock)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !res.EventDatetime.Equal(tt.want) {
				t.Errorf("expected %s, got %s", tt.want, res.EventDatetime)
			}
		})
	}
}

func TestCompute_DerivedTimes(t *testing.T) {
	res, err := testCalculator().Compute("today", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2025, 6, 10, 17, 30, 0, 0, time.UTC); !res.BettingDeadline.Equal(want) {
		t.Errorf("expected deadline %s, got %s", want, res.BettingDeadline)
	}
	if want := time.Date(2025, 6, 11, 0, 30, 0, 0, time.UTC); !res.ResolutionTime.Equal(want) {
		t.Errorf("expected resolution %s, got %s", want, res.ResolutionTime)
	}
	if !res.IsBettingOpen {
		t.Error("expected betting to be open")
	}
	if res.TimeUntilEvent.TotalHours != 7 || res.TimeUntilEvent.HumanReadable != "7 hours" {
		t.Errorf("unexpected time until event: %+v", res.TimeUntilEvent)
	}
	if !res.CurrentTime.Equal(fixedNow) {
		t.Errorf("expected current time %s, got %s", fixedNow, res.CurrentTime)
	}
}

func TestCompute_TimeUntilBreakdown(t *testing.T) {
	res, err := testCalculator().Compute("tomorrow", "15:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := res.TimeUntilEvent
	if got.TotalHours != 27 || got.Days != 1 || got.Hours != 3 {
		t.Errorf("unexpected breakdown: %+v", got)
	}
	if got.HumanReadable != "1 days and 3 hours" {
		t.Errorf("expected '1 days and 3 hours', got %q", got.HumanReadable)
	}
}

func TestCompute_PastEvent(t *testing.T) {
	res, err := testCalculator().Compute("2025-06-01", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsBettingOpen {
		t.Error("expected betting to be closed for a past event")
	}
	if res.TimeUntilEvent.HumanReadable != "Event has passed" {
		t.Errorf("expected 'Event has passed', got %q", res.TimeUntilEvent.HumanReadable)
	}
}

func TestCompute_ClosesInsideDeadline(t *testing.T) {
	c := NewTimeCalculator(Timing{DeadlineOffset: 2 * time.Hour, ResolutionWindow: 5 * time.Hour, DefaultTime: "13:00"},
		func() time.Time { return fixedNow })
	res, err := c.Compute("today", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsBettingOpen {
		t.Error("expected betting closed one hour before start")
	}
}

func TestCompute_Unresolvable(t *testing.T) {
	c := testCalculator()
	for _, date := range []string{"", "upcoming", "next week", "soon"} {
		if _, err := c.Compute(date, ""); !errors.Is(err, ErrUnresolvableDate) {
			t.Errorf("%q: expected ErrUnresolvableDate, got %v", date, err)
		}
	}
}

func TestCompute_InvalidTime(t *testing.T) {
	c := testCalculator()
	for _, clock := range []string{"25:00", "noonish", "7:99"} {
		if _, err := c.Compute("tomorrow", clock); err == nil {
			t.Errorf("%q: expected error", clock)
		}
	}
}

func TestTimeCalculator_Invoke(t *testing.T) {
	c := testCalculator()
	out, err := c.Invoke(context.Background(), json.RawMessage(`{"event_date":"tomorrow","event_time":"18:00"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var res TimingResult
	if err := json.Unmarshal(out, &res); err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	if !res.Success {
		t.Error("expected success")
	}
	if want := time.Date(2025, 6, 11, 16, 0, 0, 0, time.UTC); !res.BettingDeadline.Equal(want) {
		t.Errorf("expected deadline %s, got %s", want, res.BettingDeadline)
	}

	if _, err := c.Invoke(context.Background(), json.RawMessage(`not json`)); err == nil {
		t.Error("expected error for malformed args")
	}
}

func TestCompute_LocalZone(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, loc)
	c := NewTimeCalculator(Timing{DeadlineOffset: 2 * time.Hour, ResolutionWindow: 5 * time.Hour, DefaultTime: "19:30"},
		func() time.Time { return now })

	res, err := c.Compute("tomorrow", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2025, 6, 11, 14, 0, 0, 0, time.UTC); !res.EventDatetime.Equal(want) {
		t.Errorf("expected %s, got %s", want, res.EventDatetime)
	}
	if res.EventDatetime.Location() != time.UTC {
		t.Errorf("expected UTC output, got %s", res.EventDatetime.Location())
	}
}
