// Package finalizer assembles the canonical wager record from a completed
// conversation state.
package finalizer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/slice/internal/wager"
)

// ErrIncomplete is returned when required fields are still missing.
var ErrIncomplete = errors.New("wager state incomplete")

// Finalizer builds wager records.
type Finalizer struct {
	ttl   time.Duration
	now   func() time.Time
	newID func(created time.Time) string
}

// New returns a Finalizer whose records expire ttl after creation.
func New(ttl time.Duration, now func() time.Time) *Finalizer {
	if now == nil {
		now = time.Now
	}
	return &Finalizer{ttl: ttl, now: now, newID: newID}
}

// newID is time-based with a random suffix. Uniqueness is best-effort.
func newID(created time.Time) string {
	return fmt.Sprintf("wager_%d_%s", created.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
}

// Finalize assembles the wager record for s. The creation time is the
// state's last update, so identical states give identical records apart from
// the id.
func (f *Finalizer) Finalize(s wager.State) (wager.Record, error) {
	if missing := wager.Missing(s); len(missing) > 0 {
		return wager.Record{}, fmt.Errorf("%w: missing %v", ErrIncomplete, missing)
	}

	created := s.UpdatedAt
	if created.IsZero() {
		created = f.now()
	}
	created = created.UTC()

	ev := s.Event
	prediction := s.Prediction

	playerA := wager.Player{Name: wager.DefaultPlayerAName, Prediction: &prediction}
	if a := s.ParticipantA; a != nil {
		if a.Name != "" {
			playerA.Name = a.Name
		}
		if a.Address != "" {
			addr := a.Address
			playerA.Address = &addr
		}
	}

	return wager.Record{
		ID: f.newID(created),
		Participants: wager.Players{
			PlayerA: playerA,
			PlayerB: wager.Player{Name: s.ParticipantB.Name},
		},
		WagerDetails: wager.WagerDetails{
			Description:     ev.Description,
			Category:        category(ev),
			Timeframe:       ev.Timeframe,
			EventDate:       utc(ev.EventTime),
			Venue:           ev.Venue,
			BettingDeadline: utc(ev.BettingDeadline),
			ResolutionTime:  utc(ev.ResolutionTime),
			BettingOptions:  ev.Outcomes,
			OracleQuery:     OracleQuery(ev),
		},
		Asset: wager.Asset{
			Amount:      s.Stake.Amount,
			TokenSymbol: s.Stake.TokenSymbol,
			TotalPot:    s.Stake.Amount * 2,
		},
		Status:    wager.StatusPending,
		CreatedAt: created,
		ExpiresAt: created.Add(f.ttl),
	}, nil
}

func category(ev *wager.Event) string {
	if ev.Category == "" {
		return "custom"
	}
	return ev.Category
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

type oracleRule struct {
	name   string
	match  func(ev *wager.Event) bool
	phrase func(what, when string) string
}

// oracleRules are tried in order; the last rule always matches.
var oracleRules = []oracleRule{
	{
		name:  "cricket",
		match: func(ev *wager.Event) bool { return ev.Category == "cricket" || mentions(ev, "cricket", "test match", " odi ", " t20", " ipl ") },
		phrase: func(what, when string) string {
			return fmt.Sprintf("Which team won the cricket match %s played %s? Answer with the winning team, or \"draw\" or \"no result\".", what, when)
		},
	},
	{
		name:  "fixture",
		match: func(ev *wager.Event) bool { return mentions(ev, " vs ", " vs. ", " v ", " versus ") },
		phrase: func(what, when string) string {
			return fmt.Sprintf("What was the final result of %s played %s? Answer with the winner, or \"draw\".", what, when)
		},
	},
	{
		name:  "election",
		match: func(ev *wager.Event) bool { return ev.Category == "politics" || mentions(ev, "election", " vote", "referendum") },
		phrase: func(what, when string) string {
			return fmt.Sprintf("Who won %s held %s? Answer with the winning candidate or option.", what, when)
		},
	},
	{
		name:  "generic",
		match: func(*wager.Event) bool { return true },
		phrase: func(what, when string) string {
			return fmt.Sprintf("Did the following happen %s: %s? Answer yes or no with a short explanation.", when, what)
		},
	},
}

// OracleQuery returns the question later used to verify the outcome of ev.
func OracleQuery(ev *wager.Event) string {
	when := ev.Timeframe
	switch {
	case ev.EventTime != nil:
		when = "on " + ev.EventTime.UTC().Format("January 2, 2006")
	case ev.Timeframe == wager.TimeframeUpcoming, ev.Timeframe == "":
		when = "at its next scheduled date"
	}
	for _, r := range oracleRules {
		if r.match(ev) {
			return r.phrase(ev.Description, when)
		}
	}
	return ""
}

func mentions(ev *wager.Event, words ...string) bool {
	d := " " + strings.ToLower(ev.Description) + " "
	for _, w := range words {
		if strings.Contains(d, w) {
			return true
		}
	}
	return false
}
