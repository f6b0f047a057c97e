package wager

import (
	"slices"
	"time"
)

// Patch is a partial update produced by one stage. Zero-valued fields mean
// "no change"; Apply never replaces a known value with an empty one.
type Patch struct {
	Utterance    string
	Messages     []Message
	Stage        Stage
	Intent       Intent
	ParticipantA *Participant
	ParticipantB *Participant
	Prediction   string
	// Event fills event fields that are still absent.
	Event *Event
	// Enrichment overrides event fields with looked-up canonical values.
	Enrichment *Event
	Stake      *Stake
	Output     *Record
	At         time.Time
}

// IsEmpty reports whether applying p would change no wager field.
func (p Patch) IsEmpty() bool {
	return p.Utterance == "" && len(p.Messages) == 0 && p.Stage == "" && p.Intent == "" &&
		p.ParticipantA == nil && p.ParticipantB == nil && p.Prediction == "" &&
		p.Event == nil && p.Enrichment == nil && p.Stake == nil && p.Output == nil
}

// Apply merges p into s and returns the result. s is not modified. A frozen
// state is returned unchanged. MissingFields is always recomputed.
func Apply(s State, p Patch) State {
	if s.Frozen() {
		return s
	}

	next := s
	if p.Utterance != "" {
		next.Utterance = p.Utterance
	}
	if len(p.Messages) > 0 {
		next.History = slices.Concat(s.History, p.Messages)
	}
	if p.Intent != "" {
		next.Intent = p.Intent
	}

	next.ParticipantA = mergeParticipant(s.ParticipantA, p.ParticipantA)
	next.ParticipantB = mergeParticipant(s.ParticipantB, p.ParticipantB)
	if next.Prediction == "" {
		next.Prediction = p.Prediction
	}
	next.Event = enrichEvent(mergeEvent(s.Event, p.Event), p.Enrichment)
	next.Stake = mergeStake(s.Stake, p.Stake)

	if p.Output != nil {
		rec := *p.Output
		next.Output = &rec
	}
	if p.Stage != "" && (p.Stage != StageComplete || next.Output != nil) {
		next.Stage = p.Stage
	}
	if !p.At.IsZero() {
		next.UpdatedAt = p.At
	}

	next.MissingFields = Missing(next)
	return next
}

func mergeParticipant(cur, p *Participant) *Participant {
	if p == nil {
		return cur
	}
	if cur == nil {
		c := *p
		return &c
	}
	m := *cur
	if m.Name == "" {
		m.Name = p.Name
	}
	if m.Address == "" {
		m.Address = p.Address
	}
	return &m
}

func mergeEvent(cur, p *Event) *Event {
	if p == nil {
		return cur
	}
	if cur == nil {
		return p.clone()
	}
	m := cur.clone()
	fillString(&m.Description, p.Description)
	fillString(&m.Timeframe, p.Timeframe)
	fillString(&m.Category, p.Category)
	fillString(&m.Venue, p.Venue)
	fillTime(&m.EventTime, p.EventTime)
	fillTime(&m.BettingDeadline, p.BettingDeadline)
	fillTime(&m.ResolutionTime, p.ResolutionTime)
	if len(m.Outcomes) == 0 {
		m.Outcomes = slices.Clone(p.Outcomes)
	}
	return m
}

func enrichEvent(cur, p *Event) *Event {
	if p == nil {
		return cur
	}
	if cur == nil {
		return p.clone()
	}
	m := cur.clone()
	overrideString(&m.Description, p.Description)
	overrideString(&m.Timeframe, p.Timeframe)
	overrideString(&m.Category, p.Category)
	overrideString(&m.Venue, p.Venue)
	overrideTime(&m.EventTime, p.EventTime)
	overrideTime(&m.BettingDeadline, p.BettingDeadline)
	overrideTime(&m.ResolutionTime, p.ResolutionTime)
	if len(p.Outcomes) > 0 {
		m.Outcomes = slices.Clone(p.Outcomes)
	}
	return m
}

func mergeStake(cur, p *Stake) *Stake {
	if p == nil {
		return cur
	}
	var m Stake
	if cur != nil {
		m = *cur
	}
	if m.Amount <= 0 && p.Amount > 0 {
		m.Amount = p.Amount
	}
	fillString(&m.TokenSymbol, p.TokenSymbol)
	m.TotalPot = m.Amount * 2
	return &m
}

func fillString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func fillTime(dst **time.Time, v *time.Time) {
	if *dst == nil {
		*dst = cloneTime(v)
	}
}

func overrideTime(dst **time.Time, v *time.Time) {
	if v != nil {
		*dst = cloneTime(v)
	}
}
