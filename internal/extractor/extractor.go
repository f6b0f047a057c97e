package extractor

import (
	"github.com/MikeSquared-Agency/slice/internal/wager"
)

// Extractor pulls wager fields out of free text with the ordered rule table.
// It does no I/O and is safe for concurrent use.
type Extractor struct {
	rules        []Rule
	defaultToken string
}

// New returns an Extractor that assigns defaultToken to amounts given without
// a token symbol ("$50", "bet 10").
func New(defaultToken string) *Extractor {
	return &Extractor{rules: rules, defaultToken: defaultToken}
}

// Match records which rule produced a field.
type Match struct {
	Field wager.Field
	Rule  string
}

// Result is the outcome of one extraction pass.
type Result struct {
	Patch   wager.Patch
	Matches []Match
}

// Extract matches utterance against the rule table. Fields already present in
// known are skipped entirely, so re-extracting a complete state yields an
// empty patch.
func (x *Extractor) Extract(utterance string, known wager.State) Result {
	var (
		out     Fields
		matches []Match
		fixture bool
	)

	for _, field := range wager.RequiredFields {
		if wager.Has(known, field) {
			continue
		}
		rule, f, ok := x.first(field, utterance)
		if !ok {
			continue
		}
		matches = append(matches, Match{Field: field, Rule: rule.Name})
		fixture = fixture || rule.Fixture
		out = merge(out, f)
	}

	// Recognised fixtures without a date are assumed upcoming rather than
	// asking the user for a timeframe.
	if out.Event != "" && fixture && out.Timeframe == "" && !wager.Has(known, wager.FieldTimeframe) {
		out.Timeframe = wager.TimeframeUpcoming
		matches = append(matches, Match{Field: wager.FieldTimeframe, Rule: "fixture_default"})
	}

	return Result{Patch: x.patch(out), Matches: matches}
}

// first returns the first rule of field whose pattern matches and whose
// Build accepts the match.
func (x *Extractor) first(field wager.Field, text string) (Rule, Fields, bool) {
	for _, r := range x.rules {
		if r.Field != field {
			continue
		}
		m := r.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if f, ok := r.Build(m, text); ok {
			return r, f, true
		}
	}
	return Rule{}, Fields{}, false
}

func merge(a, b Fields) Fields {
	if b.Participant != "" {
		a.Participant = b.Participant
	}
	if b.Event != "" {
		a.Event = b.Event
		a.Category = b.Category
	}
	if b.Timeframe != "" {
		a.Timeframe = b.Timeframe
	}
	if b.Amount > 0 {
		a.Amount = b.Amount
		a.Token = b.Token
	}
	if b.Prediction != "" {
		a.Prediction = b.Prediction
	}
	return a
}

func (x *Extractor) patch(f Fields) wager.Patch {
	var p wager.Patch
	if f.Participant != "" {
		p.ParticipantB = &wager.Participant{Name: f.Participant}
	}
	if f.Event != "" || f.Timeframe != "" {
		p.Event = &wager.Event{Description: f.Event, Category: f.Category, Timeframe: f.Timeframe}
	}
	if f.Amount > 0 {
		token := f.Token
		if token == "" {
			token = x.defaultToken
		}
		p.Stake = &wager.Stake{Amount: f.Amount, TokenSymbol: token, TotalPot: f.Amount * 2}
	}
	p.Prediction = f.Prediction
	return p
}
