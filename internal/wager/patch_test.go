package wager

import (
	"testing"
	"time"
)

func completeState() State {
	s := NewState("conv-1", "0x1234567890123456789012345678901234567890")
	return Apply(s, Patch{
		ParticipantB: &Participant{Name: "Alex"},
		Prediction:   "India",
		Event:        &Event{Description: "India vs England", Timeframe: "tomorrow", Category: "cricket"},
		Stake:        &Stake{Amount: 1, TokenSymbol: "USDC"},
	})
}

func TestApply_NeverClobbersDefinedFields(t *testing.T) {
	s := completeState()

	next := Apply(s, Patch{
		ParticipantB: &Participant{Name: ""},
		Prediction:   "",
		Event:        &Event{Description: "", Timeframe: ""},
		Stake:        &Stake{Amount: 0, TokenSymbol: ""},
	})

	if next.ParticipantB.Name != "Alex" {
		t.Errorf("expected participant Alex, got %q", next.ParticipantB.Name)
	}
	if next.Prediction != "India" {
		t.Errorf("expected prediction India, got %q", next.Prediction)
	}
	if next.Event.Description != "India vs England" || next.Event.Timeframe != "tomorrow" {
		t.Errorf("event clobbered: %+v", next.Event)
	}
	if next.Stake.Amount != 1 || next.Stake.TokenSymbol != "USDC" {
		t.Errorf("stake clobbered: %+v", next.Stake)
	}
}

func TestApply_FillsOnlyAbsentFields(t *testing.T) {
	s := completeState()

	next := Apply(s, Patch{
		ParticipantB: &Participant{Name: "Bob", Address: "0xabc"},
		Prediction:   "England",
		Event:        &Event{Description: "Lakers vs Warriors", Venue: "Lord's"},
		Stake:        &Stake{Amount: 50, TokenSymbol: "DAI"},
	})

	if next.ParticipantB.Name != "Alex" {
		t.Errorf("expected name to stay Alex, got %q", next.ParticipantB.Name)
	}
	if next.ParticipantB.Address != "0xabc" {
		t.Errorf("expected absent address to be filled, got %q", next.ParticipantB.Address)
	}
	if next.Prediction != "India" {
		t.Errorf("expected prediction India, got %q", next.Prediction)
	}
	if next.Event.Description != "India vs England" {
		t.Errorf("expected description unchanged, got %q", next.Event.Description)
	}
	if next.Event.Venue != "Lord's" {
		t.Errorf("expected venue filled, got %q", next.Event.Venue)
	}
	if next.Stake.Amount != 1 || next.Stake.TokenSymbol != "USDC" {
		t.Errorf("expected stake unchanged, got %+v", next.Stake)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	s := NewState("conv-1", "")
	s = Apply(s, Patch{Event: &Event{Description: "cricket match"}, Messages: []Message{{Speaker: SpeakerHuman, Text: "hi"}}})

	_ = Apply(s, Patch{
		Event:      &Event{Timeframe: "tomorrow"},
		Enrichment: &Event{Venue: "Lord's"},
		Messages:   []Message{{Speaker: SpeakerAI, Text: "hello"}},
	})

	if s.Event.Timeframe != "" || s.Event.Venue != "" {
		t.Errorf("input state mutated: %+v", s.Event)
	}
	if len(s.History) != 1 {
		t.Errorf("input history mutated: %d messages", len(s.History))
	}
}

func TestApply_EnrichmentSupersedesButNeverEmpties(t *testing.T) {
	s := completeState()
	at := time.Date(2026, 10, 20, 19, 30, 0, 0, time.UTC)

	next := Apply(s, Patch{Enrichment: &Event{
		Description: "India vs England, 2nd ODI",
		Venue:       "Lord's",
		EventTime:   &at,
	}})

	if next.Event.Description != "India vs England, 2nd ODI" {
		t.Errorf("expected canonical description, got %q", next.Event.Description)
	}
	if next.Event.Timeframe != "tomorrow" {
		t.Errorf("expected timeframe kept, got %q", next.Event.Timeframe)
	}
	if next.Event.Category != "cricket" {
		t.Errorf("expected category kept, got %q", next.Event.Category)
	}
	if next.Event.EventTime == nil || !next.Event.EventTime.Equal(at) {
		t.Errorf("expected event time %v, got %v", at, next.Event.EventTime)
	}
}

func TestApply_StakeTotalPot(t *testing.T) {
	s := Apply(NewState("c", ""), Patch{Stake: &Stake{Amount: 12.5, TokenSymbol: "DAI"}})
	if s.Stake.TotalPot != 25 {
		t.Errorf("expected total pot 25, got %v", s.Stake.TotalPot)
	}

	s = Apply(NewState("c", ""), Patch{Stake: &Stake{TokenSymbol: "DAI"}})
	s = Apply(s, Patch{Stake: &Stake{Amount: 3}})
	if s.Stake.Amount != 3 || s.Stake.TokenSymbol != "DAI" || s.Stake.TotalPot != 6 {
		t.Errorf("unexpected stake after partial merges: %+v", s.Stake)
	}
}

func TestApply_MissingFieldsAlwaysDerived(t *testing.T) {
	s := NewState("c", "")
	if len(s.MissingFields) != len(RequiredFields) {
		t.Fatalf("expected all fields missing, got %v", s.MissingFields)
	}

	s.MissingFields = nil // a hand edit is discarded on the next merge
	s = Apply(s, Patch{Prediction: "India"})
	if len(s.MissingFields) != 4 {
		t.Errorf("expected 4 missing fields, got %v", s.MissingFields)
	}

	s = completeState()
	if len(s.MissingFields) != 0 {
		t.Errorf("expected no missing fields, got %v", s.MissingFields)
	}
	s = Apply(s, Patch{Messages: []Message{{Speaker: SpeakerHuman, Text: "anything"}}})
	if len(s.MissingFields) != 0 {
		t.Errorf("completeness regressed: %v", s.MissingFields)
	}
}

func TestApply_FrozenStateIgnoresPatches(t *testing.T) {
	s := completeState()
	rec := Record{ID: "wager_1"}
	s = Apply(s, Patch{Stage: StageComplete, Output: &rec})
	if !s.Frozen() {
		t.Fatal("expected state to be complete")
	}

	next := Apply(s, Patch{
		Utterance:  "change it",
		Messages:   []Message{{Speaker: SpeakerHuman, Text: "change it"}},
		Stage:      StageStart,
		Enrichment: &Event{Description: "something else"},
	})

	if next.Stage != StageComplete || next.Utterance == "change it" || next.Event.Description != "India vs England" {
		t.Errorf("frozen state mutated: %+v", next)
	}
	if len(next.History) != len(s.History) {
		t.Errorf("frozen history mutated")
	}
}

func TestApply_CompleteRequiresOutput(t *testing.T) {
	s := completeState()
	next := Apply(s, Patch{Stage: StageComplete})
	if next.Stage == StageComplete {
		t.Error("expected complete transition without output to be ignored")
	}
}

func TestPatchIsEmpty(t *testing.T) {
	if !(Patch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
	if !(Patch{At: time.Now()}).IsEmpty() {
		t.Error("timestamp-only patch should be empty")
	}
	if (Patch{Prediction: "x"}).IsEmpty() {
		t.Error("prediction patch should not be empty")
	}
}
