package wager

import (
	"slices"
	"time"
)

// Stage is the position of a conversation in the wager state machine.
type Stage string

const (
	StageStart        Stage = "start"
	StageClassified   Stage = "classified"
	StageExtracting   Stage = "extracting"
	StageEnriching    Stage = "enriching"
	StageAwaitingUser Stage = "awaiting_user"
	StageComplete     Stage = "complete"
)

// Speaker identifies who said a line of conversation history.
type Speaker string

const (
	SpeakerHuman Speaker = "human"
	SpeakerAI    Speaker = "ai"
)

// Message is one line of conversation history.
type Message struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// TimeframeUpcoming is the timeframe assumed for recognised fixtures when the
// user gave no date.
const TimeframeUpcoming = "upcoming"

// Participant is one side of a wager.
type Participant struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

// Event is the verifiable event the wager is about.
type Event struct {
	Description     string     `json:"description,omitempty"`
	Timeframe       string     `json:"timeframe,omitempty"`
	Category        string     `json:"category,omitempty"`
	Venue           string     `json:"venue,omitempty"`
	EventTime       *time.Time `json:"event_time,omitempty"`
	BettingDeadline *time.Time `json:"betting_deadline,omitempty"`
	ResolutionTime  *time.Time `json:"resolution_time,omitempty"`
	Outcomes        []string   `json:"outcomes,omitempty"`
}

// Resolved reports whether the event has a description and an absolute start time.
func (e *Event) Resolved() bool {
	return e != nil && e.Description != "" && e.EventTime != nil
}

func (e *Event) clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	c.EventTime = cloneTime(e.EventTime)
	c.BettingDeadline = cloneTime(e.BettingDeadline)
	c.ResolutionTime = cloneTime(e.ResolutionTime)
	c.Outcomes = slices.Clone(e.Outcomes)
	return &c
}

// Stake is the amount each participant puts in.
type Stake struct {
	Amount      float64 `json:"amount"`
	TokenSymbol string  `json:"token_symbol"`
	TotalPot    float64 `json:"total_pot"`
}

// State is the accumulated state of one conversation. It is treated as a value:
// Apply returns a new State and never mutates its input.
type State struct {
	ConversationID string       `json:"conversation_id"`
	Utterance      string       `json:"utterance"`
	History        []Message    `json:"history,omitempty"`
	Stage          Stage        `json:"stage"`
	Intent         Intent       `json:"intent,omitempty"`
	ParticipantA   *Participant `json:"participant_a,omitempty"`
	ParticipantB   *Participant `json:"participant_b,omitempty"`
	Prediction     string       `json:"prediction,omitempty"`
	Event          *Event       `json:"event,omitempty"`
	Stake          *Stake       `json:"stake,omitempty"`
	MissingFields  []Field      `json:"missing_fields,omitempty"`
	Output         *Record      `json:"output,omitempty"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// NewState returns the initial state of a conversation. A non-empty address
// seeds participant A.
func NewState(conversationID, address string) State {
	s := State{ConversationID: conversationID, Stage: StageStart}
	if address != "" {
		s.ParticipantA = &Participant{Name: DefaultPlayerAName, Address: address}
	}
	s.MissingFields = Missing(s)
	return s
}

// DefaultPlayerAName is the display name given to the caller.
const DefaultPlayerAName = "You"

// Frozen reports whether the conversation has produced its wager.
func (s State) Frozen() bool {
	return s.Stage == StageComplete
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
