package wager

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel markers wrapping the serialized wager record in the terminal message.
const (
	EnvelopeOpen  = "[OBJ]"
	EnvelopeClose = "[/OBJ]"
)

// StatusPending is the status of a freshly created wager.
const StatusPending = "pending"

// Record is the canonical wager object emitted once a conversation completes.
type Record struct {
	ID           string       `json:"id"`
	Participants Players      `json:"participants"`
	WagerDetails WagerDetails `json:"wagerDetails"`
	Asset        Asset        `json:"asset"`
	Status       string       `json:"status"`
	Outcome      *string      `json:"outcome"`
	CreatedAt    time.Time    `json:"createdAt"`
	ExpiresAt    time.Time    `json:"expiresAt"`
}

// Players holds both sides of a wager record.
type Players struct {
	PlayerA Player `json:"playerA"`
	PlayerB Player `json:"playerB"`
}

// Player is one side of a wager record. PlayerB's address, prediction and
// deposit are filled in later when they join.
type Player struct {
	Name        string  `json:"name"`
	Address     *string `json:"address"`
	Prediction  *string `json:"prediction"`
	IsDeposited bool    `json:"isDeposited"`
}

// WagerDetails describes the event being wagered on.
type WagerDetails struct {
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	Timeframe       string     `json:"timeframe"`
	EventDate       *time.Time `json:"eventDate"`
	Venue           string     `json:"venue,omitempty"`
	BettingDeadline *time.Time `json:"bettingDeadline"`
	ResolutionTime  *time.Time `json:"resolutionTime"`
	BettingOptions  []string   `json:"bettingOptions,omitempty"`
	OracleQuery     string     `json:"oracleQuery"`
}

// Asset is the stake of a wager record.
type Asset struct {
	Amount      float64 `json:"amount"`
	TokenSymbol string  `json:"tokenSymbol"`
	TotalPot    float64 `json:"totalPot"`
}

// ErrNoEnvelope is returned by ParseEnvelope when a message carries no record.
var ErrNoEnvelope = errors.New("message carries no wager record")

// Envelope serializes rec between the sentinel markers.
func Envelope(rec Record) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal wager record: %w", err)
	}
	return EnvelopeOpen + string(data) + EnvelopeClose, nil
}

// ParseEnvelope extracts the wager record from a terminal message.
func ParseEnvelope(msg string) (Record, error) {
	start := strings.Index(msg, EnvelopeOpen)
	end := strings.LastIndex(msg, EnvelopeClose)
	if start < 0 || end < start {
		return Record{}, ErrNoEnvelope
	}
	var rec Record
	if err := json.Unmarshal([]byte(msg[start+len(EnvelopeOpen):end]), &rec); err != nil {
		return Record{}, fmt.Errorf("unmarshal wager record: %w", err)
	}
	return rec, nil
}
