// Package enrich resolves canonical event details and timing for a wager
// whose basic fields are already known.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/MikeSquared-Agency/slice/internal/tools"
	"github.com/MikeSquared-Agency/slice/internal/wager"
)

var (
	// ErrNoEvent is returned when the state has no event description to look up.
	ErrNoEvent = errors.New("no event to enrich")
	// ErrNoResult is returned when neither lookup produced a usable answer.
	ErrNoResult = errors.New("enrichment produced no result")
)

// Invoker runs tools by name.
type Invoker interface {
	Invoke(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error)
	InvokeAll(ctx context.Context, calls []tools.Call) []tools.Result
}

// Enricher looks up event details and resolves the event start, betting
// deadline and resolution time.
type Enricher struct {
	tools  Invoker
	logger *slog.Logger
}

func New(invoker Invoker, logger *slog.Logger) *Enricher {
	return &Enricher{tools: invoker, logger: logger}
}

// Enrich returns a patch carrying the looked-up event fields in
// Patch.Enrichment. The event search and the timing calculation run
// concurrently; when the search finds a concrete date the timing is
// recomputed from it. The latest utterance adds context to the search and
// may carry the start time ("at 18:00"). A failed lookup is logged and left
// out of the patch.
func (e *Enricher) Enrich(ctx context.Context, s wager.State) (wager.Patch, error) {
	if s.Event == nil || s.Event.Description == "" {
		return wager.Patch{}, ErrNoEvent
	}
	ev := s.Event

	search, err := tools.NewCall(tools.SearchName, tools.SearchArgs{Query: searchQuery(ev, s.Utterance), Category: searchCategory(ev)})
	if err != nil {
		return wager.Patch{}, err
	}
	timing, err := tools.NewCall(tools.TimeCalculatorName, tools.TimingArgs{EventDate: ev.Timeframe, EventTime: startTime(s.Utterance)})
	if err != nil {
		return wager.Patch{}, err
	}

	results := e.tools.InvokeAll(ctx, []tools.Call{search, timing})

	details, found := e.details(s.ConversationID, results[0])
	tr, timed := e.timing(s.ConversationID, results[1])

	if found && details.EventDate != "" {
		if better, ok := e.retime(ctx, s.ConversationID, details); ok {
			tr, timed = better, true
		}
	}

	if timed && !tr.IsBettingOpen {
		e.logger.Warn("betting window closed, dropping timing",
			"conversation_id", s.ConversationID,
			"event_datetime", tr.EventDatetime,
		)
		timed = false
	}

	if !found && !timed {
		return wager.Patch{}, ErrNoResult
	}

	out := &wager.Event{}
	if found {
		out.Description = details.EventName
		out.Venue = details.Venue
		out.Outcomes = details.BettingOptions
		if ev.Category == "" || ev.Category == "custom" {
			out.Category = strings.ToLower(details.Category)
		}
	}
	if timed {
		start, deadline, resolution := tr.EventDatetime, tr.BettingDeadline, tr.ResolutionTime
		out.EventTime = &start
		out.BettingDeadline = &deadline
		out.ResolutionTime = &resolution
	}

	e.logger.Info("event enriched",
		"conversation_id", s.ConversationID,
		"searched", found,
		"timed", timed,
	)
	return wager.Patch{Enrichment: out}, nil
}

// details decodes a search result. Failed calls carry an error payload and
// decode as unsuccessful.
func (e *Enricher) details(conversationID string, r tools.Result) (tools.EventDetails, bool) {
	var res tools.SearchResult
	if err := json.Unmarshal(r.Payload(), &res); err != nil || !res.Success {
		e.logger.Warn("event search returned no result",
			"conversation_id", conversationID,
			"tool", r.Name,
			"payload", string(r.Payload()),
			"error", errors.Join(r.Err, err),
		)
		return tools.EventDetails{}, false
	}
	return res.Results, true
}

func (e *Enricher) timing(conversationID string, r tools.Result) (tools.TimingResult, bool) {
	var res tools.TimingResult
	if err := json.Unmarshal(r.Payload(), &res); err != nil || !res.Success {
		e.logger.Debug("timing not resolvable",
			"conversation_id", conversationID,
			"tool", r.Name,
			"payload", string(r.Payload()),
			"error", errors.Join(r.Err, err),
		)
		return tools.TimingResult{}, false
	}
	return res, true
}

func (e *Enricher) retime(ctx context.Context, conversationID string, d tools.EventDetails) (tools.TimingResult, bool) {
	args, err := json.Marshal(tools.TimingArgs{EventDate: d.EventDate, EventTime: d.EventTime})
	if err != nil {
		return tools.TimingResult{}, false
	}
	out, err := e.tools.Invoke(ctx, tools.TimeCalculatorName, args)
	return e.timing(conversationID, tools.Result{Name: tools.TimeCalculatorName, Output: out, Err: err})
}

func searchQuery(ev *wager.Event, utterance string) string {
	when := ev.Timeframe
	if when == "" {
		when = wager.TimeframeUpcoming
	}
	q := fmt.Sprintf("Find the %s event: %s. Include the exact date, start time, venue and possible outcomes.", when, ev.Description)
	if u := strings.TrimSpace(utterance); u != "" {
		q += fmt.Sprintf(" The user said: %q.", u)
	}
	return q
}

var clockRE = regexp.MustCompile(`(?i)\b((?:[01]?\d|2[0-3]):[0-5]\d(?:\s*[ap]m)?|(?:1[0-2]|0?[1-9])\s*[ap]m)\b`)

// startTime returns the first clock time in utterance, or "" for none.
func startTime(utterance string) string {
	return strings.ToLower(clockRE.FindString(utterance))
}

func searchCategory(ev *wager.Event) string {
	switch ev.Category {
	case "", "custom":
		return "sports"
	}
	return ev.Category
}
