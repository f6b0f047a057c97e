// Package agent drives a wager-creation conversation through the
// classify, extract, enrich and finalize stages, one user turn at a time.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/slice/internal/extractor"
	"github.com/MikeSquared-Agency/slice/internal/wager"
)

var (
	ErrClassification = errors.New("classification failed")
	ErrEnrichment     = errors.New("enrichment failed")
	ErrFinalization   = errors.New("finalization failed")
)

// Classifier maps an utterance onto an intent.
type Classifier interface {
	Classify(ctx context.Context, utterance string, history []wager.Message) (wager.Intent, error)
}

// Generator produces a user-facing message from a template.
type Generator interface {
	Generate(ctx context.Context, tmpl Template, vars Vars, history []wager.Message) (string, error)
}

// Extractor pulls wager fields out of an utterance.
type Extractor interface {
	Extract(utterance string, known wager.State) extractor.Result
}

// Enricher resolves canonical event details.
type Enricher interface {
	Enrich(ctx context.Context, s wager.State) (wager.Patch, error)
}

// Finalizer assembles the wager record.
type Finalizer interface {
	Finalize(s wager.State) (wager.Record, error)
}

// Timeouts bound each external call made during a turn.
type Timeouts struct {
	Classify time.Duration
	Generate time.Duration
	Enrich   time.Duration
}

// Machine runs conversation turns. It holds no per-conversation state and is
// safe for concurrent use across conversations.
type Machine struct {
	classifier Classifier
	extractor  Extractor
	enricher   Enricher
	finalizer  Finalizer
	generator  Generator
	timeouts   Timeouts
	now        func() time.Time
	logger     *slog.Logger
}

// Deps are the collaborators of a Machine. A nil Generator renders templates
// locally.
type Deps struct {
	Classifier Classifier
	Extractor  Extractor
	Enricher   Enricher
	Finalizer  Finalizer
	Generator  Generator
}

func New(deps Deps, timeouts Timeouts, logger *slog.Logger) *Machine {
	gen := deps.Generator
	if gen == nil {
		gen = StaticGenerator{}
	}
	return &Machine{
		classifier: deps.Classifier,
		extractor:  deps.Extractor,
		enricher:   deps.Enricher,
		finalizer:  deps.Finalizer,
		generator:  gen,
		timeouts:   timeouts,
		now:        time.Now,
		logger:     logger,
	}
}

// Result is the outcome of one turn.
type Result struct {
	State    wager.State
	Messages []string
	Wager    *wager.Record
}

// Next returns the stage that follows s. s must already carry the work of its
// current stage. The result depends only on the stage, the intent, whether
// fields are missing and whether the event is resolved.
func Next(s wager.State) wager.Stage {
	switch s.Stage {
	case wager.StageStart:
		if s.Intent == "" {
			return wager.StageAwaitingUser
		}
		return wager.StageClassified
	case wager.StageClassified:
		if s.Intent == wager.IntentWagerCreate {
			return wager.StageExtracting
		}
		return wager.StageAwaitingUser
	case wager.StageExtracting:
		if len(s.MissingFields) == 0 {
			return wager.StageEnriching
		}
		return wager.StageAwaitingUser
	case wager.StageEnriching:
		if s.Event.Resolved() && s.Prediction != "" {
			return wager.StageComplete
		}
		return wager.StageAwaitingUser
	}
	return s.Stage
}

// withTimeout bounds ctx by d. A non-positive d means no bound.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func terminal(stage wager.Stage) bool {
	return stage == wager.StageAwaitingUser || stage == wager.StageComplete
}

// Turn runs one user utterance through the machine, starting from s. The
// returned state always carries every patch merged before the turn stopped,
// including when ctx is cancelled mid-turn. An error is returned only for a
// cancelled context or a failed finalization.
func (m *Machine) Turn(ctx context.Context, s wager.State, utterance string) (Result, error) {
	if s.Frozen() {
		return Result{State: s, Messages: []string{alreadyCreatedMessage}}, nil
	}

	// Intent is decided afresh every turn.
	s.Intent = ""
	s = wager.Apply(s, wager.Patch{
		Utterance: utterance,
		Messages:  []wager.Message{{Speaker: wager.SpeakerHuman, Text: utterance}},
		Stage:     wager.StageStart,
		At:        m.now(),
	})

	var res Result
	for !terminal(s.Stage) {
		if err := ctx.Err(); err != nil {
			res.State = s
			return res, err
		}

		from := s.Stage
		s = wager.Apply(s, m.work(ctx, s))
		if err := ctx.Err(); err != nil {
			res.State = s
			return res, err
		}
		next := Next(s)

		m.logger.Debug("stage transition",
			"conversation_id", s.ConversationID,
			"stage", from,
			"next", next,
			"intent", s.Intent,
			"missing", s.MissingFields,
		)

		switch next {
		case wager.StageComplete:
			rec, err := m.finalizer.Finalize(s)
			if err != nil {
				m.logger.Error("finalize wager", "conversation_id", s.ConversationID, "error", err)
				s = m.say(s, wager.StageAwaitingUser, failureMessage, &res)
				res.State = s
				return res, fmt.Errorf("%w: %w", ErrFinalization, err)
			}
			env, err := wager.Envelope(rec)
			if err != nil {
				s = m.say(s, wager.StageAwaitingUser, failureMessage, &res)
				res.State = s
				return res, fmt.Errorf("%w: %w", ErrFinalization, err)
			}
			s = wager.Apply(s, wager.Patch{
				Stage:    wager.StageComplete,
				Output:   &rec,
				Messages: []wager.Message{{Speaker: wager.SpeakerAI, Text: env}},
			})
			res.Messages = append(res.Messages, env)
			res.Wager = &rec

			m.logger.Info("wager created",
				"conversation_id", s.ConversationID,
				"wager_id", rec.ID,
				"amount", rec.Asset.Amount,
				"token", rec.Asset.TokenSymbol,
			)
		case wager.StageAwaitingUser:
			s = m.say(s, next, m.reply(ctx, from, s), &res)
		default:
			s = wager.Apply(s, wager.Patch{Stage: next})
		}
	}

	res.State = s
	return res, nil
}

// work performs the external or extraction work of s.Stage and returns its
// patch. Failures are logged and yield an empty patch.
func (m *Machine) work(ctx context.Context, s wager.State) wager.Patch {
	switch s.Stage {
	case wager.StageStart:
		cctx, cancel := withTimeout(ctx, m.timeouts.Classify)
		defer cancel()
		intent, err := m.classifier.Classify(cctx, s.Utterance, s.History)
		if err != nil {
			m.logger.Warn("classify utterance",
				"conversation_id", s.ConversationID,
				"error", fmt.Errorf("%w: %w", ErrClassification, err),
			)
			return wager.Patch{}
		}
		return wager.Patch{Intent: intent}

	case wager.StageExtracting:
		return m.extract(s)

	case wager.StageEnriching:
		ectx, cancel := withTimeout(ctx, m.timeouts.Enrich)
		defer cancel()
		p, err := m.enricher.Enrich(ectx, s)
		if err != nil {
			m.logger.Warn("enrich event",
				"conversation_id", s.ConversationID,
				"error", fmt.Errorf("%w: %w", ErrEnrichment, err),
			)
			return wager.Patch{}
		}
		return p
	}
	return wager.Patch{}
}

// extract runs the field extractor. The timeframe of an event that could not
// be resolved is provisional and open to correction by the user.
func (m *Machine) extract(s wager.State) wager.Patch {
	known := s
	provisional := s.Event != nil && s.Event.Timeframe != "" && !s.Event.Resolved()
	if provisional {
		ev := *s.Event
		ev.Timeframe = ""
		known.Event = &ev
	}

	res := m.extractor.Extract(s.Utterance, known)
	for _, match := range res.Matches {
		m.logger.Debug("field extracted", "conversation_id", s.ConversationID, "field", match.Field, "rule", match.Rule)
	}

	p := res.Patch
	if provisional && p.Event != nil && p.Event.Timeframe != "" {
		p.Enrichment = &wager.Event{Timeframe: p.Event.Timeframe}
	}
	return p
}

// say appends an AI message and moves s to stage.
func (m *Machine) say(s wager.State, stage wager.Stage, text string, res *Result) wager.State {
	res.Messages = append(res.Messages, text)
	return wager.Apply(s, wager.Patch{
		Stage:    stage,
		Messages: []wager.Message{{Speaker: wager.SpeakerAI, Text: text}},
	})
}

// reply builds the message that hands the turn back to the user after from.
func (m *Machine) reply(ctx context.Context, from wager.Stage, s wager.State) string {
	switch from {
	case wager.StageStart:
		return retryMessage
	case wager.StageClassified:
		switch s.Intent {
		case wager.IntentWagerInquiry:
			return m.generate(ctx, inquiryTemplate, s)
		case wager.IntentConversational:
			return m.generate(ctx, conversationalTemplate, s)
		}
		return m.generate(ctx, conversationalTemplate, s)
	case wager.StageExtracting:
		if len(s.MissingFields) == len(wager.RequiredFields) {
			return m.generate(ctx, welcomeTemplate, s)
		}
		return m.generate(ctx, fieldTemplate(s.MissingFields[0]), s)
	case wager.StageEnriching:
		if !s.Event.Resolved() {
			return m.generate(ctx, eventDetailsTemplate, s)
		}
		return m.generate(ctx, fieldTemplate(wager.FieldPrediction), s)
	}
	return retryMessage
}

// generate renders tmpl through the generator, falling back to the local
// rendering when the generator fails.
func (m *Machine) generate(ctx context.Context, tmpl Template, s wager.State) string {
	vars := stateVars(s)
	vars["field_prompt"] = Render(tmpl.Fallback, vars)

	gctx, cancel := withTimeout(ctx, m.timeouts.Generate)
	defer cancel()

	text, err := m.generator.Generate(gctx, tmpl, vars, s.History)
	if err == nil {
		return text
	}
	m.logger.Warn("generate message", "conversation_id", s.ConversationID, "template", tmpl.Name, "error", err)
	text, _ = StaticGenerator{}.Generate(ctx, tmpl, vars, nil)
	return text
}

func stateVars(s wager.State) Vars {
	v := Vars{"input": s.Utterance}
	if a := s.ParticipantA; a != nil {
		v["wallet_address"] = a.Address
		v["playerA_name"] = a.Name
	}
	if b := s.ParticipantB; b != nil {
		v["playerB_name"] = b.Name
	}
	if e := s.Event; e != nil {
		v["event_description"] = e.Description
		v["event_timeframe"] = e.Timeframe
		if e.EventTime != nil {
			v["event_timeframe"] = e.EventTime.UTC().Format("Mon Jan 2 2006, 15:04 MST")
		}
	}
	if st := s.Stake; st != nil {
		v["amount_info"] = strconv.FormatFloat(st.Amount, 'f', -1, 64)
		v["selected_token"] = st.TokenSymbol
		v["total_pot"] = strconv.FormatFloat(st.TotalPot, 'f', -1, 64)
	}
	v["user_prediction"] = s.Prediction

	missing := make([]string, len(s.MissingFields))
	for i, f := range s.MissingFields {
		missing[i] = string(f)
	}
	v["missing_fields"] = strings.Join(missing, ", ")
	return v
}
