// Package processor runs conversation turns against the stored snapshot and
// fans the results out to the bus and Slack.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/slice/internal/agent"
	"github.com/MikeSquared-Agency/slice/internal/hermes"
	"github.com/MikeSquared-Agency/slice/internal/store"
	"github.com/MikeSquared-Agency/slice/internal/wager"
)

// ErrEmptyInput is returned for a turn with no utterance.
var ErrEmptyInput = errors.New("input is required")

// Turner runs one utterance through the conversation machine.
type Turner interface {
	Turn(ctx context.Context, s wager.State, utterance string) (agent.Result, error)
}

// Publisher announces turn outcomes on the bus.
type Publisher interface {
	PublishWagerCreated(conversationID string, rec wager.Record) error
	PublishReply(ev hermes.ReplyEvent) error
}

// Announcer posts finalized wagers for humans to see.
type Announcer interface {
	PostWager(ctx context.Context, conversationID string, rec wager.Record) (string, error)
}

// Processor orchestrates one conversation turn: load, run, save, announce.
type Processor struct {
	store     store.Conversations
	machine   Turner
	locker    Locker
	publisher Publisher
	announcer Announcer
	logger    *slog.Logger
}

// Options carries the optional collaborators of a Processor.
type Options struct {
	// Locker serializes turns per conversation. Defaults to an in-process lock.
	Locker    Locker
	Publisher Publisher
	Announcer Announcer
}

func New(s store.Conversations, m Turner, opts Options, logger *slog.Logger) *Processor {
	locker := opts.Locker
	if locker == nil {
		locker = NewKeyedMutex()
	}
	return &Processor{
		store:     s,
		machine:   m,
		locker:    locker,
		publisher: opts.Publisher,
		announcer: opts.Announcer,
		logger:    logger,
	}
}

// HandleTurn runs input as the next turn of conversationID. An empty id starts
// a new conversation. wallet seeds participant A. seed is prior chat history
// for a conversation the store has never seen and is ignored otherwise.
//
// The resulting snapshot is saved even when the turn stops early, so partial
// progress survives a cancelled request.
func (p *Processor) HandleTurn(ctx context.Context, conversationID, wallet, input string, seed ...wager.Message) (agent.Result, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return agent.Result{}, ErrEmptyInput
	}
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	addr, err := wager.NormalizeAddress(wallet)
	if err != nil {
		return agent.Result{}, fmt.Errorf("wallet %q: %w", wallet, err)
	}

	unlock, err := p.locker.Lock(ctx, conversationID)
	if err != nil {
		return agent.Result{}, fmt.Errorf("lock conversation %s: %w", conversationID, err)
	}
	defer unlock()

	s, err := p.load(ctx, conversationID, addr, seed)
	if err != nil {
		return agent.Result{}, err
	}
	frozen := s.Frozen()

	res, turnErr := p.machine.Turn(ctx, s, input)
	if turnErr != nil && !errors.Is(turnErr, agent.ErrFinalization) {
		p.logger.Warn("turn abandoned", "conversation_id", conversationID, "stage", res.State.Stage, "error", turnErr)
	}

	if !frozen && res.State.ConversationID != "" {
		if err := p.store.Save(context.WithoutCancel(ctx), res.State); err != nil {
			return res, fmt.Errorf("save conversation %s: %w", conversationID, err)
		}
	}

	if res.Wager != nil {
		p.announce(context.WithoutCancel(ctx), conversationID, *res.Wager)
	}
	return res, turnErr
}

func (p *Processor) load(ctx context.Context, id, addr string, seed []wager.Message) (wager.State, error) {
	s, err := p.store.Load(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		p.logger.Info("new conversation", "conversation_id", id, "seeded", len(seed))
		return wager.Apply(wager.NewState(id, addr), wager.Patch{Messages: seed}), nil
	}
	if err != nil {
		return wager.State{}, fmt.Errorf("load conversation %s: %w", id, err)
	}
	if addr != "" && !s.Frozen() {
		s = wager.Apply(s, wager.Patch{ParticipantA: &wager.Participant{Name: wager.DefaultPlayerAName, Address: addr}})
	}
	return s, nil
}

func (p *Processor) announce(ctx context.Context, conversationID string, rec wager.Record) {
	if p.publisher != nil {
		if err := p.publisher.PublishWagerCreated(conversationID, rec); err != nil {
			p.logger.Error("failed to publish wager created", "conversation_id", conversationID, "wager_id", rec.ID, "error", err)
		}
	}
	if p.announcer != nil {
		if _, err := p.announcer.PostWager(ctx, conversationID, rec); err != nil {
			p.logger.Error("slack post failed", "conversation_id", conversationID, "wager_id", rec.ID, "error", err)
		}
	}
}

// Conversation returns the stored snapshot of id.
func (p *Processor) Conversation(ctx context.Context, id string) (wager.State, error) {
	return p.store.Load(ctx, id)
}

// Wager returns the record of a finalized wager. Stores that cannot look
// wagers up report store.ErrNotFound.
func (p *Processor) Wager(ctx context.Context, wagerID string) (wager.Record, error) {
	f, ok := p.store.(store.WagerFinder)
	if !ok {
		return wager.Record{}, store.ErrNotFound
	}
	s, err := f.FindByWager(ctx, wagerID)
	if err != nil {
		return wager.Record{}, err
	}
	if s.Output == nil {
		return wager.Record{}, store.ErrNotFound
	}
	return *s.Output, nil
}

// HandleUtterance is the NATS handler for slice.conversation.utterance.
func (p *Processor) HandleUtterance(subject string, data []byte) {
	ctx := context.Background()

	var evt hermes.UtteranceEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse utterance event", "error", err)
		return
	}
	if evt.ConversationID == "" {
		p.logger.Warn("utterance without conversation id", "subject", subject)
		return
	}

	res, err := p.HandleTurn(ctx, evt.ConversationID, evt.WalletAddress, evt.Input)
	reply := hermes.ReplyEvent{
		ConversationID: evt.ConversationID,
		Stage:          res.State.Stage,
		Messages:       res.Messages,
		MissingFields:  res.State.MissingFields,
		Wager:          res.Wager,
	}
	if err != nil {
		p.logger.Error("utterance turn failed", "conversation_id", evt.ConversationID, "error", err)
		reply.Error = err.Error()
	}

	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishReply(reply); err != nil {
		p.logger.Error("failed to publish reply", "conversation_id", evt.ConversationID, "error", err)
	}
}
