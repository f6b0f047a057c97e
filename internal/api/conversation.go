package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/slice/internal/agent"
	"github.com/MikeSquared-Agency/slice/internal/processor"
	"github.com/MikeSquared-Agency/slice/internal/store"
	"github.com/MikeSquared-Agency/slice/internal/wager"
)

// conversationHeader carries the conversation id of an agent stream so the
// client can continue it.
const conversationHeader = "X-Conversation-Id"

// streamEvent is one frame of the agent stream. Component frames set Action,
// control frames set Type.
type streamEvent struct {
	Action         string `json:"action,omitempty"`
	Type           string `json:"type,omitempty"`
	Payload        any    `json:"payload,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type component struct {
	Type  string         `json:"type"`
	Props map[string]any `json:"props"`
}

func loadingIndicator() streamEvent {
	return streamEvent{Action: "append", Payload: component{Type: "LoadingIndicator", Props: map[string]any{}}}
}

func aiText(action, content string) streamEvent {
	return streamEvent{Action: action, Payload: component{Type: "AIMessageText", Props: map[string]any{"content": content}}}
}

// parseChatHistory decodes a JSON array of [role, content] pairs. Roles other
// than ai or assistant are read as human.
func parseChatHistory(raw string) ([]wager.Message, error) {
	if raw == "" {
		return nil, nil
	}
	var pairs [][]string
	if err := json.Unmarshal([]byte(raw), &pairs); err != nil {
		return nil, errors.New("chat history must be an array of [role, content] pairs")
	}
	out := make([]wager.Message, 0, len(pairs))
	for i, p := range pairs {
		if len(p) != 2 {
			return nil, fmt.Errorf("entry %d: expected [role, content]", i)
		}
		speaker := wager.SpeakerHuman
		switch strings.ToLower(p[0]) {
		case "ai", "assistant":
			speaker = wager.SpeakerAI
		}
		out = append(out, wager.Message{Speaker: speaker, Text: p[1]})
	}
	return out, nil
}

// agentStream handles GET /api/agent.
func (s *Server) agentStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := strings.TrimSpace(q.Get("input"))
	if input == "" {
		writeError(w, http.StatusBadRequest, "Input query parameter is required")
		return
	}
	history, err := parseChatHistory(q.Get("chat_history"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid chat_history format: "+err.Error())
		return
	}
	wallet := q.Get("wallet_address")
	if _, err := wager.NormalizeAddress(wallet); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := q.Get("conversation_id")
	if id == "" {
		id = uuid.NewString()
	}

	w.Header().Set(conversationHeader, id)
	stream, err := newEventStream(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	stream.send(loadingIndicator())

	res, err := s.turns.HandleTurn(r.Context(), id, wallet, input, history...)
	for _, msg := range res.Messages {
		if res.Wager != nil && strings.HasPrefix(msg, wager.EnvelopeOpen) {
			stream.send(aiText("append", msg))
			stream.send(streamEvent{Type: "wager", Payload: res.Wager})
			continue
		}
		stream.send(aiText("update", msg))
	}
	if err != nil {
		s.logger.Error("agent stream turn failed", "conversation_id", id, "error", err)
		stream.send(streamEvent{Type: "error", Payload: map[string]string{"message": err.Error()}})
	}
	stream.send(streamEvent{Type: "streamEnd", ConversationID: id})
}

type turnRequest struct {
	Input         string          `json:"input"`
	WalletAddress string          `json:"wallet_address,omitempty"`
	ChatHistory   []wager.Message `json:"chat_history,omitempty"`
}

type turnResponse struct {
	ConversationID string        `json:"conversation_id"`
	Stage          wager.Stage   `json:"stage"`
	MissingFields  []wager.Field `json:"missing_fields"`
	Messages       []string      `json:"messages"`
	Wager          *wager.Record `json:"wager,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// postTurn handles POST /api/v1/conversations/{id}/turns.
func (s *Server) postTurn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	res, err := s.turns.HandleTurn(r.Context(), id, req.WalletAddress, req.Input, req.ChatHistory...)
	switch {
	case errors.Is(err, processor.ErrEmptyInput), errors.Is(err, wager.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, store.ErrLockTimeout):
		writeError(w, http.StatusConflict, "conversation is busy")
		return
	case err != nil && !errors.Is(err, agent.ErrFinalization):
		s.logger.Error("turn failed", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "turn failed")
		return
	}

	resp := turnResponse{
		ConversationID: id,
		Stage:          res.State.Stage,
		MissingFields:  res.State.MissingFields,
		Messages:       res.Messages,
		Wager:          res.Wager,
	}
	if resp.MissingFields == nil {
		resp.MissingFields = []wager.Field{}
	}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// getConversation handles GET /api/v1/conversations/{id}.
func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conv, err := s.turns.Conversation(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		s.logger.Error("load conversation", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "load failed")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) getWager(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.turns.Wager(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "wager not found")
		return
	}
	if err != nil {
		s.logger.Error("find wager", "wager_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
