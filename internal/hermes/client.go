package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/MikeSquared-Agency/slice/internal/wager"
)

// NATS subjects used by the wager agent.
const (
	SubjectUtterance    = "slice.conversation.utterance"
	SubjectReply        = "slice.conversation.reply"
	SubjectWagerCreated = "slice.wager.created"
)

// UtteranceEvent is one user turn delivered over the bus.
type UtteranceEvent struct {
	ConversationID string `json:"conversation_id"`
	Input          string `json:"input"`
	WalletAddress  string `json:"wallet_address,omitempty"`
}

// ReplyEvent carries the agent's answer to an UtteranceEvent.
type ReplyEvent struct {
	ConversationID string        `json:"conversation_id"`
	Stage          wager.Stage   `json:"stage"`
	Messages       []string      `json:"messages"`
	MissingFields  []wager.Field `json:"missing_fields,omitempty"`
	Wager          *wager.Record `json:"wager,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// WagerCreatedEvent is emitted once per completed conversation.
type WagerCreatedEvent struct {
	ConversationID string       `json:"conversation_id"`
	Wager          wager.Record `json:"wager"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("slice"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

// PublishWagerCreated announces a completed wager.
func (c *Client) PublishWagerCreated(conversationID string, rec wager.Record) error {
	return c.Publish(SubjectWagerCreated, WagerCreatedEvent{ConversationID: conversationID, Wager: rec})
}

// PublishReply sends the outcome of a turn back to bus clients.
func (c *Client) PublishReply(ev ReplyEvent) error {
	return c.Publish(SubjectReply, ev)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

// Connected reports whether the underlying connection is up.
func (c *Client) Connected() bool {
	return c.conn.IsConnected()
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
