package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/slice/internal/wager"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// PostWager announces a finalized wager to the channel and threads the
// resolution details under it. Returns the message timestamp (ts).
func (p *Poster) PostWager(ctx context.Context, conversationID string, rec wager.Record) (string, error) {
	text := formatWagerMessage(rec)

	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": fmt.Sprintf("Wager `%s` | conversation `%s`", rec.ID, conversationID),
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	ts, err := p.post(ctx, body)
	if err != nil {
		return "", err
	}

	p.logger.Info("posted wager to slack", "ts", ts, "wager_id", rec.ID, "conversation_id", conversationID)

	if text := formatResolution(rec); text != "" {
		if err := p.PostThread(ctx, ts, text); err != nil {
			p.logger.Warn("slack resolution thread failed", "ts", ts, "wager_id", rec.ID, "error", err)
		}
	}
	return ts, nil
}

// PostThread posts a threaded reply to a message.
func (p *Poster) PostThread(ctx context.Context, threadTS, text string) error {
	body, err := json.Marshal(map[string]any{
		"channel":   p.channel,
		"thread_ts": threadTS,
		"text":      text,
	})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	_, err = p.post(ctx, body)
	return err
}

func (p *Poster) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return slackResp.TS, nil
}

func formatWagerMessage(rec wager.Record) string {
	var sb strings.Builder
	d := rec.WagerDetails
	a, b := rec.Participants.PlayerA, rec.Participants.PlayerB

	fmt.Fprintf(&sb, "*New wager:* %s\n", d.Description)
	fmt.Fprintf(&sb, "*Players:* %s vs %s\n", a.Name, b.Name)
	if a.Prediction != nil {
		fmt.Fprintf(&sb, "*%s predicts:* %s\n", a.Name, *a.Prediction)
	}
	fmt.Fprintf(&sb, "*Stake:* %g %s each (pot %g %s)\n", rec.Asset.Amount, rec.Asset.TokenSymbol, rec.Asset.TotalPot, rec.Asset.TokenSymbol)

	if d.EventDate != nil {
		fmt.Fprintf(&sb, "*Event:* %s", d.EventDate.UTC().Format("Mon Jan 2 2006 15:04 MST"))
		if d.Venue != "" {
			fmt.Fprintf(&sb, " at %s", d.Venue)
		}
		sb.WriteString("\n")
	} else if d.Timeframe != "" {
		fmt.Fprintf(&sb, "*When:* %s\n", d.Timeframe)
	}
	if d.BettingDeadline != nil {
		fmt.Fprintf(&sb, "*Betting closes:* %s\n", d.BettingDeadline.UTC().Format("Mon Jan 2 15:04 MST"))
	}

	return strings.TrimRight(sb.String(), "\n")
}

// formatResolution describes how the wager settles. It is posted in the
// thread of the announcement.
func formatResolution(rec wager.Record) string {
	var sb strings.Builder
	d := rec.WagerDetails
	if d.ResolutionTime != nil {
		fmt.Fprintf(&sb, "*Resolves after:* %s\n", d.ResolutionTime.UTC().Format("Mon Jan 2 15:04 MST"))
	}
	if d.OracleQuery != "" {
		fmt.Fprintf(&sb, "_Oracle query:_ %s", d.OracleQuery)
	}
	return strings.TrimRight(sb.String(), "\n")
}
