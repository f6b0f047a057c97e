package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// SearchName is the registry name of the event lookup tool.
const SearchName = "perplexity_search"

const perplexityURL = "https://api.perplexity.ai/chat/completions"

// ErrUnparsableResult is returned when the search answer carries no event object.
var ErrUnparsableResult = errors.New("unparsable search result")

const searchSystemPrompt = `You are an AI assistant that finds information about upcoming events. Be precise and concise.
Respond ONLY with a JSON object of this shape and nothing else:
{"event_name": "...", "category": "...", "venue": "...", "event_date": "YYYY-MM-DD", "event_time": "HH:MM", "betting_options": ["..."]}
Use an empty string for anything you cannot find.`

// SearchArgs is the input of the event lookup.
type SearchArgs struct {
	Query    string `json:"query"`
	Category string `json:"category,omitempty"`
}

// EventDetails is the structured answer of the event lookup.
type EventDetails struct {
	EventName      string   `json:"event_name"`
	Category       string   `json:"category,omitempty"`
	Venue          string   `json:"venue,omitempty"`
	EventDate      string   `json:"event_date,omitempty"`
	EventTime      string   `json:"event_time,omitempty"`
	BettingOptions []string `json:"betting_options,omitempty"`
}

// SearchResult is the output of the event lookup.
type SearchResult struct {
	Success   bool         `json:"success"`
	Query     string       `json:"query"`
	Category  string       `json:"category"`
	Results   EventDetails `json:"results"`
	Timestamp time.Time    `json:"timestamp"`
}

// PerplexitySearch looks up event details through the Perplexity chat API.
type PerplexitySearch struct {
	apiKey string
	model  string
	apiURL string
	client *http.Client
	now    func() time.Time
	logger *slog.Logger
}

func NewPerplexitySearch(apiKey, model string, logger *slog.Logger) *PerplexitySearch {
	return &PerplexitySearch{
		apiKey: apiKey,
		model:  model,
		apiURL: perplexityURL,
		client: &http.Client{Timeout: 60 * time.Second},
		now:    time.Now,
		logger: logger,
	}
}

// SetTestTransport points the client at a test server.
func (p *PerplexitySearch) SetTestTransport(url string) {
	p.apiURL = url
}

func (p *PerplexitySearch) Name() string { return SearchName }

func (p *PerplexitySearch) Description() string {
	return "Search for sports events, match details, and betting information using Perplexity API"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	Stream      bool          `json:"stream"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *PerplexitySearch) Invoke(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var args SearchArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("parse search args: %w", err)
	}
	if strings.TrimSpace(args.Query) == "" {
		return nil, errors.New("empty search query")
	}
	if args.Category == "" {
		args.Category = "sports"
	}

	p.logger.Debug("event search", "query", args.Query, "category", args.Category)

	content, err := p.ask(ctx, fmt.Sprintf("Today is %s. %s", p.now().Format("January 2, 2006"), args.Query))
	if err != nil {
		return nil, err
	}

	details, err := parseEventDetails(content)
	if err != nil {
		p.logger.Warn("search answer not parseable", "query", args.Query, "error", err)
		return nil, err
	}

	return json.Marshal(SearchResult{
		Success:   true,
		Query:     args.Query,
		Category:  args.Category,
		Results:   details,
		Timestamp: p.now().UTC(),
	})
}

func (p *PerplexitySearch) ask(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       p.model,
		Temperature: 0.2,
		TopP:        0.9,
		Messages: []chatMessage{
			{Role: "system", Content: searchSystemPrompt},
			{Role: "user", Content: query},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search api error %d: %s", resp.StatusCode, string(respBody))
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return "", errors.New("empty search response")
	}
	return chat.Choices[0].Message.Content, nil
}

// parseEventDetails pulls the JSON object out of a model answer, tolerating
// code fences and surrounding prose.
func parseEventDetails(content string) (EventDetails, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return EventDetails{}, ErrUnparsableResult
	}
	var d EventDetails
	if err := json.Unmarshal([]byte(content[start:end+1]), &d); err != nil {
		return EventDetails{}, fmt.Errorf("%w: %v", ErrUnparsableResult, err)
	}
	if d.EventName == "" && d.EventDate == "" {
		return EventDetails{}, ErrUnparsableResult
	}
	return d, nil
}
