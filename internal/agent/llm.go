package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/slice/internal/anthropic"
	"github.com/MikeSquared-Agency/slice/internal/wager"
)

// Vars are the values substituted into a template's {placeholders}.
type Vars map[string]string

const notSpecified = "Not specified"

var placeholderRE = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Render replaces every {name} in text with vars[name]. Absent or empty
// values render as "Not specified".
func Render(text string, vars Vars) string {
	return placeholderRE.ReplaceAllStringFunc(text, func(m string) string {
		if v := vars[m[1:len(m)-1]]; v != "" {
			return v
		}
		return notSpecified
	})
}

// Completer is a chat-completion model.
type Completer interface {
	Complete(ctx context.Context, system string, messages []anthropic.Message, maxTokens int) (string, error)
}

// defaultRetryDelay is the pause before resending a request the API asked
// to retry.
const defaultRetryDelay = 500 * time.Millisecond

// complete calls llm once more after delay when the API reports a retryable
// failure such as rate limiting or overload.
func complete(ctx context.Context, llm Completer, delay time.Duration, system string, msgs []anthropic.Message, maxTokens int) (string, error) {
	text, err := llm.Complete(ctx, system, msgs, maxTokens)
	var apiErr *anthropic.APIError
	if err == nil || !errors.As(err, &apiErr) || !apiErr.Retryable() {
		return text, err
	}
	select {
	case <-ctx.Done():
		return "", err
	case <-time.After(delay):
	}
	return llm.Complete(ctx, system, msgs, maxTokens)
}

// LLMClassifier classifies utterances with a language model.
type LLMClassifier struct {
	llm        Completer
	retryDelay time.Duration
}

func NewLLMClassifier(llm Completer) *LLMClassifier {
	return &LLMClassifier{llm: llm, retryDelay: defaultRetryDelay}
}

// Classify asks the model for an intent label. Unrecognised labels are
// conversational.
func (c *LLMClassifier) Classify(ctx context.Context, utterance string, history []wager.Message) (wager.Intent, error) {
	label, err := complete(ctx, c.llm, c.retryDelay, classificationPrompt, chatMessages(history, utterance), 16)
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	return wager.ParseIntent(label), nil
}

// LLMGenerator writes user-facing messages with a language model.
type LLMGenerator struct {
	llm        Completer
	maxTokens  int
	retryDelay time.Duration
}

func NewLLMGenerator(llm Completer) *LLMGenerator {
	return &LLMGenerator{llm: llm, maxTokens: 1024, retryDelay: defaultRetryDelay}
}

func (g *LLMGenerator) Generate(ctx context.Context, tmpl Template, vars Vars, history []wager.Message) (string, error) {
	text, err := complete(ctx, g.llm, g.retryDelay, Render(tmpl.Prompt, vars), chatMessages(history, vars["input"]), g.maxTokens)
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", tmpl.Name, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("generate %s: empty response", tmpl.Name)
	}
	return text, nil
}

// StaticGenerator renders templates locally without a model.
type StaticGenerator struct{}

func (StaticGenerator) Generate(_ context.Context, tmpl Template, vars Vars, _ []wager.Message) (string, error) {
	text := tmpl.Fallback
	if text == "" {
		text = tmpl.Prompt
	}
	return Render(text, vars), nil
}

// chatMessages maps history onto alternating user/assistant turns. Leading
// assistant lines are dropped and consecutive lines from one speaker are
// joined. When the history does not end with the user, utterance is added.
func chatMessages(history []wager.Message, utterance string) []anthropic.Message {
	var msgs []anthropic.Message
	for _, h := range history {
		role := "user"
		if h.Speaker == wager.SpeakerAI {
			role = "assistant"
		}
		if len(msgs) == 0 && role == "assistant" {
			continue
		}
		if n := len(msgs); n > 0 && msgs[n-1].Role == role {
			msgs[n-1].Content += "\n\n" + h.Text
			continue
		}
		msgs = append(msgs, anthropic.Message{Role: role, Content: h.Text})
	}
	if len(msgs) == 0 || msgs[len(msgs)-1].Role != "user" {
		if utterance == "" {
			utterance = "Hello"
		}
		msgs = append(msgs, anthropic.Message{Role: "user", Content: utterance})
	}
	return msgs
}

var (
	wagerWordRE   = regexp.MustCompile(`(?i)\b(bet|bets|betting|wager|wagers|stake)\b`)
	inquiryWordRE = regexp.MustCompile(`(?i)\b(how does|how do|what can|what bets|options|available|explain)\b`)
)

// KeywordClassifier classifies without a model. Any recognised wager field
// or wager word makes the turn a wager creation.
type KeywordClassifier struct {
	extractor Extractor
}

func NewKeywordClassifier(x Extractor) *KeywordClassifier {
	return &KeywordClassifier{extractor: x}
}

func (c *KeywordClassifier) Classify(_ context.Context, utterance string, _ []wager.Message) (wager.Intent, error) {
	switch {
	case inquiryWordRE.MatchString(utterance):
		return wager.IntentWagerInquiry, nil
	case wagerWordRE.MatchString(utterance):
		return wager.IntentWagerCreate, nil
	case len(c.extractor.Extract(utterance, wager.State{}).Matches) > 0:
		return wager.IntentWagerCreate, nil
	}
	return wager.IntentConversational, nil
}
