package wager

import "strings"

// Intent is what the user is trying to do in a turn. The zero value means the
// turn has not been classified yet.
type Intent string

const (
	IntentWagerCreate    Intent = "wager_creation"
	IntentWagerInquiry   Intent = "wager_inquiry"
	IntentConversational Intent = "conversational"
)

// ParseIntent maps a classifier label to an Intent. Labels are matched
// case-insensitively and may be surrounded by other text; anything
// unrecognised is conversational.
func ParseIntent(label string) Intent {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.Contains(l, string(IntentWagerCreate)):
		return IntentWagerCreate
	case strings.Contains(l, string(IntentWagerInquiry)):
		return IntentWagerInquiry
	default:
		return IntentConversational
	}
}
