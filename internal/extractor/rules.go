package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/slice/internal/wager"
)

// Fields is what a single rule pulls out of an utterance. Each rule sets only
// the values of its own field.
type Fields struct {
	Participant string
	Event       string
	Category    string
	Timeframe   string
	Amount      float64
	Token       string
	Prediction  string
}

// Rule is one entry of the extraction table. Rules of the same field are
// tried in table order and the first one whose Build accepts the match wins.
type Rule struct {
	Name    string
	Field   wager.Field
	Pattern *regexp.Regexp
	// Fixture marks event rules that recognise a sports fixture.
	Fixture bool
	// Build turns the submatches into field values. Returning false rejects
	// the match and lets the next rule try.
	Build func(m []string, text string) (Fields, bool)
}

const (
	nameRE   = `([A-Z][a-zA-Z'-]+)`
	teamRE   = `([A-Z][\w'&.-]*(?:\s+[A-Z][\w'&.-]*)*)`
	amountRE = `(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)`
	tokenRE  = `(exusdt|usdt|usdc|dai|slice|nero)`
	monthRE  = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`
	dayRE    = `(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)`
	winRE    = `(?:will\s+win|would\s+win|is\s+going\s+to\s+win|are\s+going\s+to\s+win|gonna\s+win|to\s+win|wins)`
)

// rules is the extraction table. Order matters: specific multi-token patterns
// come before generic words, relative day words before absolute dates.
var rules = []Rule{
	// Second participant.
	{Name: "player_b_is", Field: wager.FieldParticipant,
		Pattern: regexp.MustCompile(`(?i:\bplayer\s*b\s+is)\s+([A-Za-z][a-zA-Z'-]+)`),
		Build:   buildName},
	{Name: "friend_named", Field: wager.FieldParticipant,
		Pattern: regexp.MustCompile(`(?i:\bfriend)(?:\s+(?i:named|called))?\s+` + nameRE),
		Build:   buildName},
	{Name: "between_me_and", Field: wager.FieldParticipant,
		Pattern: regexp.MustCompile(`(?i:\bbetween\s+me\s+and)\s+` + nameRE),
		Build:   buildName},
	{Name: "me_and", Field: wager.FieldParticipant,
		Pattern: regexp.MustCompile(`(?i:\bme\s+and)\s+` + nameRE),
		Build:   buildName},
	{Name: "name_and_i", Field: wager.FieldParticipant,
		Pattern: regexp.MustCompile(`\b` + nameRE + `\s+(?i:and\s+(?:I|me))\b`),
		Build:   buildName},
	{Name: "with_name", Field: wager.FieldParticipant,
		Pattern: regexp.MustCompile(`(?i:\bwith)\s+` + nameRE),
		Build:   buildName},
	{Name: "against_name", Field: wager.FieldParticipant,
		Pattern: regexp.MustCompile(`(?i:\bagainst)\s+` + nameRE),
		Build:   buildName},
	{Name: "bare_name", Field: wager.FieldParticipant,
		Pattern: regexp.MustCompile(`^\s*([A-Z][a-z]+)\s*[.!]?\s*$`),
		Build:   buildName},

	// Event description.
	{Name: "team_vs_team", Field: wager.FieldEvent, Fixture: true,
		Pattern: regexp.MustCompile(`\b` + teamRE + `\s+(?i:vs\.?|versus|v\.?)\s+` + teamRE),
		Build:   buildFixture},
	{Name: "competition", Field: wager.FieldEvent, Fixture: true,
		Pattern: regexp.MustCompile(`(?i)\b(ipl|nba|nfl|mlb|nhl|fifa|uefa|world cup|super bowl|champions league|premier league|wimbledon|olympics)\b(?:\s+(final|semi[- ]?final|match|game|playoffs?))?`),
		Build:   buildCompetition},
	{Name: "election", Field: wager.FieldEvent,
		Pattern: regexp.MustCompile(`(?i)\b(?:(?:presidential|general|midterm|local|mayoral|us|uk)\s+)?elections?(?:\s+results?)?\b`),
		Build: func(m []string, text string) (Fields, bool) {
			return Fields{Event: strings.ToLower(m[0]), Category: "politics"}, true
		}},
	{Name: "sport_match", Field: wager.FieldEvent, Fixture: true,
		Pattern: regexp.MustCompile(`(?i)\b(cricket|football|soccer|basketball|tennis|baseball|hockey|rugby|golf|boxing|ufc|f1)\s+(match|game|final|fight|race|tournament)\b`),
		Build: func(m []string, text string) (Fields, bool) {
			return Fields{Event: strings.ToLower(m[1] + " " + m[2]), Category: categorize(text, true)}, true
		}},
	{Name: "sport_word", Field: wager.FieldEvent, Fixture: true,
		Pattern: regexp.MustCompile(`(?i)\b(cricket|football|soccer|basketball|tennis|baseball|hockey|rugby)\b`),
		Build: func(m []string, text string) (Fields, bool) {
			return Fields{Event: strings.ToLower(m[1]) + " match", Category: categorize(text, true)}, true
		}},
	{Name: "whether", Field: wager.FieldEvent,
		Pattern: regexp.MustCompile(`(?i)\bon\s+(?:whether|if)\s+(.+?)\s*(?:[,.!?]|$)`),
		Build: func(m []string, text string) (Fields, bool) {
			desc := strings.TrimSpace(m[1])
			if len(strings.Fields(desc)) < 2 {
				return Fields{}, false
			}
			return Fields{Event: desc, Category: categorize(text, false)}, true
		}},
	{Name: "bare_match", Field: wager.FieldEvent, Fixture: true,
		Pattern: regexp.MustCompile(`(?i)\b(match|game|fight|race)\b`),
		Build: func(m []string, text string) (Fields, bool) {
			return Fields{Event: strings.ToLower(m[1]), Category: categorize(text, true)}, true
		}},

	// Timeframe.
	{Name: "relative_day", Field: wager.FieldTimeframe,
		Pattern: regexp.MustCompile(`(?i)\b(day after tomorrow|today|tonight|tomorrow)\b`),
		Build:   buildTimeframe},
	{Name: "relative_period", Field: wager.FieldTimeframe,
		Pattern: regexp.MustCompile(`(?i)\b((?:this|next)\s+(?:week(?:end)?|month|year|` + dayRE + `))\b`),
		Build:   buildTimeframe},
	{Name: "weekday", Field: wager.FieldTimeframe,
		Pattern: regexp.MustCompile(`(?i)\b(` + dayRE + `)\b`),
		Build:   buildTimeframe},
	{Name: "iso_date", Field: wager.FieldTimeframe,
		Pattern: regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`),
		Build:   buildTimeframe},
	{Name: "month_day", Field: wager.FieldTimeframe,
		Pattern: regexp.MustCompile(`(?i)\b(` + monthRE + `\.?\s+\d{1,2}(?:st|nd|rd|th)?)\b`),
		Build:   buildTimeframe},
	{Name: "day_month", Field: wager.FieldTimeframe,
		Pattern: regexp.MustCompile(`(?i)\b(\d{1,2}(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthRE + `)(?:\s|$|[,.!?])`),
		Build:   buildTimeframe},
	{Name: "in_duration", Field: wager.FieldTimeframe,
		Pattern: regexp.MustCompile(`(?i)\b(in\s+\d+\s+(?:hours?|days?|weeks?))\b`),
		Build:   buildTimeframe},

	// Stake.
	{Name: "amount_token", Field: wager.FieldAmount,
		Pattern: regexp.MustCompile(`(?i)` + amountRE + `\s*` + tokenRE + `\b`),
		Build: func(m []string, text string) (Fields, bool) {
			return buildStake(m[1], m[2])
		}},
	{Name: "token_amount", Field: wager.FieldAmount,
		Pattern: regexp.MustCompile(`(?i)\b` + tokenRE + `\s*` + amountRE),
		Build: func(m []string, text string) (Fields, bool) {
			return buildStake(m[2], m[1])
		}},
	{Name: "dollar_sign", Field: wager.FieldAmount,
		Pattern: regexp.MustCompile(`\$\s?` + amountRE),
		Build: func(m []string, text string) (Fields, bool) {
			return buildStake(m[1], "")
		}},
	{Name: "amount_dollars", Field: wager.FieldAmount,
		Pattern: regexp.MustCompile(`(?i)\b` + amountRE + `\s*(?:dollars?|bucks|usd)\b`),
		Build: func(m []string, text string) (Fields, bool) {
			return buildStake(m[1], "")
		}},
	{Name: "bet_amount", Field: wager.FieldAmount,
		Pattern: regexp.MustCompile(`(?i)\b(?:bet|wager|stake|put)\s+` + amountRE + `(?:\s|,|$)`),
		Build: func(m []string, text string) (Fields, bool) {
			return buildStake(m[1], "")
		}},

	// Prediction.
	{Name: "predict_winner", Field: wager.FieldPrediction,
		Pattern: regexp.MustCompile(`(?i)\b(?:i think|i predict|i believe|i reckon|i'm sure|i am sure|i'm betting|i am betting|my prediction is|my pick is|i'm backing|i am backing|i back)\s+(?:that\s+)?(?:the\s+)?(.+?)\s+` + winRE + `\b`),
		Build:   buildPrediction},
	{Name: "team_will_win", Field: wager.FieldPrediction,
		Pattern: regexp.MustCompile(`\b` + teamRE + `\s+(?i:` + winRE + `)\b`),
		Build:   buildPrediction},
	{Name: "team_will_beat", Field: wager.FieldPrediction,
		Pattern: regexp.MustCompile(`\b` + teamRE + `\s+(?i:will\s+beat|beats|to\s+beat)\s`),
		Build:   buildPrediction},
	{Name: "my_prediction", Field: wager.FieldPrediction,
		Pattern: regexp.MustCompile(`(?i)\bmy\s+(?:prediction|pick|guess)\s+is\s+(?:that\s+)?([^,.!?]+)`),
		Build:   buildPrediction},
	{Name: "i_think", Field: wager.FieldPrediction,
		Pattern: regexp.MustCompile(`(?i)\bi\s+(?:think|predict|believe|reckon)\s+(?:that\s+)?([^,.!?]+)`),
		Build:   buildClaim},
}

// Rules returns a copy of the extraction table in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// stopNames are capitalised words that are never a second participant.
var stopNames = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`
		india england australia pakistan south africa new zealand sri lanka bangladesh west indies
		afghanistan ireland netherlands brazil argentina france germany spain italy portugal
		lakers warriors celtics bulls heat knicks nets chiefs eagles patriots cowboys
		arsenal chelsea liverpool barcelona madrid real united city mumbai chennai kolkata delhi
		bangalore rcb csk kkr
		today tomorrow tonight yesterday weekend monday tuesday wednesday thursday friday saturday sunday
		january february march april may june july august september october november december
		usdc usdt dai exusdt slice nero usd
		i me my mine you your him her them us we they someone somebody anyone everyone friend friends
		player the a an this that it yes no ok okay sure hi hello hey thanks please bet wager
		great cool nice awesome perfect fine good done right alright thank cheers yep yeah yup nope nah
		sounds maybe sorry wait actually wow oh ah bye whatever what why how when where who which
		ipl nba nfl fifa uefa cricket football soccer basketball tennis match game`) {
		stopNames[w] = true
	}
}

func buildName(m []string, _ string) (Fields, bool) {
	name := strings.TrimSuffix(strings.TrimSuffix(m[1], "'s"), "'")
	if name == "" || stopNames[strings.ToLower(name)] {
		return Fields{}, false
	}
	return Fields{Participant: strings.ToUpper(name[:1]) + name[1:]}, true
}

func buildFixture(m []string, text string) (Fields, bool) {
	left := trimTeam(m[1])
	right := trimTeam(m[2])
	if left == "" || right == "" {
		return Fields{}, false
	}
	desc := left + " vs " + right
	if sport := sportRE.FindStringSubmatch(text); sport != nil {
		desc += " " + strings.ToLower(sport[1]) + " match"
	}
	return Fields{Event: desc, Category: categorize(text, true)}, true
}

var sportRE = regexp.MustCompile(`(?i)\b(cricket|football|soccer|basketball|tennis|baseball|hockey|rugby)\b`)

// trimTeam drops possessives, punctuation and stop words at either end of a
// captured team name ("Tomorrow's India" becomes "India").
func trimTeam(s string) string {
	words := strings.Fields(s)
	for len(words) > 0 && stopTeamWord(words[0]) {
		words = words[1:]
	}
	for len(words) > 0 && stopTeamWord(words[len(words)-1]) {
		words = words[:len(words)-1]
	}
	return strings.TrimRight(strings.Join(words, " "), ".,'")
}

func stopTeamWord(w string) bool {
	w = strings.ToLower(strings.TrimRight(strings.TrimSuffix(w, "'s"), ".,'"))
	switch w {
	case "today", "tomorrow", "tonight", "i", "the", "a", "an", "my", "on", "bet", "match", "game",
		"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday":
		return true
	}
	return false
}

var competitionNames = map[string]string{
	"ipl": "IPL", "nba": "NBA", "nfl": "NFL", "mlb": "MLB", "nhl": "NHL", "fifa": "FIFA", "uefa": "UEFA",
	"world cup": "World Cup", "super bowl": "Super Bowl", "champions league": "Champions League",
	"premier league": "Premier League", "wimbledon": "Wimbledon", "olympics": "Olympics",
}

func buildCompetition(m []string, text string) (Fields, bool) {
	desc := competitionNames[strings.ToLower(m[1])]
	if m[2] != "" {
		desc += " " + strings.ToLower(m[2])
	}
	return Fields{Event: desc, Category: categorize(text, true)}, true
}

func buildTimeframe(m []string, _ string) (Fields, bool) {
	tf := strings.Join(strings.Fields(strings.ToLower(m[1])), " ")
	return Fields{Timeframe: tf}, true
}

var tokenSymbols = map[string]string{
	"usdt": "USDT", "usdc": "USDC", "dai": "DAI", "exusdt": "exUSDT", "slice": "SLICE", "nero": "NERO",
}

func buildStake(amount, token string) (Fields, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(amount, ",", ""), 64)
	if err != nil || v <= 0 {
		return Fields{}, false
	}
	return Fields{Amount: v, Token: tokenSymbols[strings.ToLower(token)]}, true
}

func buildPrediction(m []string, _ string) (Fields, bool) {
	p := strings.TrimSpace(strings.TrimRight(m[1], ".,!? "))
	if strings.HasPrefix(strings.ToLower(p), "the ") {
		p = strings.TrimSpace(p[4:])
	}
	if p == "" || len(strings.Fields(p)) > 8 {
		return Fields{}, false
	}
	switch strings.ToLower(p) {
	case "i", "it", "we", "you", "they", "he", "she", "so":
		return Fields{}, false
	}
	return Fields{Prediction: p}, true
}

// outcomeWords mark a clause as a claim about how something turns out.
var outcomeWords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`
		win wins won winning beat beats lose loses lost draw draws tie ties score scores
		hit hits reach reaches pass passes happen happens finish finishes take takes top tops
		qualify qualifies rain rains snow snows`) {
		outcomeWords[w] = true
	}
}

// buildClaim accepts an opinion clause as a prediction only when it names an
// outcome ("it will rain") or is nothing but a side ("India", "Real Madrid").
func buildClaim(m []string, text string) (Fields, bool) {
	f, ok := buildPrediction(m, text)
	if !ok {
		return Fields{}, false
	}
	words := strings.Fields(f.Prediction)
	side := !pronouns[strings.ToLower(words[0])]
	for _, w := range words {
		if outcomeWords[strings.ToLower(strings.Trim(w, "'"))] {
			return f, true
		}
		if w[0] < 'A' || w[0] > 'Z' {
			side = false
		}
	}
	return f, side
}

var pronouns = map[string]bool{
	"i": true, "it": true, "it's": true, "this": true, "that": true, "there": true,
	"we": true, "you": true, "they": true, "he": true, "she": true,
}

// categorize picks an event category from keywords anywhere in the utterance.
func categorize(text string, fixture bool) string {
	t := strings.ToLower(text)
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if containsWord(t, kw) {
				return c.category
			}
		}
	}
	if fixture {
		return "sports"
	}
	return "custom"
}

var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"cricket", []string{"cricket", "ipl", "odi", "t20", "test match"}},
	{"basketball", []string{"basketball", "nba", "lakers", "warriors", "celtics", "bulls", "knicks"}},
	{"american_football", []string{"nfl", "super bowl", "american football"}},
	{"football", []string{"football", "soccer", "fifa", "uefa", "premier league", "champions league", "world cup"}},
	{"tennis", []string{"tennis", "wimbledon"}},
	{"baseball", []string{"baseball", "mlb"}},
	{"hockey", []string{"hockey", "nhl"}},
	{"rugby", []string{"rugby"}},
	{"politics", []string{"election"}},
}

func containsWord(text, word string) bool {
	for i := strings.Index(text, word); i >= 0; {
		end := i + len(word)
		if (i == 0 || !isWordByte(text[i-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		next := strings.Index(text[i+1:], word)
		if next < 0 {
			break
		}
		i += next + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
