package extractor

import (
	"testing"

	"github.com/MikeSquared-Agency/slice/internal/wager"
)

func seeded() wager.State {
	return wager.NewState("conv-1", "0x1234567890123456789012345678901234567890")
}

func TestExtract_CompleteUtterance(t *testing.T) {
	x := New("USDC")
	res := x.Extract("I want to bet with Alex on tomorrow's cricket match India vs England, 1 USDC, I think India will win", seeded())
	s := wager.Apply(seeded(), res.Patch)

	if s.ParticipantB == nil || s.ParticipantB.Name != "Alex" {
		t.Errorf("expected participant Alex, got %+v", s.ParticipantB)
	}
	if s.Event == nil {
		t.Fatal("expected an event")
	}
	if s.Event.Description != "India vs England cricket match" {
		t.Errorf("unexpected event description %q", s.Event.Description)
	}
	if s.Event.Category != "cricket" {
		t.Errorf("expected category cricket, got %q", s.Event.Category)
	}
	if s.Event.Timeframe != "tomorrow" {
		t.Errorf("expected timeframe tomorrow, got %q", s.Event.Timeframe)
	}
	if s.Stake == nil || s.Stake.Amount != 1 || s.Stake.TokenSymbol != "USDC" || s.Stake.TotalPot != 2 {
		t.Errorf("unexpected stake %+v", s.Stake)
	}
	if s.Prediction != "India" {
		t.Errorf("expected prediction India, got %q", s.Prediction)
	}
	if len(s.MissingFields) != 0 {
		t.Errorf("expected nothing missing, got %v", s.MissingFields)
	}
}

func TestExtract_VagueUtterance(t *testing.T) {
	x := New("USDC")
	res := x.Extract("I want to bet on a cricket match", wager.NewState("c", ""))
	s := wager.Apply(wager.NewState("c", ""), res.Patch)

	for _, f := range []wager.Field{wager.FieldParticipant, wager.FieldAmount, wager.FieldPrediction} {
		if wager.Has(s, f) {
			t.Errorf("expected %s to be missing", f)
		}
	}
	if s.Event == nil || s.Event.Description != "cricket match" {
		t.Fatalf("expected cricket match event, got %+v", s.Event)
	}
	if s.Event.Timeframe != wager.TimeframeUpcoming {
		t.Errorf("expected fixture to default to upcoming, got %q", s.Event.Timeframe)
	}
}

func TestExtract_StakeForms(t *testing.T) {
	tests := []struct {
		text   string
		amount float64
		token  string
	}{
		{"$50", 50, "USDC"},
		{"50 USDC", 50, "USDC"},
		{"$ 12.5 please", 12.5, "USDC"},
		{"bet 20 usdt", 20, "USDT"},
		{"USDC 15", 15, "USDC"},
		{"1,000 DAI", 1000, "DAI"},
		{"10 exUSDT", 10, "exUSDT"},
		{"25 dollars", 25, "USDC"},
		{"bet 10 with Mike", 10, "USDC"},
	}
	x := New("USDC")
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			p := x.Extract(tt.text, wager.State{}).Patch
			if p.Stake == nil {
				t.Fatalf("expected a stake from %q", tt.text)
			}
			if p.Stake.Amount != tt.amount || p.Stake.TokenSymbol != tt.token {
				t.Errorf("got %v %s, want %v %s", p.Stake.Amount, p.Stake.TokenSymbol, tt.amount, tt.token)
			}
		})
	}
}

func TestExtract_ZeroAmountIsNotAStake(t *testing.T) {
	p := New("USDC").Extract("0 USDC", wager.State{}).Patch
	if p.Stake != nil {
		t.Errorf("expected no stake, got %+v", p.Stake)
	}
}

func TestExtract_DefaultTokenIsConfigurable(t *testing.T) {
	p := New("DAI").Extract("$5", wager.State{}).Patch
	if p.Stake == nil || p.Stake.TokenSymbol != "DAI" {
		t.Errorf("expected DAI default token, got %+v", p.Stake)
	}
}

func TestExtract_IdempotentOnCompleteState(t *testing.T) {
	x := New("USDC")
	text := "I want to bet with Alex on tomorrow's cricket match India vs England, 1 USDC, I think India will win"
	s := wager.Apply(seeded(), x.Extract(text, seeded()).Patch)

	for i := 0; i < 2; i++ {
		res := x.Extract(text, s)
		if !res.Patch.IsEmpty() {
			t.Fatalf("pass %d: expected empty patch, got %+v", i, res.Patch)
		}
		if len(res.Matches) != 0 {
			t.Fatalf("pass %d: expected no matches, got %v", i, res.Matches)
		}
	}
}

func TestExtract_SkipsKnownCategories(t *testing.T) {
	x := New("USDC")
	known := wager.Apply(seeded(), wager.Patch{
		ParticipantB: &wager.Participant{Name: "Sarah"},
		Stake:        &wager.Stake{Amount: 10, TokenSymbol: "USDC"},
	})

	res := x.Extract("bet 5 DAI with Mike on Lakers vs Warriors tonight", known)
	if res.Patch.ParticipantB != nil {
		t.Errorf("participant should be skipped, got %+v", res.Patch.ParticipantB)
	}
	if res.Patch.Stake != nil {
		t.Errorf("stake should be skipped, got %+v", res.Patch.Stake)
	}
	if res.Patch.Event == nil || res.Patch.Event.Description != "Lakers vs Warriors" {
		t.Fatalf("expected Lakers vs Warriors, got %+v", res.Patch.Event)
	}
	if res.Patch.Event.Category != "basketball" || res.Patch.Event.Timeframe != "tonight" {
		t.Errorf("unexpected event %+v", res.Patch.Event)
	}
}

func TestExtract_FollowUpAnswers(t *testing.T) {
	x := New("USDC")
	s := wager.Apply(seeded(), x.Extract("I want to bet 10 USDC with Sarah on Lakers vs Warriors tonight", seeded()).Patch)
	if len(s.MissingFields) != 1 || s.MissingFields[0] != wager.FieldPrediction {
		t.Fatalf("expected only prediction missing, got %v", s.MissingFields)
	}

	s = wager.Apply(s, x.Extract("Lakers will win", s).Patch)
	if s.Prediction != "Lakers" {
		t.Errorf("expected prediction Lakers, got %q", s.Prediction)
	}

	s2 := wager.Apply(seeded(), x.Extract("bet 10 USDC on the India vs England match tomorrow, India will win", seeded()).Patch)
	s2 = wager.Apply(s2, x.Extract("Alex", s2).Patch)
	if s2.ParticipantB == nil || s2.ParticipantB.Name != "Alex" {
		t.Errorf("expected bare name answer to fill participant, got %+v", s2.ParticipantB)
	}
}

func TestExtract_StopNamesAreNotParticipants(t *testing.T) {
	x := New("USDC")
	for _, text := range []string{
		"I want to bet with India on the match",
		"bet with Tomorrow",
		"bet against England",
		"Yes",
		"Great",
		"Thanks!",
		"with USDC",
	} {
		if p := x.Extract(text, wager.State{}).Patch; p.ParticipantB != nil {
			t.Errorf("%q: expected no participant, got %q", text, p.ParticipantB.Name)
		}
	}
}

func TestExtract_RuleOrdering(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		field wager.Field
		rule  string
	}{
		{"fixture before bare match", "the India vs England match", wager.FieldEvent, "team_vs_team"},
		{"competition before bare match", "the IPL match", wager.FieldEvent, "competition"},
		{"sport match before sport word", "a cricket match", wager.FieldEvent, "sport_match"},
		{"relative day before iso date", "2026-10-20 or maybe tomorrow", wager.FieldTimeframe, "relative_day"},
		{"relative day before weekday", "Saturday, no wait, tomorrow", wager.FieldTimeframe, "relative_day"},
		{"amount with token before dollar sign", "$50 USDT", wager.FieldAmount, "amount_token"},
		{"friend named before with", "with my friend named Bob", wager.FieldParticipant, "friend_named"},
		{"winner phrase before generic opinion", "I think India will win", wager.FieldPrediction, "predict_winner"},
	}
	x := New("USDC")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := x.Extract(tt.text, wager.State{})
			for _, m := range res.Matches {
				if m.Field == tt.field {
					if m.Rule != tt.rule {
						t.Errorf("expected rule %s, got %s", tt.rule, m.Rule)
					}
					return
				}
			}
			t.Errorf("no %s match in %v", tt.field, res.Matches)
		})
	}
}

func TestRules_Individually(t *testing.T) {
	tests := []struct {
		rule string
		text string
		want Fields
	}{
		{"player_b_is", "Player B is jordan", Fields{Participant: "Jordan"}},
		{"friend_named", "my friend called Bob", Fields{Participant: "Bob"}},
		{"between_me_and", "a bet between me and Priya", Fields{Participant: "Priya"}},
		{"me_and", "me and Sam want to bet", Fields{Participant: "Sam"}},
		{"name_and_i", "Can Sarah and I wager", Fields{Participant: "Sarah"}},
		{"with_name", "With Alex's approval", Fields{Participant: "Alex"}},
		{"against_name", "against Tom", Fields{Participant: "Tom"}},
		{"bare_name", "Alex.", Fields{Participant: "Alex"}},
		{"team_vs_team", "Tomorrow's Mumbai Indians vs Chennai Super Kings", Fields{Event: "Mumbai Indians vs Chennai Super Kings", Category: "sports"}},
		{"competition", "the ipl final", Fields{Event: "IPL final", Category: "cricket"}},
		{"election", "next Presidential election results", Fields{Event: "presidential election results", Category: "politics"}},
		{"sport_match", "a tennis final", Fields{Event: "tennis final", Category: "tennis"}},
		{"sport_word", "something in football", Fields{Event: "football match", Category: "football"}},
		{"whether", "bet on whether it rains tomorrow.", Fields{Event: "it rains tomorrow", Category: "custom"}},
		{"bare_match", "the game", Fields{Event: "game", Category: "sports"}},
		{"relative_day", "Day After Tomorrow", Fields{Timeframe: "day after tomorrow"}},
		{"relative_period", "next  week", Fields{Timeframe: "next week"}},
		{"weekday", "on Saturday", Fields{Timeframe: "saturday"}},
		{"iso_date", "on 2026-11-02", Fields{Timeframe: "2026-11-02"}},
		{"month_day", "January 15th", Fields{Timeframe: "january 15th"}},
		{"day_month", "the 15th of March.", Fields{Timeframe: "15th of march"}},
		{"in_duration", "in 3 days", Fields{Timeframe: "in 3 days"}},
		{"amount_token", "20 dai", Fields{Amount: 20, Token: "DAI"}},
		{"token_amount", "USDT 7.5", Fields{Amount: 7.5, Token: "USDT"}},
		{"dollar_sign", "$50", Fields{Amount: 50}},
		{"amount_dollars", "30 bucks", Fields{Amount: 30}},
		{"bet_amount", "wager 40, ok?", Fields{Amount: 40}},
		{"predict_winner", "I'm backing the Warriors to win", Fields{Prediction: "Warriors"}},
		{"team_will_win", "Real Madrid will win", Fields{Prediction: "Real Madrid"}},
		{"team_will_beat", "Australia will beat India", Fields{Prediction: "Australia"}},
		{"my_prediction", "my pick is a draw", Fields{Prediction: "a draw"}},
		{"i_think", "I think it will rain", Fields{Prediction: "it will rain"}},
		{"i_think", "I reckon Real Madrid", Fields{Prediction: "Real Madrid"}},
		{"i_think", "i believe the Lakers take it", Fields{Prediction: "Lakers take it"}},
		{"team_vs_team", "Let's bet on Saturday India vs England", Fields{Event: "India vs England", Category: "sports"}},
		{"team_vs_team", "On Friday Arsenal v Chelsea", Fields{Event: "Arsenal vs Chelsea", Category: "sports"}},

		// Rejected matches leave the field to later rules or the user.
		{"i_think", "I think it is on Saturday", Fields{}},
		{"i_think", "I think so", Fields{}},
		{"i_think", "I think that the match is next week", Fields{}},
		{"i_think", "I believe India plays on Sunday", Fields{}},
		{"bare_name", "Great", Fields{}},
		{"bare_name", "Thanks!", Fields{}},
		{"bare_name", "Perfect.", Fields{}},
		{"bare_name", "Yeah", Fields{}},
	}

	byName := map[string]Rule{}
	for _, r := range Rules() {
		byName[r.Name] = r
	}

	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			r, ok := byName[tt.rule]
			if !ok {
				t.Fatalf("rule %s not in table", tt.rule)
			}
			m := r.Pattern.FindStringSubmatch(tt.text)
			if m == nil {
				if tt.want != (Fields{}) {
					t.Fatalf("pattern did not match %q", tt.text)
				}
				return
			}
			got, ok := r.Build(m, tt.text)
			if tt.want == (Fields{}) {
				if ok {
					t.Errorf("expected %q to be rejected, got %+v", tt.text, got)
				}
				return
			}
			if !ok {
				t.Fatalf("build rejected %q", tt.text)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRules_TableIsWellFormed(t *testing.T) {
	seen := map[string]bool{}
	fields := map[wager.Field]int{}
	for _, r := range Rules() {
		if seen[r.Name] {
			t.Errorf("duplicate rule name %s", r.Name)
		}
		seen[r.Name] = true
		if r.Pattern == nil || r.Build == nil {
			t.Errorf("rule %s is incomplete", r.Name)
		}
		fields[r.Field]++
	}
	for _, f := range wager.RequiredFields {
		if fields[f] == 0 {
			t.Errorf("no rules for field %s", f)
		}
	}
}

func TestExtract_OpinionWithoutOutcomeIsNotAPrediction(t *testing.T) {
	tests := []struct {
		text      string
		timeframe string
	}{
		{"I think it is on Saturday", "saturday"},
		{"I believe the match is tomorrow", "tomorrow"},
		{"I reckon it starts next week", "next week"},
	}
	x := New("USDC")
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			p := x.Extract(tt.text, wager.State{}).Patch
			if p.Prediction != "" {
				t.Errorf("expected no prediction, got %q", p.Prediction)
			}
			if p.Event == nil || p.Event.Timeframe != tt.timeframe {
				t.Errorf("expected timeframe %q, got %+v", tt.timeframe, p.Event)
			}
		})
	}
}
