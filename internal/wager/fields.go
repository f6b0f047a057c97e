package wager

// Field identifies one of the required pieces of a wager.
type Field string

const (
	FieldParticipant Field = "participants"
	FieldEvent       Field = "event"
	FieldTimeframe   Field = "timeframe"
	FieldAmount      Field = "amount"
	FieldPrediction  Field = "prediction"
)

// RequiredFields lists the required fields in the order the user is asked for them.
var RequiredFields = []Field{
	FieldParticipant,
	FieldEvent,
	FieldTimeframe,
	FieldAmount,
	FieldPrediction,
}

// Has reports whether the field is present in s.
func Has(s State, f Field) bool {
	switch f {
	case FieldParticipant:
		return s.ParticipantB != nil && s.ParticipantB.Name != ""
	case FieldEvent:
		return s.Event != nil && s.Event.Description != ""
	case FieldTimeframe:
		return s.Event != nil && s.Event.Timeframe != ""
	case FieldAmount:
		return s.Stake != nil && s.Stake.Amount > 0
	case FieldPrediction:
		return s.Prediction != ""
	}
	return false
}

// Missing returns the required fields absent from s, highest priority first.
func Missing(s State) []Field {
	var missing []Field
	for _, f := range RequiredFields {
		if !Has(s, f) {
			missing = append(missing, f)
		}
	}
	return missing
}
