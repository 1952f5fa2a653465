package survey

// Stage is the position of a session in the conversation.
type Stage uint8

const (
	StageAwaitingName Stage = iota + 1
	StageAwaitingLocation
	StageAwaitingAnswers
	StageAwaitingDamageFlag
	StageAwaitingDamagePhoto
	StageAwaitingDamageDescription
	StageDone
)

var stageNames = map[Stage]string{
	StageAwaitingName:              "awaiting_name",
	StageAwaitingLocation:          "awaiting_location",
	StageAwaitingAnswers:           "awaiting_answers",
	StageAwaitingDamageFlag:        "awaiting_damage_flag",
	StageAwaitingDamagePhoto:       "awaiting_damage_photo",
	StageAwaitingDamageDescription: "awaiting_damage_description",
	StageDone:                      "done",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the session is finished and must be discarded.
func (s Stage) Terminal() bool { return s == StageDone }
