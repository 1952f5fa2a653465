package survey

// Affirmative is the only reply that opens the damage sub-flow.
const Affirmative = "Да"

// Negative is the default damage flag shown when none was given.
const Negative = "Нет"

// Answer pairs a catalog prompt with the user's reply.
type Answer struct {
	Prompt string
	Reply  string
}

// Damage holds the damage sub-flow fields. A nil *Damage means the flag was never set.
type Damage struct {
	Flag        string
	Evidence    ImageRef
	Description string
}

// Reported reports whether the flag opened the photo branch.
func (d *Damage) Reported() bool {
	return d != nil && d.Flag == Affirmative
}

// Session accumulates one user's answers.
//
// Populated fields by stage:
//
//	AwaitingLocation          Name
//	AwaitingAnswers           Name, Location, Answers[:i]
//	AwaitingDamageFlag        Name, Location, all Answers
//	AwaitingDamagePhoto       ... Damage.Flag == Affirmative
//	AwaitingDamageDescription ... Damage.Evidence
type Session struct {
	Stage    Stage
	Name     string
	Location string
	Answers  []Answer
	Damage   *Damage
}

// NewSession returns a session waiting for the user's name.
func NewSession() Session {
	return Session{Stage: StageAwaitingName}
}

// clone copies the mutable parts so transitions never alias the caller's session.
func (s Session) clone() Session {
	out := s
	if s.Answers != nil {
		out.Answers = append([]Answer(nil), s.Answers...)
	}
	if s.Damage != nil {
		d := *s.Damage
		out.Damage = &d
	}
	return out
}
