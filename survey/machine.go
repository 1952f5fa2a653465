package survey

import (
	"fmt"
	"strings"
)

// Reply is a message for the user plus optional quick-reply rows.
type Reply struct {
	Text    string
	Choices [][]string
}

// Empty reports whether there is nothing to send.
func (r Reply) Empty() bool { return r.Text == "" }

// Outcome summarizes what a transition did.
type Outcome uint8

const (
	// OutcomeIgnored means the event did not apply to the session.
	OutcomeIgnored Outcome = iota
	// OutcomeStarted means a fresh session was created.
	OutcomeStarted
	// OutcomeAdvanced means input was accepted and the stage may have changed.
	OutcomeAdvanced
	// OutcomeRejected means input failed validation and the stage is unchanged.
	OutcomeRejected
	// OutcomeCancelled means the session was discarded without a report.
	OutcomeCancelled
	// OutcomeCompleted means the session is ready for finalization.
	OutcomeCompleted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeStarted:
		return "started"
	case OutcomeAdvanced:
		return "advanced"
	case OutcomeRejected:
		return "rejected"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeCompleted:
		return "completed"
	}
	return "unknown"
}

// ValidationError describes input that could not be accepted at a stage.
type ValidationError struct {
	Stage  Stage
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("survey: invalid input at %s: %s", e.Stage, e.Reason)
}

// Code satisfies the router's error code lookup.
func (e *ValidationError) Code() string { return "validation" }

// Transition is the result of feeding one event to a session.
type Transition struct {
	From    Stage
	To      Stage
	Session Session
	Reply   Reply
	Outcome Outcome
	Err     error
}

// Machine drives sessions through the catalog.
type Machine struct {
	catalog *Catalog
}

// NewMachine returns a machine over catalog; nil selects DefaultCatalog.
func NewMachine(catalog *Catalog) *Machine {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Machine{catalog: catalog}
}

// Catalog exposes the machine's catalog.
func (m *Machine) Catalog() *Catalog { return m.catalog }

// Start opens a new session.
func (m *Machine) Start() Transition {
	s := NewSession()
	return Transition{
		To:      s.Stage,
		Session: s,
		Reply:   Reply{Text: MsgGreeting},
		Outcome: OutcomeStarted,
	}
}

// Step applies ev to s. The zero Session stands for "no active conversation".
// s is never modified; the next session is returned in the transition.
func (m *Machine) Step(s Session, ev Event) Transition {
	if name, ok := ev.Command(); ok {
		return m.command(s, name)
	}

	switch s.Stage {
	case StageAwaitingName:
		return m.name(s, ev)
	case StageAwaitingLocation:
		return m.location(s, ev)
	case StageAwaitingAnswers:
		return m.answer(s, ev)
	case StageAwaitingDamageFlag:
		return m.damageFlag(s, ev)
	case StageAwaitingDamagePhoto:
		return m.damagePhoto(s, ev)
	case StageAwaitingDamageDescription:
		return m.damageDescription(s, ev)
	case StageDone:
		return ignore(s, Reply{})
	}
	return ignore(s, Reply{Text: MsgStartHint})
}

// Prompt repeats the question for the session's current stage.
func (m *Machine) Prompt(s Session) Reply {
	switch s.Stage {
	case StageAwaitingName:
		return Reply{Text: MsgGreeting}
	case StageAwaitingLocation:
		return Reply{Text: MsgChooseLocation, Choices: m.catalog.LocationRows()}
	case StageAwaitingAnswers:
		return Reply{Text: m.catalog.Prompt(len(s.Answers)), Choices: YesNo}
	case StageAwaitingDamageFlag:
		return Reply{Text: MsgDamageQuestion, Choices: YesNo}
	case StageAwaitingDamagePhoto:
		return Reply{Text: MsgSendPhoto}
	case StageAwaitingDamageDescription:
		return Reply{Text: MsgDescribeDamage}
	}
	return Reply{}
}

func (m *Machine) command(s Session, name string) Transition {
	switch name {
	case CommandStart:
		t := m.Start()
		t.From = s.Stage
		return t
	case CommandCancel:
		if s.Stage == 0 || s.Stage.Terminal() {
			return ignore(s, Reply{Text: MsgNothingToCancel})
		}
		return Transition{
			From:    s.Stage,
			To:      StageDone,
			Session: Session{Stage: StageDone},
			Reply:   Reply{Text: MsgCancelled},
			Outcome: OutcomeCancelled,
		}
	}
	return ignore(s, Reply{})
}

func (m *Machine) name(s Session, ev Event) Transition {
	if ev.Kind != KindText {
		return reject(s, MsgTextExpected, nil, "text expected")
	}
	name := strings.TrimSpace(ev.Text)
	if name == "" {
		return reject(s, MsgInvalidName, nil, "blank name")
	}
	next := s.clone()
	next.Name = name
	next.Stage = StageAwaitingLocation
	return m.advance(s, next)
}

func (m *Machine) location(s Session, ev Event) Transition {
	loc := strings.TrimSpace(ev.Text)
	if ev.Kind != KindText || !m.catalog.ValidLocation(loc) {
		return reject(s, MsgInvalidLocation, m.catalog.LocationRows(), "unknown location")
	}
	next := s.clone()
	next.Location = loc
	next.Answers = make([]Answer, 0, m.catalog.Len())
	next.Stage = StageAwaitingAnswers
	return m.advance(s, next)
}

func (m *Machine) answer(s Session, ev Event) Transition {
	if ev.Kind != KindText {
		return reject(s, m.catalog.Prompt(len(s.Answers)), YesNo, "text expected")
	}
	next := s.clone()
	next.Answers = append(next.Answers, Answer{
		Prompt: m.catalog.Prompt(len(s.Answers)),
		Reply:  ev.Text,
	})
	if len(next.Answers) >= m.catalog.Len() {
		next.Stage = StageAwaitingDamageFlag
	}
	return m.advance(s, next)
}

func (m *Machine) damageFlag(s Session, ev Event) Transition {
	if ev.Kind != KindText {
		return reject(s, MsgDamageQuestion, YesNo, "text expected")
	}
	next := s.clone()
	next.Damage = &Damage{Flag: ev.Text}
	if next.Damage.Reported() {
		next.Stage = StageAwaitingDamagePhoto
		return m.advance(s, next)
	}
	return complete(s, next)
}

func (m *Machine) damagePhoto(s Session, ev Event) Transition {
	if ev.Kind != KindImage || ev.Image == "" {
		return reject(s, MsgInvalidPhoto, nil, "image expected")
	}
	next := s.clone()
	if next.Damage == nil {
		next.Damage = &Damage{Flag: Affirmative}
	}
	next.Damage.Evidence = ev.Image
	next.Stage = StageAwaitingDamageDescription
	return m.advance(s, next)
}

func (m *Machine) damageDescription(s Session, ev Event) Transition {
	if ev.Kind != KindText {
		return reject(s, MsgDescribeDamage, nil, "text expected")
	}
	next := s.clone()
	if next.Damage == nil {
		next.Damage = &Damage{Flag: Affirmative}
	}
	next.Damage.Description = ev.Text
	return complete(s, next)
}

func (m *Machine) advance(prev, next Session) Transition {
	return Transition{
		From:    prev.Stage,
		To:      next.Stage,
		Session: next,
		Reply:   m.Prompt(next),
		Outcome: OutcomeAdvanced,
	}
}

func complete(prev, next Session) Transition {
	next.Stage = StageDone
	return Transition{
		From:    prev.Stage,
		To:      StageDone,
		Session: next,
		Outcome: OutcomeCompleted,
	}
}

func reject(s Session, text string, choices [][]string, reason string) Transition {
	return Transition{
		From:    s.Stage,
		To:      s.Stage,
		Session: s,
		Reply:   Reply{Text: text, Choices: choices},
		Outcome: OutcomeRejected,
		Err:     &ValidationError{Stage: s.Stage, Reason: reason},
	}
}

func ignore(s Session, r Reply) Transition {
	return Transition{
		From:    s.Stage,
		To:      s.Stage,
		Session: s,
		Reply:   r,
		Outcome: OutcomeIgnored,
	}
}
