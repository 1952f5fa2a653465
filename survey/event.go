package survey

import "strings"

// Kind classifies an inbound message.
type Kind uint8

const (
	KindText Kind = iota + 1
	KindImage
	KindCommand
	// KindOther covers stickers, documents and any other non-photo media.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindCommand:
		return "command"
	case KindOther:
		return "other"
	}
	return "unknown"
}

// Commands recognized by the state machine.
const (
	CommandStart  = "start"
	CommandCancel = "cancel"
)

// ImageRef is an opaque reference to an uploaded image (a Telegram file id).
type ImageRef string

// Event is one inbound message as seen by the state machine.
type Event struct {
	Sender int64
	Kind   Kind
	Text   string
	Image  ImageRef
}

// TextEvent builds a text event; text starting with "/" becomes a command.
func TextEvent(sender int64, text string) Event {
	if name, ok := parseCommand(text); ok {
		return CommandEvent(sender, name)
	}
	return Event{Sender: sender, Kind: KindText, Text: text}
}

// ImageEvent builds an image event. The caption, if any, is kept in Text.
func ImageEvent(sender int64, ref ImageRef, caption string) Event {
	return Event{Sender: sender, Kind: KindImage, Image: ref, Text: caption}
}

// CommandEvent builds a command event for name without the leading slash.
func CommandEvent(sender int64, name string) Event {
	return Event{Sender: sender, Kind: KindCommand, Text: strings.ToLower(name)}
}

// OtherEvent builds an event for content the machine cannot read.
func OtherEvent(sender int64) Event {
	return Event{Sender: sender, Kind: KindOther}
}

// Command returns the command name and true when the event is a command.
func (e Event) Command() (string, bool) {
	if e.Kind != KindCommand {
		return "", false
	}
	return e.Text, true
}

// parseCommand accepts "/name", "/name@bot" and "/name payload".
func parseCommand(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if len(text) < 2 || text[0] != '/' {
		return "", false
	}
	name := text[1:]
	if i := strings.IndexAny(name, " \n\t"); i >= 0 {
		name = name[:i]
	}
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "", false
	}
	return name, true
}
