package survey

import (
	"context"
	"fmt"
	"strings"
)

// Format renders a finished session as report text.
func Format(s Session) string {
	var b strings.Builder
	b.WriteString("Новый отчет:\n\n")
	fmt.Fprintf(&b, "Имя: %s\n", s.Name)
	fmt.Fprintf(&b, "Квартира: %s\n\n", s.Location)
	for _, a := range s.Answers {
		fmt.Fprintf(&b, "%s - %s\n", a.Prompt, a.Reply)
	}
	flag := Negative
	if s.Damage != nil {
		flag = s.Damage.Flag
	}
	fmt.Fprintf(&b, "Поломки: %s\n", flag)
	if s.Damage.Reported() {
		fmt.Fprintf(&b, "\nОписание: %s", s.Damage.Description)
	}
	return b.String()
}

// Message is the outbound report: plain text, or a caption when Image is set.
type Message struct {
	Text  string
	Image ImageRef
}

// HasImage reports whether the message must be sent as a photo.
func (m Message) HasImage() bool { return m.Image != "" }

// Compose formats s and attaches the damage photo when there is one.
func Compose(s Session) Message {
	msg := Message{Text: Format(s)}
	if s.Damage != nil && s.Damage.Evidence != "" {
		msg.Image = s.Damage.Evidence
	}
	return msg
}

// Deliverer publishes reports to the fixed destination.
type Deliverer interface {
	SendText(ctx context.Context, text string) error
	SendImageWithCaption(ctx context.Context, image ImageRef, caption string) error
}

// DeliveryError wraps a failed delivery attempt.
type DeliveryError struct {
	Kind string
	Err  error
}

func (e *DeliveryError) Error() string { return e.Err.Error() }

func (e *DeliveryError) Unwrap() error { return e.Err }

// Code satisfies the router's error code lookup.
func (e *DeliveryError) Code() string { return "delivery" }

// Deliver sends msg exactly once through d, which must not be nil.
// Failures come back as *DeliveryError.
func Deliver(ctx context.Context, d Deliverer, msg Message) error {
	if msg.HasImage() {
		if err := d.SendImageWithCaption(ctx, msg.Image, msg.Text); err != nil {
			return &DeliveryError{Kind: "photo", Err: err}
		}
		return nil
	}
	if err := d.SendText(ctx, msg.Text); err != nil {
		return &DeliveryError{Kind: "text", Err: err}
	}
	return nil
}
