package bot

import (
	"context"
	"fmt"

	tg "github.com/m3rciful/reportbot/core/telegram"
	"github.com/m3rciful/reportbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/reportbot/core/telegram/helpers"
	"github.com/m3rciful/reportbot/survey"

	tele "gopkg.in/telebot.v4"
)

// chatReplier answers in the chat the update came from.
type chatReplier struct{ c tele.Context }

func (r chatReplier) Reply(_ context.Context, rep survey.Reply) error {
	return tghelpers.SendChoices(r.c, rep.Text, rep.Choices)
}

// EventFrom converts a Telegram update into a conversation event.
// Photos carry the file id of the largest size. Other media and text-less
// messages (contacts, locations, polls and the like) become KindOther.
func EventFrom(c tele.Context) survey.Event {
	var sender int64
	if u := c.Sender(); u != nil {
		sender = u.ID
	}
	m := c.Message()
	switch {
	case m == nil:
		return survey.OtherEvent(sender)
	case m.Photo != nil:
		return survey.ImageEvent(sender, survey.ImageRef(m.Photo.FileID), m.Caption)
	case m.Media() != nil, m.Text == "":
		return survey.OtherEvent(sender)
	}
	return survey.TextEvent(sender, m.Text)
}

// ManagerHandler routes an update of a user with an open conversation.
func (c *Conversations) ManagerHandler(tc tele.Context) error {
	return c.Handle(tghelpers.BuildContext(tc), EventFrom(tc), chatReplier{tc})
}

func (c *Conversations) command(name string) tele.HandlerFunc {
	return func(tc tele.Context) error {
		var sender int64
		if u := tc.Sender(); u != nil {
			sender = u.ID
		}
		return c.Handle(tghelpers.BuildContext(tc), survey.CommandEvent(sender, name), chatReplier{tc})
	}
}

// Hint answers text sent outside a conversation.
func (c *Conversations) Hint(tc tele.Context) error {
	return tghelpers.SendText(tc, survey.MsgStartHint)
}

func (c *Conversations) active(tc tele.Context) error {
	return tghelpers.SendText(tc, fmt.Sprintf("Активных отчетов: %d", c.Active()))
}

// Register adds /start, /cancel and the admin-only /active command to reg
// and makes Hint the text fallback.
func (c *Conversations) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     c.command(survey.CommandStart),
		Description: "Начать отчет",
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     c.command(survey.CommandCancel),
		Description: "Отменить отчет",
	})
	reg.RegisterCommand("/active", commands.Command{
		Handler:     c.active,
		Description: "Активные отчеты",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.SetTextFallback(c.Hint)
}
