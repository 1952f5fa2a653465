// Package delivery posts finished reports to the configured Telegram chat.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/reportbot/core/logger"
	"github.com/m3rciful/reportbot/core/telegram/sender"
	"github.com/m3rciful/reportbot/survey"

	tele "gopkg.in/telebot.v4"
)

// Sender is the part of tele.Bot the channel needs.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// ErrInvalidChat reports a destination that is neither a chat id nor an @username.
var ErrInvalidChat = errors.New("delivery: invalid destination chat")

type username string

func (u username) Recipient() string { return string(u) }

// ParseRecipient accepts a numeric chat id ("-100123") or a public "@channel".
func ParseRecipient(raw string) (tele.Recipient, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "@") && len(raw) > 1 {
		return username(raw), nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidChat, raw)
	}
	return tele.ChatID(id), nil
}

// Channel is a survey.Deliverer bound to one destination chat.
type Channel struct {
	bot Sender
	to  tele.Recipient
}

var _ survey.Deliverer = (*Channel)(nil)

// NewChannel binds bot to the chat described by chatID.
func NewChannel(bot Sender, chatID string) (*Channel, error) {
	if bot == nil {
		return nil, errors.New("delivery: nil sender")
	}
	to, err := ParseRecipient(chatID)
	if err != nil {
		return nil, err
	}
	return &Channel{bot: bot, to: to}, nil
}

// Destination returns the recipient string reports are posted to.
func (c *Channel) Destination() string { return c.to.Recipient() }

// SendText posts plain text.
func (c *Channel) SendText(ctx context.Context, text string) error {
	return c.send(ctx, "text", func() error {
		_, err := c.bot.Send(c.to, text)
		return err
	})
}

// SendImageWithCaption posts an already uploaded Telegram photo with text as its caption.
func (c *Channel) SendImageWithCaption(ctx context.Context, image survey.ImageRef, caption string) error {
	if image == "" {
		return errors.New("delivery: empty image reference")
	}
	photo := &tele.Photo{File: tele.File{FileID: string(image)}, Caption: caption}
	return c.send(ctx, "photo", func() error {
		_, err := c.bot.Send(c.to, photo)
		return err
	})
}

func (c *Channel) send(ctx context.Context, kind string, call func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := call()
	attrs := []slog.Attr{
		slog.String("kind", kind),
		slog.String("chat", c.Destination()),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		logger.Error(ctx, logger.CompDelivery, "delivery.send",
			append(attrs,
				slog.String("status", "fail"),
				slog.String("err", sender.SanitizeError(err)),
				slog.String("error_kind", sender.ClassifyError(err)),
			)...,
		)
		return err
	}
	logger.Info(ctx, logger.CompDelivery, "delivery.send", append(attrs, slog.String("status", "ok"))...)
	return nil
}
