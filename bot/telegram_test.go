package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/reportbot/core/telegram"
	"github.com/m3rciful/reportbot/survey"
)

func update(msg *tele.Message) tele.Context {
	msg.Sender = &tele.User{ID: 42}
	msg.Chat = &tele.Chat{ID: 42}
	return tele.NewContext(nil, tele.Update{ID: 1, Message: msg})
}

func TestEventFrom(t *testing.T) {
	tests := []struct {
		name string
		msg  *tele.Message
		want survey.Event
	}{
		{
			name: "text",
			msg:  &tele.Message{Text: "Иванов"},
			want: survey.TextEvent(42, "Иванов"),
		},
		{
			name: "command text",
			msg:  &tele.Message{Text: "/cancel@report_bot"},
			want: survey.CommandEvent(42, "cancel"),
		},
		{
			name: "photo",
			msg:  &tele.Message{Photo: &tele.Photo{File: tele.File{FileID: "AgAD"}}, Caption: "кран"},
			want: survey.ImageEvent(42, "AgAD", "кран"),
		},
		{
			name: "document",
			msg:  &tele.Message{Document: &tele.Document{File: tele.File{FileID: "BQAD"}}},
			want: survey.OtherEvent(42),
		},
		{
			name: "location",
			msg:  &tele.Message{Location: &tele.Location{Lat: 55.75, Lng: 37.61}},
			want: survey.OtherEvent(42),
		},
		{
			name: "contact",
			msg:  &tele.Message{Contact: &tele.Contact{PhoneNumber: "+70000000000"}},
			want: survey.OtherEvent(42),
		},
		{
			name: "video",
			msg:  &tele.Message{Video: &tele.Video{File: tele.File{FileID: "BAAD"}}},
			want: survey.OtherEvent(42),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EventFrom(update(tt.msg)))
		})
	}
}

func TestEventFromWithoutMessage(t *testing.T) {
	c := tele.NewContext(nil, tele.Update{ID: 1})
	assert.Equal(t, survey.OtherEvent(0), EventFrom(c))
}

func TestRegister(t *testing.T) {
	conv, err := New(Options{Deliverer: &fakeDeliverer{}})
	require.NoError(t, err)

	reg := tg.NewRegistry()
	conv.Register(reg)

	assert.Equal(t, []tele.Command{
		{Text: "cancel", Description: "Отменить отчет"},
		{Text: "start", Description: "Начать отчет"},
	}, reg.ListCommands(true))
	assert.Len(t, reg.ListCommands(false), 3)

	_, active, ok := reg.LookupCommand("active")
	require.True(t, ok)
	assert.True(t, active.AdminOnly)
	assert.NotNil(t, reg.TextFallback())
}

func TestNonImageContentAtPhotoStage(t *testing.T) {
	h := newHarness(t)
	ev := func(msg *tele.Message) survey.Event {
		msg.Sender = &tele.User{ID: user}
		return EventFrom(tele.NewContext(nil, tele.Update{Message: msg}))
	}
	h.send(t, scenarioPrefix()...)
	h.send(t, text("Да"))

	h.send(t, ev(&tele.Message{Location: &tele.Location{Lat: 55.75, Lng: 37.61}}))
	assert.Equal(t, survey.MsgInvalidPhoto, h.out.last().Text)
	h.send(t, ev(&tele.Message{Contact: &tele.Contact{PhoneNumber: "+70000000000"}}))
	assert.Equal(t, survey.MsgInvalidPhoto, h.out.last().Text)

	assert.True(t, h.conv.InProgress(user))
	assert.Empty(t, h.deliver.photos)
}
