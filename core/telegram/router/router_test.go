package router

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tg "github.com/m3rciful/reportbot/core/telegram"
	"github.com/m3rciful/reportbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

type fakeFSM struct {
	active  map[int64]bool
	handled []string
}

func (f *fakeFSM) InProgress(id int64) bool { return f.active[id] }

func (f *fakeFSM) ManagerHandler(c tele.Context) error {
	f.handled = append(f.handled, updateLabel(c))
	return nil
}

func updateLabel(c tele.Context) string {
	if m := c.Message(); m != nil && m.Photo != nil {
		return "photo:" + m.Photo.FileID
	}
	return c.Text()
}

func message(userID int64, text string) tele.Context {
	return tele.NewContext(nil, tele.Update{ID: 1, Message: &tele.Message{
		Sender: &tele.User{ID: userID},
		Chat:   &tele.Chat{ID: userID},
		Text:   text,
	}})
}

func routeFor(routes []tg.Route, endpoint any) tele.HandlerFunc {
	for _, r := range routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	return nil
}

func TestMessageRoutesPreferConversation(t *testing.T) {
	fsm := &fakeFSM{active: map[int64]bool{7: true}}
	reg := tg.NewRegistry()
	var fallback int
	reg.SetTextFallback(func(tele.Context) error { fallback++; return nil })

	routes := MessageRoutes(fsm, reg, MessageOptions{})
	text := routeFor(routes, tele.OnText)
	require.NotNil(t, text)

	require.NoError(t, text(message(7, "Иван")))
	require.NoError(t, text(message(8, "hello")))
	assert.Equal(t, []string{"Иван"}, fsm.handled)
	assert.Equal(t, 1, fallback)
}

func TestMessageRoutesMedia(t *testing.T) {
	fsm := &fakeFSM{active: map[int64]bool{7: true}}
	var unknown int
	routes := MessageRoutes(fsm, nil, MessageOptions{
		UnknownMedia: func(tele.Context) error { unknown++; return nil },
	})
	photo := routeFor(routes, tele.OnPhoto)
	require.NotNil(t, photo)
	require.NotNil(t, routeFor(routes, tele.OnMedia))
	require.NotNil(t, routeFor(routes, tele.OnDocument))

	ctx := func(userID int64) tele.Context {
		return tele.NewContext(nil, tele.Update{Message: &tele.Message{
			Sender: &tele.User{ID: userID},
			Photo:  &tele.Photo{File: tele.File{FileID: "AgAD"}},
		}})
	}
	require.NoError(t, photo(ctx(7)))
	require.NoError(t, photo(ctx(9)))
	assert.Equal(t, []string{"photo:AgAD"}, fsm.handled)
	assert.Equal(t, 1, unknown)
}

func TestMessageRoutesNonImageContent(t *testing.T) {
	fsm := &fakeFSM{active: map[int64]bool{7: true}}
	var unknown int
	routes := MessageRoutes(fsm, nil, MessageOptions{
		UnknownMedia: func(tele.Context) error { unknown++; return nil },
	})

	msgs := map[string]*tele.Message{
		tele.OnLocation: {Location: &tele.Location{Lat: 55.75, Lng: 37.61}},
		tele.OnContact:  {Contact: &tele.Contact{PhoneNumber: "+70000000000"}},
		tele.OnVenue:    {Venue: &tele.Venue{Title: "дом"}},
		tele.OnDice:     {Dice: &tele.Dice{Type: "🎲", Value: 3}},
		tele.OnPoll:     {Poll: &tele.Poll{Question: "?"}},
	}
	for ep, msg := range msgs {
		h := routeFor(routes, ep)
		require.NotNil(t, h, ep)
		msg.Sender = &tele.User{ID: 7}
		require.NoError(t, h(tele.NewContext(nil, tele.Update{Message: msg})))

		outside := *msg
		outside.Sender = &tele.User{ID: 9}
		require.NoError(t, h(tele.NewContext(nil, tele.Update{Message: &outside})))
	}
	assert.Len(t, fsm.handled, len(msgs))
	assert.Equal(t, len(msgs), unknown)
}

func TestMessageRoutesSlashFallback(t *testing.T) {
	reg := tg.NewRegistry()
	var started, admin int
	reg.RegisterCommand("/start", commands.Command{Description: "s", Handler: func(tele.Context) error { started++; return nil }})
	reg.RegisterCommand("/active", commands.Command{Description: "a", AdminOnly: true, Handler: func(tele.Context) error { admin++; return nil }})

	text := routeFor(MessageRoutes(nil, reg, MessageOptions{}), tele.OnText)
	require.NoError(t, text(message(7, "/start@report_bot now")))
	require.NoError(t, text(message(7, "start")))
	require.NoError(t, text(message(7, "/active")))
	assert.Equal(t, 1, started)
	assert.Zero(t, admin)
}

func TestCommandRoutesAdminAndAliases(t *testing.T) {
	reg := tg.NewRegistry()
	var active, cancel int
	reg.RegisterCommand("/active", commands.Command{Description: "a", AdminOnly: true, Hidden: true,
		Handler: func(tele.Context) error { active++; return nil }})
	reg.RegisterCommand("/cancel", commands.Command{Description: "c", Aliases: []string{"stop"},
		Handler: func(tele.Context) error { cancel++; return nil }})

	routes := CommandRoutes(reg, CommandRouteOptions{AdminID: 42})
	require.Len(t, routes, 3)

	require.NoError(t, routeFor(routes, "/active")(message(42, "/active")))
	require.NoError(t, routeFor(routes, "/active")(message(7, "/active")))
	require.NoError(t, routeFor(routes, "/stop")(message(7, "/stop")))
	assert.Equal(t, 1, active)
	assert.Equal(t, 1, cancel)
}

type codedErr struct{}

func (codedErr) Error() string { return "x" }
func (codedErr) Code() string  { return "delivery failed" }

type plainErr struct{}

func (*plainErr) Error() string { return "p" }

func TestDeriveErrorCode(t *testing.T) {
	assert.Equal(t, "DELIVERY_FAILED", deriveErrorCode(codedErr{}))
	assert.Equal(t, "PLAINERR", deriveErrorCode(&plainErr{}))
	assert.Equal(t, "", deriveErrorCode(nil))
	assert.Equal(t, "ERRORSTRING", deriveErrorCode(errors.New("anon")))
}
