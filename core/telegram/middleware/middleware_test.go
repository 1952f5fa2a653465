package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

func textUpdate(id int, userID int64, text string) tele.Context {
	return tele.NewContext(nil, tele.Update{
		ID: id,
		Message: &tele.Message{
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
			Text:   text,
		},
	})
}

func TestUpdateKind(t *testing.T) {
	assert.Equal(t, "text", UpdateKind(textUpdate(1, 7, "hi")))

	photo := tele.NewContext(nil, tele.Update{Message: &tele.Message{
		Sender: &tele.User{ID: 7},
		Photo:  &tele.Photo{File: tele.File{FileID: "f"}},
	}})
	assert.Equal(t, "photo", UpdateKind(photo))

	voice := tele.NewContext(nil, tele.Update{Message: &tele.Message{
		Sender: &tele.User{ID: 7},
		Voice:  &tele.Voice{File: tele.File{FileID: "v"}},
	}})
	assert.Equal(t, "media", UpdateKind(voice))

	cb := tele.NewContext(nil, tele.Update{Callback: &tele.Callback{Sender: &tele.User{ID: 7}}})
	assert.Equal(t, "callback", UpdateKind(cb))
}

func TestRateLimitMiddleware(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	var limited int
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Now:       func() time.Time { return now },
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	var handled int
	h := mw(func(tele.Context) error { handled++; return nil })

	require.NoError(t, h(textUpdate(1, 7, "a")))
	require.NoError(t, h(textUpdate(2, 7, "b")))
	require.NoError(t, h(textUpdate(3, 8, "c")))
	now = now.Add(1500 * time.Millisecond)
	require.NoError(t, h(textUpdate(4, 7, "d")))

	assert.Equal(t, 3, handled)
	assert.Equal(t, 1, limited)
}

func TestRateLimitExclusions(t *testing.T) {
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{"message": {}},
	})
	var handled int
	h := mw(func(tele.Context) error { handled++; return nil })
	for i := 0; i < 3; i++ {
		require.NoError(t, h(textUpdate(i, 7, "x")))
	}
	assert.Equal(t, 3, handled)
}

func TestAdminOnlyMiddleware(t *testing.T) {
	var rejected, passed int
	mw := AdminOnlyMiddleware(AdminOptions{
		AdminID:  42,
		OnReject: func(tele.Context) error { rejected++; return nil },
	})
	h := mw(func(tele.Context) error { passed++; return nil })

	require.NoError(t, h(textUpdate(1, 42, "/active")))
	require.NoError(t, h(textUpdate(2, 7, "/active")))
	assert.Equal(t, 1, passed)
	assert.Equal(t, 1, rejected)

	closed := AdminOnlyMiddleware(AdminOptions{})(func(tele.Context) error { passed++; return nil })
	require.NoError(t, closed(textUpdate(3, 42, "/active")))
	assert.Equal(t, 1, passed)
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(textUpdate(1, 7, "x"))
	assert.ErrorContains(t, err, "boom")

	want := errors.New("plain")
	h = RecoverMiddleware(func(tele.Context) error { return want })
	assert.ErrorIs(t, h(textUpdate(1, 7, "x")), want)
}

func TestLoggerMiddlewareSetsRID(t *testing.T) {
	c := textUpdate(5, 7, "hello")
	var rid string
	h := LoggerMiddleware(func(c tele.Context) error {
		rid, _ = c.Get("rid").(string)
		return nil
	})
	require.NoError(t, h(c))
	assert.Equal(t, "5:7:7", rid)
}

type sendRecorder struct {
	tele.Context
	sent []interface{}
}

func (s *sendRecorder) Send(what interface{}, _ ...interface{}) error {
	s.sent = append(s.sent, what)
	return nil
}

func TestMessageCounterMiddleware(t *testing.T) {
	rec := &sendRecorder{Context: textUpdate(1, 7, "x")}
	h := MessageCounterMiddleware(func(c tele.Context) error {
		if err := c.Send("one"); err != nil {
			return err
		}
		return c.Send("two", &tele.ReplyMarkup{RemoveKeyboard: true})
	})
	require.NoError(t, h(rec))

	msgs, kb := GetCounters(rec)
	assert.Equal(t, 2, msgs)
	assert.True(t, kb)
	assert.Len(t, rec.sent, 2)
}
