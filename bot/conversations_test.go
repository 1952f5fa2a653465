package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/reportbot/archive"
	"github.com/m3rciful/reportbot/survey"
)

type photoCall struct {
	image   survey.ImageRef
	caption string
}

type fakeDeliverer struct {
	mu     sync.Mutex
	texts  []string
	photos []photoCall
	err    error
}

func (f *fakeDeliverer) SendText(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.err
}

func (f *fakeDeliverer) SendImageWithCaption(_ context.Context, image survey.ImageRef, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, photoCall{image: image, caption: caption})
	return f.err
}

type fakeReplier struct {
	mu      sync.Mutex
	replies []survey.Reply
}

func (f *fakeReplier) Reply(_ context.Context, r survey.Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, r)
	return nil
}

func (f *fakeReplier) last() survey.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return survey.Reply{}
	}
	return f.replies[len(f.replies)-1]
}

type fakeArchive struct {
	mu      sync.Mutex
	reports []archive.Report
	err     error
}

func (f *fakeArchive) Record(_ context.Context, r archive.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, r)
	return f.err
}

type countingRecorder struct {
	mu                 sync.Mutex
	started, cancelled int
	rejected           []string
	finished           []string
	active             int
}

func (r *countingRecorder) SessionStarted() {
	r.mu.Lock()
	r.started++
	r.mu.Unlock()
}

func (r *countingRecorder) SessionCancelled() {
	r.mu.Lock()
	r.cancelled++
	r.mu.Unlock()
}

func (r *countingRecorder) InputRejected(stage string) {
	r.mu.Lock()
	r.rejected = append(r.rejected, stage)
	r.mu.Unlock()
}

func (r *countingRecorder) ReportFinished(kind string, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		kind += ":failed"
	}
	r.finished = append(r.finished, kind)
}

func (r *countingRecorder) ActiveSessions(n int) {
	r.mu.Lock()
	r.active = n
	r.mu.Unlock()
}

type harness struct {
	conv    *Conversations
	deliver *fakeDeliverer
	archive *fakeArchive
	metrics *countingRecorder
	out     *fakeReplier
}

var fixedID = uuid.MustParse("6f1c1c52-2a8e-4a57-9d2f-0a1b2c3d4e5f")

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		deliver: &fakeDeliverer{},
		archive: &fakeArchive{},
		metrics: &countingRecorder{},
		out:     &fakeReplier{},
	}
	conv, err := New(Options{
		Deliverer: h.deliver,
		Archive:   h.archive,
		Metrics:   h.metrics,
		NewID:     func() uuid.UUID { return fixedID },
	})
	require.NoError(t, err)
	h.conv = conv
	return h
}

func (h *harness) send(t *testing.T, evs ...survey.Event) {
	t.Helper()
	for _, ev := range evs {
		require.NoError(t, h.conv.Handle(context.Background(), ev, h.out))
	}
}

const user = int64(1001)

func text(s string) survey.Event { return survey.TextEvent(user, s) }

func scenarioPrefix() []survey.Event {
	return []survey.Event{
		survey.CommandEvent(user, survey.CommandStart),
		text("Иванов"),
		text("9к3-27"),
		text("Да"), text("Нет"), text("Да"),
	}
}

func TestScenarioTextReport(t *testing.T) {
	h := newHarness(t)
	h.send(t, scenarioPrefix()...)
	assert.True(t, h.conv.InProgress(user))
	h.send(t, text("Нет"))

	require.Len(t, h.deliver.texts, 1)
	assert.Empty(t, h.deliver.photos)
	body := h.deliver.texts[0]
	assert.Contains(t, body, "Имя: Иванов")
	assert.Contains(t, body, "Квартира: 9к3-27")
	assert.Contains(t, body, "Протерли пыль на подоконниках? - Да\nПропарили белье? - Нет\nПоменяли водичку в ершиках? - Да\n")
	assert.Contains(t, body, "Поломки: Нет")

	assert.Equal(t, survey.MsgDelivered, h.out.last().Text)
	assert.False(t, h.conv.InProgress(user))
	assert.Zero(t, h.conv.Active())

	require.Len(t, h.archive.reports, 1)
	assert.Equal(t, fixedID, h.archive.reports[0].ID)
	assert.Equal(t, archive.OutcomeSent, h.archive.reports[0].Outcome)
	assert.Equal(t, 1, h.metrics.started)
	assert.Equal(t, []string{"text"}, h.metrics.finished)
}

func TestScenarioPhotoReport(t *testing.T) {
	h := newHarness(t)
	h.send(t, scenarioPrefix()...)
	h.send(t, text("Да"))
	assert.Equal(t, survey.MsgSendPhoto, h.out.last().Text)

	h.send(t, text("вот фото"))
	assert.Equal(t, survey.MsgInvalidPhoto, h.out.last().Text)
	h.send(t, survey.ImageEvent(user, "AgACAgIAAxkBAAIB", ""))
	assert.Equal(t, survey.MsgDescribeDamage, h.out.last().Text)
	h.send(t, text("разбито стекло"))

	assert.Empty(t, h.deliver.texts)
	require.Len(t, h.deliver.photos, 1)
	assert.Equal(t, survey.ImageRef("AgACAgIAAxkBAAIB"), h.deliver.photos[0].image)
	assert.Contains(t, h.deliver.photos[0].caption, "Описание: разбито стекло")
	assert.Equal(t, survey.MsgDelivered, h.out.last().Text)
	assert.Equal(t, []string{"awaiting_damage_photo"}, h.metrics.rejected)
	assert.Equal(t, []string{"photo"}, h.metrics.finished)
}

func TestCancelNeverDelivers(t *testing.T) {
	h := newHarness(t)
	h.send(t, scenarioPrefix()[:3]...)
	h.send(t, survey.CommandEvent(user, survey.CommandCancel))

	assert.Equal(t, survey.MsgCancelled, h.out.last().Text)
	assert.False(t, h.conv.InProgress(user))
	assert.Empty(t, h.deliver.texts)
	assert.Empty(t, h.archive.reports)
	assert.Equal(t, 1, h.metrics.cancelled)

	h.send(t, survey.CommandEvent(user, survey.CommandCancel))
	assert.Equal(t, survey.MsgNothingToCancel, h.out.last().Text)
	assert.Equal(t, 1, h.metrics.cancelled)
}

func TestDeliveryFailureDiscardsSession(t *testing.T) {
	h := newHarness(t)
	h.deliver.err = errors.New("Bad Request: chat not found")
	h.send(t, scenarioPrefix()...)
	h.send(t, text("Нет"))

	require.Len(t, h.deliver.texts, 1, "single attempt")
	assert.Equal(t, "Ошибка при отправке отчета: Bad Request: chat not found. Попробуйте позже.", h.out.last().Text)
	assert.False(t, h.conv.InProgress(user))
	require.Len(t, h.archive.reports, 1)
	assert.Equal(t, archive.OutcomeFailed, h.archive.reports[0].Outcome)
	assert.Equal(t, []string{"text:failed"}, h.metrics.finished)

	h.send(t, text("Нет"))
	assert.Equal(t, survey.MsgStartHint, h.out.last().Text)
	assert.Len(t, h.deliver.texts, 1)
}

func TestArchiveFailureDoesNotChangeReply(t *testing.T) {
	h := newHarness(t)
	h.archive.err = errors.New("db down")
	h.send(t, scenarioPrefix()...)
	h.send(t, text("Нет"))
	assert.Equal(t, survey.MsgDelivered, h.out.last().Text)
}

func TestRestartDropsProgress(t *testing.T) {
	h := newHarness(t)
	h.send(t, scenarioPrefix()[:4]...)
	h.send(t, survey.CommandEvent(user, survey.CommandStart))
	assert.Equal(t, survey.MsgGreeting, h.out.last().Text)
	assert.Equal(t, 2, h.metrics.started)
	assert.Equal(t, 1, h.conv.Active())
	assert.Equal(t, 1, h.metrics.active)
}

func TestUsersAreIsolated(t *testing.T) {
	h := newHarness(t)
	other := int64(2002)
	h.send(t, scenarioPrefix()[:2]...)
	h.send(t, survey.CommandEvent(other, survey.CommandStart))
	assert.Equal(t, 2, h.conv.Active())

	h.send(t, survey.CommandEvent(other, survey.CommandCancel))
	assert.True(t, h.conv.InProgress(user))
	assert.False(t, h.conv.InProgress(other))
}

func TestConcurrentUsersComplete(t *testing.T) {
	h := newHarness(t)
	const users = 20
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		id := int64(5000 + i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			evs := []survey.Event{
				survey.CommandEvent(id, survey.CommandStart),
				survey.TextEvent(id, "Петров"),
				survey.TextEvent(id, "9к3-28"),
				survey.TextEvent(id, "Да"), survey.TextEvent(id, "Да"), survey.TextEvent(id, "Да"),
				survey.TextEvent(id, "Нет"),
			}
			for _, ev := range evs {
				_ = h.conv.Handle(context.Background(), ev, nil)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, h.deliver.texts, users)
	assert.Zero(t, h.conv.Active())
}

func TestNewRequiresDeliverer(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
