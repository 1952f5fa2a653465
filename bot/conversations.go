// Package bot runs report conversations on top of the Telegram runtime.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/reportbot/archive"
	"github.com/m3rciful/reportbot/core/logger"
	"github.com/m3rciful/reportbot/core/telegram/sender"
	"github.com/m3rciful/reportbot/core/telegram/state"
	"github.com/m3rciful/reportbot/survey"
)

// Replier sends a prompt back to the user who produced the event.
type Replier interface {
	Reply(ctx context.Context, r survey.Reply) error
}

// Archive keeps finalized reports.
type Archive interface {
	Record(ctx context.Context, r archive.Report) error
}

// Recorder receives conversation metrics.
type Recorder interface {
	SessionStarted()
	SessionCancelled()
	InputRejected(stage string)
	ReportFinished(kind string, err error, took time.Duration)
	ActiveSessions(n int)
}

// Options wires a Conversations instance. Deliverer is required.
type Options struct {
	Machine   *survey.Machine
	Deliverer survey.Deliverer
	Archive   Archive
	Metrics   Recorder

	Now   func() time.Time
	NewID func() uuid.UUID
}

// Conversations owns every user's session and finalizes completed ones.
type Conversations struct {
	store   *state.Store[survey.Session]
	machine *survey.Machine
	deliver survey.Deliverer
	archive Archive
	metrics Recorder
	now     func() time.Time
	newID   func() uuid.UUID
}

// New builds Conversations from opts.
func New(opts Options) (*Conversations, error) {
	if opts.Deliverer == nil {
		return nil, errors.New("bot: deliverer is required")
	}
	c := &Conversations{
		store:   state.NewStore[survey.Session](),
		machine: opts.Machine,
		deliver: opts.Deliverer,
		archive: opts.Archive,
		metrics: opts.Metrics,
		now:     opts.Now,
		newID:   opts.NewID,
	}
	if c.machine == nil {
		c.machine = survey.NewMachine(nil)
	}
	if c.metrics == nil {
		c.metrics = nopRecorder{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.New
	}
	return c, nil
}

// InProgress reports whether userID is in the middle of a report.
func (c *Conversations) InProgress(userID int64) bool { return c.store.InProgress(userID) }

// Active returns the number of conversations in progress.
func (c *Conversations) Active() int { return c.store.Len() }

// Handle feeds ev into the sender's session and answers through out.
// Events of one user are applied one at a time, delivery included.
func (c *Conversations) Handle(ctx context.Context, ev survey.Event, out Replier) error {
	slot := c.store.Acquire(ev.Sender)
	defer slot.Release()

	cur, _ := slot.Get()
	t := c.machine.Step(cur, ev)
	c.observe(ctx, ev, t)

	reply := t.Reply
	switch {
	case t.Outcome == survey.OutcomeCompleted:
		reply = c.finalize(ctx, ev.Sender, t.Session)
		slot.Delete()
	case t.Session.Stage == 0 || t.Session.Stage.Terminal():
		slot.Delete()
	default:
		slot.Set(t.Session)
	}
	c.metrics.ActiveSessions(c.store.Len())

	if reply.Empty() || out == nil {
		return nil
	}
	return out.Reply(ctx, reply)
}

func (c *Conversations) observe(ctx context.Context, ev survey.Event, t survey.Transition) {
	status := "ok"
	switch t.Outcome {
	case survey.OutcomeStarted:
		c.metrics.SessionStarted()
	case survey.OutcomeCancelled:
		c.metrics.SessionCancelled()
		status = "cancelled"
	case survey.OutcomeRejected:
		c.metrics.InputRejected(t.From.String())
		status = "rejected"
	case survey.OutcomeIgnored:
		status = "skip"
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("kind", ev.Kind.String()),
		slog.String("transition", t.Outcome.String()),
		slog.String("stage", t.To.String()),
	}
	if t.From != 0 {
		attrs = append(attrs, slog.String("stage_from", t.From.String()))
	}
	if t.Err != nil {
		attrs = append(attrs, slog.String("err", t.Err.Error()))
	}
	logger.Debug(ctx, logger.CompSurvey, "survey.step", attrs...)
}

// finalize delivers the report once, archives the attempt and returns the closing message.
func (c *Conversations) finalize(ctx context.Context, userID int64, s survey.Session) survey.Reply {
	id := c.newID()
	msg := survey.Compose(s)
	kind := "text"
	if msg.HasImage() {
		kind = "photo"
	}

	start := c.now()
	err := survey.Deliver(ctx, c.deliver, msg)
	took := c.now().Sub(start)
	c.metrics.ReportFinished(kind, err, took)

	outcome := archive.OutcomeSent
	reply := survey.Reply{Text: survey.MsgDelivered}
	attrs := []slog.Attr{
		slog.String("report_id", id.String()),
		slog.String("location", s.Location),
		slog.String("kind", kind),
		slog.Duration("duration", took),
	}
	if err != nil {
		outcome = archive.OutcomeFailed
		reply = survey.Reply{Text: survey.DeliveryFailedText(errors.New(sender.SanitizeError(err)))}
		logger.Error(ctx, logger.CompSurvey, "report.finalized", append(attrs,
			slog.String("status", "fail"),
			slog.String("outcome", outcome),
			slog.String("err", sender.SanitizeError(err)),
			slog.String("error_kind", sender.ClassifyError(err)),
		)...)
	} else {
		logger.Info(ctx, logger.CompSurvey, "report.finalized", append(attrs,
			slog.String("status", "ok"),
			slog.String("outcome", outcome),
		)...)
	}

	if c.archive != nil {
		rec := archive.Report{ID: id, UserID: userID, Session: s, Outcome: outcome, Err: err, CreatedAt: c.now().UTC()}
		if aerr := c.archive.Record(context.WithoutCancel(ctx), rec); aerr != nil {
			logger.Warn(ctx, logger.CompArchive, "archive.skip",
				slog.String("status", "fail"),
				slog.String("report_id", id.String()),
				slog.String("err", aerr.Error()),
			)
		}
	}
	return reply
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted() {}
func (nopRecorder) SessionCancelled() {}
func (nopRecorder) InputRejected(string) {}
func (nopRecorder) ReportFinished(string, error, time.Duration) {}
func (nopRecorder) ActiveSessions(int) {}
