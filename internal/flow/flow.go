// Package flow turns inbound chat events into session transitions. The
// Dispatcher serializes turns per chat through the session store and hands
// each event to the active workflow, the task shorthand or the command table.
package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/sprintbot/core/logger"
	"github.com/m3rciful/sprintbot/core/telegram/keyboard"
	"github.com/m3rciful/sprintbot/internal/domain"
	"github.com/m3rciful/sprintbot/internal/session"
)

// Transport delivers replies to a chat.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb *keyboard.Layout) (int, error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb *keyboard.Layout) error
	RemoveKeyboard(ctx context.Context, chatID int64, text string) error
}

// Animator is implemented by transports that can cycle a placeholder on an
// existing message while a slow view is being built.
type Animator interface {
	Animate(ctx context.Context, chatID int64, messageID int, frames []string, every time.Duration) (stop func())
}

// Dispatcher routes events to workflow handlers.
type Dispatcher struct {
	sessions *session.Store
	svc      domain.Facade
	out      Transport
	now      func() time.Time
	loc      *time.Location
	commands map[string]action
}

type action func(ctx context.Context, st *session.State) error

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides the time source used for sprint dates and task stamps.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLocation sets the timezone used to interpret typed and picked dates.
func WithLocation(loc *time.Location) Option {
	return func(d *Dispatcher) {
		if loc != nil {
			d.loc = loc
		}
	}
}

// New builds a dispatcher over the given collaborators.
func New(sessions *session.Store, svc domain.Facade, out Transport, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sessions: sessions,
		svc:      svc,
		out:      out,
		now:      time.Now,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.commands = d.commandTable()
	return d
}

// Sessions returns the store the dispatcher serializes turns through.
func (d *Dispatcher) Sessions() *session.Store {
	return d.sessions
}

func (d *Dispatcher) today() time.Time {
	return domain.StartOfDay(d.now().In(d.loc))
}

func (d *Dispatcher) send(ctx context.Context, st *session.State, text string, kb *keyboard.Layout) error {
	_, err := d.out.SendMessage(ctx, st.ChatID, text, kb)
	return err
}

// render updates the tracked message in place, falling back to a new message
// when there is nothing to edit or the edit fails.
func (d *Dispatcher) render(ctx context.Context, st *session.State, text string, kb *keyboard.Layout) error {
	if st.LastRenderedMessageID != 0 {
		err := d.out.EditMessage(ctx, st.ChatID, st.LastRenderedMessageID, text, kb)
		if err == nil {
			return nil
		}
		logger.Warn(ctx, logger.CompFlow, "render.edit_failed",
			slog.Int64("chat_id", st.ChatID),
			slog.String("err", err.Error()),
		)
	}
	id, err := d.out.SendMessage(ctx, st.ChatID, text, kb)
	if err != nil {
		return err
	}
	st.LastRenderedMessageID = id
	return nil
}

var loadingFrames = []string{"⏳ Loading", "⏳ Loading.", "⏳ Loading..", "⏳ Loading..."}

const loadingEvery = 400 * time.Millisecond

// loading animates the tracked message until the returned stop is called.
// Transports without animation support get a no-op.
func (d *Dispatcher) loading(ctx context.Context, st *session.State) (stop func()) {
	a, ok := d.out.(Animator)
	if !ok || st.LastRenderedMessageID == 0 {
		return func() {}
	}
	return a.Animate(ctx, st.ChatID, st.LastRenderedMessageID, loadingFrames, loadingEvery)
}

func (d *Dispatcher) enter(ctx context.Context, st *session.State, w session.Workflow) {
	prev := st.Active()
	st.Enter(w)
	logger.Info(ctx, logger.CompFlow, "workflow.enter",
		slog.Int64("chat_id", st.ChatID),
		slog.String("from", prev.String()),
		slog.String("workflow", w.Kind().String()),
		slog.String("stage", w.StageName()),
	)
}

// cancelWorkflow ends the running workflow without side effects.
func (d *Dispatcher) cancelWorkflow(ctx context.Context, st *session.State, text string) error {
	logger.Info(ctx, logger.CompFlow, "workflow.cancel",
		slog.Int64("chat_id", st.ChatID),
		slog.String("workflow", st.Active().String()),
		slog.String("stage", st.Stage()),
	)
	st.ClearWorkflow()
	return d.send(ctx, st, text, mainMenu(st))
}

// domainFailure resets the workflow after a failed service call so the
// session is not stranded in a stage whose preconditions no longer hold.
func (d *Dispatcher) domainFailure(ctx context.Context, st *session.State, op string, err error) error {
	logger.Error(ctx, logger.CompFlow, "facade.fail",
		slog.Int64("chat_id", st.ChatID),
		slog.String("op", op),
		slog.String("workflow", st.Active().String()),
		slog.String("stage", st.Stage()),
		slog.String("err", err.Error()),
	)
	st.ClearWorkflow()
	return d.send(ctx, st, msgFailure, mainMenu(st))
}
