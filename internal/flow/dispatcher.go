package flow

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/m3rciful/sprintbot/core/logger"
	"github.com/m3rciful/sprintbot/core/telegram/callbacks"
	"github.com/m3rciful/sprintbot/internal/session"
)

// EventKind tells text and button events apart.
type EventKind int

const (
	EventText EventKind = iota
	EventButton
)

// Event is one inbound chat update.
type Event struct {
	Kind   EventKind
	ChatID int64
	Text   string
	// Payload and MessageID are set for button events.
	Payload   string
	MessageID int
}

// Handle runs one turn for the event's chat. Handler errors and panics are
// logged and answered with a generic failure; the session keeps whatever the
// handler had set.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) error {
	return d.sessions.Turn(ev.ChatID, func(st *session.State) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(ctx, logger.CompFlow, "handler.panic",
					slog.Int64("chat_id", ev.ChatID),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				err = d.reportFailure(ctx, st)
			}
		}()

		var herr error
		if ev.Kind == EventButton {
			herr = d.handleButton(ctx, st, ev.Payload, ev.MessageID)
		} else {
			herr = d.handleText(ctx, st, ev.Text)
		}
		if herr != nil {
			logger.Error(ctx, logger.CompFlow, "handler.fail",
				slog.Int64("chat_id", ev.ChatID),
				slog.String("workflow", st.Active().String()),
				slog.String("stage", st.Stage()),
				slog.String("err", herr.Error()),
			)
			return d.reportFailure(ctx, st)
		}
		return nil
	})
}

// HandleText handles a typed message.
func (d *Dispatcher) HandleText(ctx context.Context, chatID int64, text string) error {
	return d.Handle(ctx, Event{Kind: EventText, ChatID: chatID, Text: text})
}

// HandleButton handles an inline button press on messageID.
func (d *Dispatcher) HandleButton(ctx context.Context, chatID int64, payload string, messageID int) error {
	return d.Handle(ctx, Event{Kind: EventButton, ChatID: chatID, Payload: payload, MessageID: messageID})
}

func (d *Dispatcher) reportFailure(ctx context.Context, st *session.State) error {
	if _, err := d.out.SendMessage(ctx, st.ChatID, msgFailure, mainMenu(st)); err != nil {
		return fmt.Errorf("report failure: %w", err)
	}
	return nil
}

func (d *Dispatcher) handleButton(ctx context.Context, st *session.State, raw string, messageID int) error {
	if !st.Authenticated {
		logger.Info(ctx, logger.CompFlow, "button.discard",
			slog.Int64("chat_id", st.ChatID),
			slog.String("payload", raw),
		)
		return nil
	}
	p, err := callbacks.Parse(raw)
	if err != nil {
		return d.unsupported(ctx, st, raw)
	}
	logger.Debug(ctx, logger.CompFlow, "button",
		slog.Int64("chat_id", st.ChatID),
		slog.String("ns", p.Namespace),
		slog.String("action", p.Action),
	)
	switch p.Namespace {
	case "sprint":
		return d.sprintButton(ctx, st, p, messageID)
	case "main":
		return d.mainButton(ctx, st, p)
	case "date":
		return d.dateButton(ctx, st, p, messageID)
	case "task":
		return d.taskButton(ctx, st, p, messageID)
	}
	return d.unsupported(ctx, st, raw)
}

func (d *Dispatcher) unsupported(ctx context.Context, st *session.State, raw string) error {
	logger.Warn(ctx, logger.CompFlow, "button.unsupported",
		slog.Int64("chat_id", st.ChatID),
		slog.String("payload", raw),
	)
	return d.send(ctx, st, msgUnsupported, nil)
}

func (d *Dispatcher) mainButton(ctx context.Context, st *session.State, p callbacks.Payload) error {
	switch p.Action {
	case "menu":
		return d.showMainMenu(ctx, st)
	case "sprint":
		return d.enterSprintMode(ctx, st)
	case "tasks":
		return d.showMyTasks(ctx, st)
	case "newtask":
		return d.startTaskCreation(ctx, st)
	}
	return d.unsupported(ctx, st, p.Raw)
}

func (d *Dispatcher) handleText(ctx context.Context, st *session.State, text string) error {
	text = strings.TrimSpace(text)
	if !st.Authenticated {
		if commandKey(text) == "/start" {
			return d.greet(ctx, st)
		}
		return d.attempt(ctx, st, text)
	}

	switch w := st.Workflow.(type) {
	case *session.SprintMode:
		return d.sprintModeInput(ctx, st, text)
	case *session.TaskCreation:
		return d.taskCreationInput(ctx, st, w, text)
	case *session.TaskCompletion:
		return d.taskCompletionInput(ctx, st, w, text)
	case *session.AssignToSprint:
		return d.assignInput(ctx, st, w, text)
	case *session.SprintCreation:
		return d.sprintCreationInput(ctx, st, w, text)
	case *session.EndSprint:
		return d.endSprintInput(ctx, st, w, text)
	case *session.StartTaskWork, *session.ViewingTask:
		st.ClearWorkflow()
	}

	if act, id, ok := ParseShorthand(text); ok {
		return d.statusUpdate(ctx, st, act, id)
	}
	if run, ok := d.commands[commandKey(text)]; ok {
		return run(ctx, st)
	}
	logger.Debug(ctx, logger.CompFlow, "text.unrecognized", slog.Int64("chat_id", st.ChatID))
	return d.send(ctx, st, msgUnrecognized, mainMenu(st))
}

// StatusAction is a direct task mutation.
type StatusAction string

const (
	ActionDone   StatusAction = "DONE"
	ActionUndo   StatusAction = "UNDO"
	ActionDelete StatusAction = "DELETE"
)

var shorthandRe = regexp.MustCompile(`(?i)^\s*(\d+)-(DONE|UNDO|DELETE)\s*$`)

// ParseShorthand recognises "<taskId>-<DONE|UNDO|DELETE>".
func ParseShorthand(text string) (StatusAction, int64, bool) {
	m := shorthandRe.FindStringSubmatch(text)
	if m == nil {
		return "", 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return StatusAction(strings.ToUpper(m[2])), id, true
}

// commandKey normalises text for the command table: lower case, and for
// slash commands the bot mention and arguments are dropped.
func commandKey(text string) string {
	key := strings.ToLower(strings.TrimSpace(text))
	if !strings.HasPrefix(key, "/") {
		return key
	}
	if i := strings.IndexAny(key, " \t\n"); i >= 0 {
		key = key[:i]
	}
	if i := strings.IndexByte(key, '@'); i >= 0 {
		key = key[:i]
	}
	return key
}

func (d *Dispatcher) commandTable() map[string]action {
	table := make(map[string]action)
	add := func(run action, keys ...string) {
		for _, k := range keys {
			table[strings.ToLower(k)] = run
		}
	}
	add(d.showMainMenu, "/start", "/menu")
	add(d.showHelp, labelHelp, "/help")
	add(d.showMyTasks, labelMyTasks, "/tasks")
	add(d.startTaskCreation, labelNewTask, "/newtask")
	add(d.startTaskCompletion, labelCompleteTask, "/complete")
	add(d.enterSprintMode, labelSprintBoard, "/sprint")
	add(d.startSprintCreation, labelNewSprint, "/newsprint")
	add(d.startEndSprint, labelEndSprint, "/endsprint")
	add(d.startAssign, labelAssign, "/assign")
	add(d.logout, labelLogout, "/logout")
	add(d.nothingToCancel, labelCancel, "/cancel")
	return table
}

func (d *Dispatcher) showMainMenu(ctx context.Context, st *session.State) error {
	return d.send(ctx, st, msgMainMenu, mainMenu(st))
}

func (d *Dispatcher) showHelp(ctx context.Context, st *session.State) error {
	return d.send(ctx, st, msgHelp, mainMenu(st))
}

func (d *Dispatcher) nothingToCancel(ctx context.Context, st *session.State) error {
	return d.send(ctx, st, msgNothingCancel, mainMenu(st))
}
