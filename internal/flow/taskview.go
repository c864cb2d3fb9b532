package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/sprintbot/core/logger"
	"github.com/m3rciful/sprintbot/core/telegram/callbacks"
	"github.com/m3rciful/sprintbot/core/telegram/format"
	"github.com/m3rciful/sprintbot/core/telegram/keyboard"
	"github.com/m3rciful/sprintbot/internal/domain"
	"github.com/m3rciful/sprintbot/internal/session"
)

func (d *Dispatcher) taskButton(ctx context.Context, st *session.State, p callbacks.Payload, messageID int) error {
	if p.Action == "back" {
		return d.taskBack(ctx, st, messageID)
	}
	id, err := p.Int64(0)
	if err != nil {
		return d.unsupported(ctx, st, p.Raw)
	}
	switch p.Action {
	case "done", "undo", "delete":
		return d.statusUpdate(ctx, st, StatusAction(strings.ToUpper(p.Action)), id)
	case "view":
		return d.viewTask(ctx, st, id, messageID)
	case "start":
		return d.confirmStartWork(ctx, st, id, messageID)
	case "begin":
		return d.beginWork(ctx, st, id, messageID)
	case "assign":
		return d.assignTaskButton(ctx, st, id)
	}
	return d.unsupported(ctx, st, p.Raw)
}

func (d *Dispatcher) viewTask(ctx context.Context, st *session.State, id int64, messageID int) error {
	t, err := d.svc.TaskByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return d.send(ctx, st, fmt.Sprintf(msgTaskNotFound, id), nil)
	}
	if err != nil {
		return d.domainFailure(ctx, st, "task_by_id", err)
	}
	d.enter(ctx, st, &session.ViewingTask{TaskID: t.ID})
	st.LastRenderedMessageID = messageID
	return d.render(ctx, st, taskCard(t), taskCardKeyboard(t))
}

func (d *Dispatcher) confirmStartWork(ctx context.Context, st *session.State, id int64, messageID int) error {
	t, ok, err := d.mutableTask(ctx, st, id)
	if err != nil || !ok {
		return err
	}
	d.enter(ctx, st, &session.StartTaskWork{TaskID: t.ID})
	st.LastRenderedMessageID = messageID
	return d.render(ctx, st, fmt.Sprintf(msgStartConfirm, t.ID, format.MD(t.Title)), keyboard.Inline(
		[]keyboard.InlineBtn{
			keyboard.Button("▶️ Start", callbacks.Build("task", "begin", t.ID)),
			keyboard.Button("⬅️ Back", callbacks.Build("task", "back")),
		},
	))
}

// beginWork moves the task to in progress; only valid right after the
// confirmation prompt for the same task.
func (d *Dispatcher) beginWork(ctx context.Context, st *session.State, id int64, messageID int) error {
	w, ok := st.Workflow.(*session.StartTaskWork)
	if !ok || w.TaskID != id {
		return d.replace(ctx, st, messageID, msgStartExpired, nil)
	}
	t, ok, err := d.mutableTask(ctx, st, id)
	if err != nil || !ok {
		return err
	}
	t.Status = domain.StatusInProgress
	if _, err := d.svc.UpdateTask(ctx, t); err != nil {
		return d.domainFailure(ctx, st, "update_task", err)
	}
	logger.Info(ctx, logger.CompFlow, "task.started",
		slog.Int64("chat_id", st.ChatID),
		slog.Int64("task_id", t.ID),
	)
	st.ClearWorkflow()
	return d.replace(ctx, st, messageID, fmt.Sprintf(msgStarted, t.ID, format.MD(t.Title)), taskCardKeyboard(t))
}

// taskBack leaves the task card and shows the task list in its place.
func (d *Dispatcher) taskBack(ctx context.Context, st *session.State, messageID int) error {
	switch st.Workflow.(type) {
	case *session.ViewingTask, *session.StartTaskWork:
		st.ClearWorkflow()
	}
	tasks, err := d.svc.ActiveTasksByAssignee(ctx, st.UserID())
	if err != nil {
		return d.domainFailure(ctx, st, "active_tasks", err)
	}
	text, kb := myTasksView(tasks)
	return d.replace(ctx, st, messageID, text, kb)
}

// replace edits messageID in place, sending a new message when that fails.
func (d *Dispatcher) replace(ctx context.Context, st *session.State, messageID int, text string, kb *keyboard.Layout) error {
	if messageID > 0 {
		err := d.out.EditMessage(ctx, st.ChatID, messageID, text, kb)
		if err == nil {
			return nil
		}
		logger.Warn(ctx, logger.CompFlow, "render.edit_failed",
			slog.Int64("chat_id", st.ChatID),
			slog.String("err", err.Error()),
		)
	}
	return d.send(ctx, st, text, kb)
}

func taskCard(t domain.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📌 *#%d %s*\n\n", t.ID, format.MD(t.Title))
	if t.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", format.MD(t.Description))
	}
	fmt.Fprintf(&b, "*Status:* %s\n", t.Status.Label())
	fmt.Fprintf(&b, "*Priority:* %s\n", t.Priority)
	fmt.Fprintf(&b, "*Estimate:* %sh", formatHours(t.EstimatedHours))
	if t.Done() {
		fmt.Fprintf(&b, "\n*Actual:* %sh", formatHours(t.ActualHours))
	}
	if t.SprintID != 0 {
		fmt.Fprintf(&b, "\n*Sprint:* #%d", t.SprintID)
	}
	if t.Comments != "" {
		fmt.Fprintf(&b, "\n*Comments:* %s", format.MD(t.Comments))
	}
	return b.String()
}

func taskCardKeyboard(t domain.Task) *keyboard.Layout {
	var actions []keyboard.InlineBtn
	switch t.Status {
	case domain.StatusSelected, domain.StatusDelayed:
		actions = append(actions, keyboard.Button("▶️ Start", callbacks.Build("task", "start", t.ID)))
	}
	if t.Done() {
		actions = append(actions, keyboard.Button("↩️ Undo", callbacks.Build("task", "undo", t.ID)))
	} else {
		actions = append(actions, keyboard.Button("✅ Done", callbacks.Build("task", "done", t.ID)))
	}
	if t.SprintID == 0 && !t.Done() {
		actions = append(actions, keyboard.Button("🗂 Sprint", callbacks.Build("task", "assign", t.ID)))
	}
	return keyboard.Inline(
		actions,
		[]keyboard.InlineBtn{keyboard.Button("⬅️ Back", callbacks.Build("task", "back"))},
	)
}
