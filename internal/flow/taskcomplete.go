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

func (d *Dispatcher) startTaskCompletion(ctx context.Context, st *session.State) error {
	tasks, err := d.svc.ActiveTasksByAssignee(ctx, st.UserID())
	if err != nil {
		return d.domainFailure(ctx, st, "active_tasks", err)
	}
	if len(tasks) == 0 {
		return d.send(ctx, st, msgCompletionNone, mainMenu(st))
	}
	d.enter(ctx, st, &session.TaskCompletion{Stage: session.CompletionSelectTask})
	return d.send(ctx, st, msgCompletionPick, taskSelection(tasks))
}

func (d *Dispatcher) taskCompletionInput(ctx context.Context, st *session.State, w *session.TaskCompletion, text string) error {
	if isCancel(text) {
		return d.cancelWorkflow(ctx, st, msgCompletionStop)
	}

	switch w.Stage {
	case session.CompletionSelectTask:
		id, ok := parseSelectionID(text)
		if !ok {
			return d.send(ctx, st, msgCompletionBad, nil)
		}
		t, err := d.svc.TaskByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return d.send(ctx, st, fmt.Sprintf(msgTaskNotFound, id), nil)
		}
		if err != nil {
			return d.domainFailure(ctx, st, "task_by_id", err)
		}
		if t.AssigneeID != st.UserID() {
			logger.Info(ctx, logger.CompFlow, "task.not_assignee",
				slog.Int64("chat_id", st.ChatID),
				slog.Int64("task_id", t.ID),
			)
			return d.send(ctx, st, fmt.Sprintf(msgTaskNotYours, id), nil)
		}
		if t.Done() {
			return d.send(ctx, st, fmt.Sprintf(msgTaskAlready, id), nil)
		}
		w.TaskID = t.ID
		w.TaskTitle = t.Title
		w.Stage = session.CompletionActualHours
		return d.send(ctx, st, fmt.Sprintf(msgCompletionHrs, format.MD(t.Title)), cancelKeyboard())

	case session.CompletionActualHours:
		v, ok := parseHours(text)
		if !ok {
			return d.send(ctx, st, msgCompletionBadH, nil)
		}
		w.ActualHours = v
		w.Stage = session.CompletionComments
		return d.send(ctx, st, msgCompletionCmt, keyboard.Reply([]string{labelSkip}, []string{labelCancel}))

	case session.CompletionComments:
		comments := text
		if strings.EqualFold(comments, labelSkip) {
			comments = ""
		}
		t, err := d.svc.CompleteTask(ctx, w.TaskID, w.ActualHours, comments)
		if err != nil {
			return d.domainFailure(ctx, st, "complete_task", err)
		}
		logger.Info(ctx, logger.CompFlow, "task.completed",
			slog.Int64("chat_id", st.ChatID),
			slog.Int64("task_id", t.ID),
			slog.Float64("actual_hours", w.ActualHours),
		)
		st.ClearWorkflow()
		return d.send(ctx, st, fmt.Sprintf(msgCompletionDone, t.ID, format.MD(t.Title), formatHours(w.ActualHours)), mainMenu(st))
	}
	return fmt.Errorf("task completion: unexpected stage %v", w.Stage)
}

// statusUpdate applies a direct DONE, UNDO or DELETE to a task and shows the
// caller's task list again.
func (d *Dispatcher) statusUpdate(ctx context.Context, st *session.State, act StatusAction, id int64) error {
	t, err := d.svc.TaskByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return d.send(ctx, st, fmt.Sprintf(msgTaskNotFound, id), mainMenu(st))
	}
	if err != nil {
		return d.domainFailure(ctx, st, "task_by_id", err)
	}
	allowed, err := d.canMutate(ctx, st, t)
	if err != nil {
		return d.domainFailure(ctx, st, "user_by_id", err)
	}
	if !allowed {
		logger.Info(ctx, logger.CompFlow, "task.forbidden",
			slog.Int64("chat_id", st.ChatID),
			slog.Int64("task_id", t.ID),
			slog.String("action", string(act)),
		)
		return d.send(ctx, st, msgNoPermission, mainMenu(st))
	}

	var reply string
	switch act {
	case ActionDone:
		now := d.now()
		t.Status = domain.StatusDone
		t.CompletedAt = &now
		_, err = d.svc.UpdateTask(ctx, t)
		reply = msgStatusDone
	case ActionUndo:
		t.Status = domain.StatusSelected
		t.CompletedAt = nil
		_, err = d.svc.UpdateTask(ctx, t)
		reply = msgStatusUndo
	case ActionDelete:
		err = d.svc.DeleteTask(ctx, t.ID)
		reply = msgStatusDeleted
	default:
		return fmt.Errorf("status update: unknown action %q", act)
	}
	if err != nil {
		return d.domainFailure(ctx, st, "status_"+strings.ToLower(string(act)), err)
	}
	logger.Info(ctx, logger.CompFlow, "task.status",
		slog.Int64("chat_id", st.ChatID),
		slog.Int64("task_id", t.ID),
		slog.String("action", string(act)),
	)
	if err := d.send(ctx, st, fmt.Sprintf(reply, t.ID), mainMenu(st)); err != nil {
		return err
	}
	return d.showMyTasks(ctx, st)
}

// canMutate allows the assignee, or a manager of the assignee's team.
func (d *Dispatcher) canMutate(ctx context.Context, st *session.State, t domain.Task) (bool, error) {
	if t.AssigneeID == st.UserID() {
		return true, nil
	}
	if !st.User.IsManager() || st.User.TeamID == 0 {
		return false, nil
	}
	owner, err := d.svc.UserByID(ctx, t.AssigneeID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return owner.TeamID == st.User.TeamID, nil
}

func (d *Dispatcher) showMyTasks(ctx context.Context, st *session.State) error {
	tasks, err := d.svc.ActiveTasksByAssignee(ctx, st.UserID())
	if err != nil {
		return d.domainFailure(ctx, st, "active_tasks", err)
	}
	text, kb := myTasksView(tasks)
	return d.send(ctx, st, text, kb)
}

func myTasksView(tasks []domain.Task) (string, *keyboard.Layout) {
	if len(tasks) == 0 {
		return "🎉 You have no open tasks.", nil
	}
	var b strings.Builder
	b.WriteString("📋 *Your open tasks*\n\n")
	rows := make([][]keyboard.InlineBtn, 0, len(tasks))
	for _, t := range tasks {
		fmt.Fprintf(&b, "#%d %s\n    %s · %s", t.ID, format.MD(t.Title), t.Status.Label(), t.Priority)
		if t.EstimatedHours > 0 {
			fmt.Fprintf(&b, " · %sh", formatHours(t.EstimatedHours))
		}
		b.WriteByte('\n')
		rows = append(rows, []keyboard.InlineBtn{
			keyboard.Button(fmt.Sprintf("✅ #%d", t.ID), callbacks.Build("task", "done", t.ID)),
			keyboard.Button("🔎", callbacks.Build("task", "view", t.ID)),
			keyboard.Button("🗑", callbacks.Build("task", "delete", t.ID)),
		})
	}
	return strings.TrimRight(b.String(), "\n"), keyboard.Inline(rows...)
}

func taskSelection(tasks []domain.Task) *keyboard.Layout {
	options := make([]string, 0, len(tasks))
	for _, t := range tasks {
		options = append(options, selectionLabel(t.ID, t.Title))
	}
	return selectionKeyboard(nil, options...)
}
