package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/sprintbot/core/logger"
	"github.com/m3rciful/sprintbot/core/telegram/format"
	"github.com/m3rciful/sprintbot/internal/domain"
	"github.com/m3rciful/sprintbot/internal/session"
)

func (d *Dispatcher) startAssign(ctx context.Context, st *session.State) error {
	tasks, err := d.svc.ActiveTasksByAssignee(ctx, st.UserID())
	if err != nil {
		return d.domainFailure(ctx, st, "active_tasks", err)
	}
	var loose []domain.Task
	for _, t := range tasks {
		if t.SprintID == 0 {
			loose = append(loose, t)
		}
	}
	if len(loose) == 0 {
		return d.send(ctx, st, msgAssignNoTasks, mainMenu(st))
	}
	d.enter(ctx, st, &session.AssignToSprint{Stage: session.AssignSelectTask})
	return d.send(ctx, st, msgAssignPickTask, taskSelection(loose))
}

// assignTaskButton enters the workflow with the task already chosen.
func (d *Dispatcher) assignTaskButton(ctx context.Context, st *session.State, id int64) error {
	t, ok, err := d.mutableTask(ctx, st, id)
	if err != nil || !ok {
		return err
	}
	w := &session.AssignToSprint{Stage: session.AssignSelectTask}
	d.enter(ctx, st, w)
	return d.promptSprints(ctx, st, w, t.ID)
}

func (d *Dispatcher) assignInput(ctx context.Context, st *session.State, w *session.AssignToSprint, text string) error {
	if isCancel(text) {
		return d.cancelWorkflow(ctx, st, msgAssignCancelled)
	}
	id, ok := parseSelectionID(text)

	switch w.Stage {
	case session.AssignSelectTask:
		if !ok {
			return d.send(ctx, st, msgCompletionBad, nil)
		}
		t, found, err := d.mutableTask(ctx, st, id)
		if err != nil || !found {
			return err
		}
		return d.promptSprints(ctx, st, w, t.ID)

	case session.AssignSelectSprint:
		if !ok {
			return d.send(ctx, st, msgAssignBadSprint, nil)
		}
		sprints, err := d.openSprints(ctx)
		if err != nil {
			return d.domainFailure(ctx, st, "all_sprints", err)
		}
		for _, sp := range sprints {
			if sp.ID == id {
				return d.assign(ctx, st, w.TaskID, sp)
			}
		}
		return d.send(ctx, st, msgAssignBadSprint, nil)
	}
	return fmt.Errorf("assign to sprint: unexpected stage %v", w.Stage)
}

// mutableTask loads a task the caller may change. Not-found and forbidden
// cases are answered here and reported as ok=false.
func (d *Dispatcher) mutableTask(ctx context.Context, st *session.State, id int64) (domain.Task, bool, error) {
	t, err := d.svc.TaskByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return t, false, d.send(ctx, st, fmt.Sprintf(msgTaskNotFound, id), nil)
	}
	if err != nil {
		return t, false, d.domainFailure(ctx, st, "task_by_id", err)
	}
	allowed, err := d.canMutate(ctx, st, t)
	if err != nil {
		return t, false, d.domainFailure(ctx, st, "user_by_id", err)
	}
	if !allowed {
		return t, false, d.send(ctx, st, msgNoPermission, nil)
	}
	return t, true, nil
}

func (d *Dispatcher) promptSprints(ctx context.Context, st *session.State, w *session.AssignToSprint, taskID int64) error {
	sprints, err := d.openSprints(ctx)
	if err != nil {
		return d.domainFailure(ctx, st, "all_sprints", err)
	}
	if len(sprints) == 0 {
		st.ClearWorkflow()
		return d.send(ctx, st, msgAssignNoSprints, mainMenu(st))
	}
	w.TaskID = taskID
	w.Stage = session.AssignSelectSprint
	options := make([]string, 0, len(sprints))
	for _, sp := range sprints {
		options = append(options, selectionLabel(sp.ID, sp.Name))
	}
	return d.send(ctx, st, fmt.Sprintf(msgAssignPickSpr, taskID), selectionKeyboard(nil, options...))
}

func (d *Dispatcher) openSprints(ctx context.Context) ([]domain.Sprint, error) {
	all, err := d.svc.AllSprints(ctx)
	if err != nil {
		return nil, err
	}
	now := d.now()
	open := make([]domain.Sprint, 0, len(all))
	for _, sp := range all {
		if sp.Open(now) {
			open = append(open, sp)
		}
	}
	return open, nil
}

func (d *Dispatcher) assign(ctx context.Context, st *session.State, taskID int64, sp domain.Sprint) error {
	if err := d.svc.AssignTaskToSprint(ctx, taskID, sp.ID); err != nil {
		return d.domainFailure(ctx, st, "assign_to_sprint", err)
	}
	logger.Info(ctx, logger.CompFlow, "task.assigned",
		slog.Int64("chat_id", st.ChatID),
		slog.Int64("task_id", taskID),
		slog.Int64("sprint_id", sp.ID),
	)
	st.ClearWorkflow()
	return d.send(ctx, st, fmt.Sprintf(msgAssignDone, taskID, format.MD(sp.Name)), mainMenu(st))
}
