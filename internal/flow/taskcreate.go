package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/sprintbot/core/logger"
	"github.com/m3rciful/sprintbot/core/telegram/format"
	"github.com/m3rciful/sprintbot/core/telegram/keyboard"
	"github.com/m3rciful/sprintbot/internal/domain"
	"github.com/m3rciful/sprintbot/internal/session"
)

const maxEstimateHours = 4

// startTaskCreation picks the single-turn variant for employees and the
// guided one for everybody else.
func (d *Dispatcher) startTaskCreation(ctx context.Context, st *session.State) error {
	if st.Role() == domain.RoleEmployee {
		d.enter(ctx, st, &session.TaskCreation{Stage: session.TaskSimpleInput})
		return d.send(ctx, st, msgTaskSimple, cancelKeyboard())
	}
	d.enter(ctx, st, &session.TaskCreation{Stage: session.TaskTitle})
	return d.send(ctx, st, msgTaskTitle, cancelKeyboard())
}

func (d *Dispatcher) taskCreationInput(ctx context.Context, st *session.State, w *session.TaskCreation, text string) error {
	if isCancel(text) {
		return d.cancelWorkflow(ctx, st, msgTaskCancelled)
	}

	switch w.Stage {
	case session.TaskSimpleInput:
		if text == "" {
			return d.send(ctx, st, msgTaskSimple, nil)
		}
		w.Title = text
		w.Priority = string(domain.PriorityMedium)
		return d.createTask(ctx, st, w)

	case session.TaskTitle:
		if text == "" {
			return d.send(ctx, st, msgTaskTitle, nil)
		}
		w.Title = text
		w.Stage = session.TaskDescription
		return d.send(ctx, st, msgTaskDesc, nil)

	case session.TaskDescription:
		w.Description = text
		w.Stage = session.TaskEstimatedHours
		return d.send(ctx, st, msgTaskEstimate, nil)

	case session.TaskEstimatedHours:
		v, ok := parseHours(text)
		if !ok || v > maxEstimateHours {
			logger.Debug(ctx, logger.CompFlow, "task.estimate_rejected",
				slog.Int64("chat_id", st.ChatID),
				slog.String("input", text),
			)
			return d.send(ctx, st, msgTaskBadEst, nil)
		}
		w.EstimatedHours = v
		if st.User.IsManager() {
			w.Stage = session.TaskAssignee
			return d.promptAssignee(ctx, st)
		}
		w.Stage = session.TaskPriority
		return d.send(ctx, st, msgTaskPriority, priorityKeyboard())

	case session.TaskAssignee:
		return d.pickAssignee(ctx, st, w, text)

	case session.TaskPriority:
		p, ok := domain.ParsePriority(text)
		if !ok {
			return d.send(ctx, st, msgTaskBadPrio, nil)
		}
		w.Priority = string(p)
		w.Stage = session.TaskConfirmation
		return d.send(ctx, st, taskSummary(st, w), confirmKeyboard(confirmCreateTask))

	case session.TaskConfirmation:
		if !strings.EqualFold(text, confirmCreateTask) {
			return d.cancelWorkflow(ctx, st, msgTaskCancelled)
		}
		return d.createTask(ctx, st, w)
	}
	return fmt.Errorf("task creation: unexpected stage %v", w.Stage)
}

func (d *Dispatcher) promptAssignee(ctx context.Context, st *session.State) error {
	members, err := d.svc.UsersByTeamID(ctx, st.User.TeamID)
	if err != nil {
		return d.domainFailure(ctx, st, "users_by_team", err)
	}
	options := make([]string, 0, len(members))
	for _, u := range members {
		if u.ID == st.UserID() {
			continue
		}
		options = append(options, selectionLabel(u.ID, u.Name))
	}
	return d.send(ctx, st, msgTaskAssignee, selectionKeyboard([]string{labelSelf}, options...))
}

// pickAssignee accepts "self", a user id, an "ID: <n> - <name>" selection or
// an exact member name from the manager's team.
func (d *Dispatcher) pickAssignee(ctx context.Context, st *session.State, w *session.TaskCreation, text string) error {
	if strings.EqualFold(text, labelSelf) {
		w.AssigneeID = st.UserID()
		w.AssigneeName = st.User.Name
		w.Stage = session.TaskPriority
		return d.send(ctx, st, msgTaskPriority, priorityKeyboard())
	}

	members, err := d.svc.UsersByTeamID(ctx, st.User.TeamID)
	if err != nil {
		return d.domainFailure(ctx, st, "users_by_team", err)
	}
	id, byID := parseSelectionID(text)
	for _, u := range members {
		if (byID && u.ID == id) || u.Name == text {
			w.AssigneeID = u.ID
			w.AssigneeName = u.Name
			w.Stage = session.TaskPriority
			return d.send(ctx, st, msgTaskPriority, priorityKeyboard())
		}
	}
	return d.send(ctx, st, msgTaskBadAssign, nil)
}

func (d *Dispatcher) createTask(ctx context.Context, st *session.State, w *session.TaskCreation) error {
	assignee := w.AssigneeID
	if assignee == 0 {
		assignee = st.UserID()
	}
	t, err := d.svc.CreateTask(ctx, domain.Task{
		Title:          w.Title,
		Description:    w.Description,
		EstimatedHours: w.EstimatedHours,
		Priority:       domain.Priority(w.Priority),
		Status:         domain.StatusSelected,
		AssigneeID:     assignee,
		CreatedAt:      d.now(),
	})
	if err != nil {
		return d.domainFailure(ctx, st, "create_task", err)
	}
	logger.Info(ctx, logger.CompFlow, "task.created",
		slog.Int64("chat_id", st.ChatID),
		slog.Int64("task_id", t.ID),
		slog.Int64("assignee_id", t.AssigneeID),
	)
	st.ClearWorkflow()
	return d.send(ctx, st, fmt.Sprintf(msgTaskCreated, t.ID, format.MD(t.Title)), mainMenu(st))
}

func taskSummary(st *session.State, w *session.TaskCreation) string {
	assignee := "You"
	if w.AssigneeID != 0 && w.AssigneeID != st.UserID() {
		assignee = w.AssigneeName
	}
	var b strings.Builder
	b.WriteString("📋 *New task*\n\n")
	fmt.Fprintf(&b, "*Title:* %s\n", format.MD(w.Title))
	if w.Description != "" {
		fmt.Fprintf(&b, "*Description:* %s\n", format.MD(w.Description))
	}
	fmt.Fprintf(&b, "*Estimated hours:* %s\n", formatHours(w.EstimatedHours))
	fmt.Fprintf(&b, "*Assignee:* %s\n", format.MD(assignee))
	fmt.Fprintf(&b, "*Priority:* %s\n\n", w.Priority)
	b.WriteString("Create this task?")
	return b.String()
}

func priorityKeyboard() *keyboard.Layout {
	return keyboard.Reply(
		[]string{string(domain.PriorityHigh), string(domain.PriorityMedium), string(domain.PriorityLow)},
		[]string{labelCancel},
	)
}

// parseHours reads a positive finite number; a decimal comma is accepted.
func parseHours(text string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(text), ",", "."), 64)
	if err != nil || !(v > 0) || v > 1e6 {
		return 0, false
	}
	return v, true
}
