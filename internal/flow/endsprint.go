package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/sprintbot/core/logger"
	"github.com/m3rciful/sprintbot/internal/session"
)

func (d *Dispatcher) startEndSprint(ctx context.Context, st *session.State) error {
	if !st.User.IsManager() {
		return d.send(ctx, st, msgEndManager, mainMenu(st))
	}
	sp, ok, err := d.activeSprint(ctx)
	if err != nil {
		return d.domainFailure(ctx, st, "all_sprints", err)
	}
	if !ok {
		return d.send(ctx, st, msgNoActiveSprint, mainMenu(st))
	}
	tasks, err := d.svc.TasksBySprintID(ctx, sp.ID)
	if err != nil {
		return d.domainFailure(ctx, st, "tasks_by_sprint", err)
	}
	d.enter(ctx, st, &session.EndSprint{SprintID: sp.ID})
	return d.send(ctx, st, endSprintSummary(sp, tasks), confirmKeyboard(confirmEndSprint))
}

func (d *Dispatcher) endSprintInput(ctx context.Context, st *session.State, w *session.EndSprint, text string) error {
	if !strings.EqualFold(text, confirmEndSprint) {
		return d.cancelWorkflow(ctx, st, msgEndKept)
	}
	if err := d.svc.CompleteSprint(ctx, w.SprintID); err != nil {
		return d.domainFailure(ctx, st, "complete_sprint", err)
	}
	logger.Info(ctx, logger.CompFlow, "sprint.completed",
		slog.Int64("chat_id", st.ChatID),
		slog.Int64("sprint_id", w.SprintID),
	)
	st.ClearWorkflow()
	return d.send(ctx, st, fmt.Sprintf(msgSprintEnded, w.SprintID), mainMenu(st))
}
