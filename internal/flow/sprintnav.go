package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/m3rciful/sprintbot/core/logger"
	"github.com/m3rciful/sprintbot/core/telegram/callbacks"
	"github.com/m3rciful/sprintbot/core/telegram/format"
	"github.com/m3rciful/sprintbot/core/telegram/keyboard"
	"github.com/m3rciful/sprintbot/internal/domain"
	"github.com/m3rciful/sprintbot/internal/session"
)

const (
	sprintMenuText = "🧭 *Sprint board*\nChoose a view."
	historyLimit   = 10
)

// enterSprintMode sends a fresh board menu and tracks it for later edits.
func (d *Dispatcher) enterSprintMode(ctx context.Context, st *session.State) error {
	d.enter(ctx, st, &session.SprintMode{View: session.ViewMainMenu})
	id, err := d.out.SendMessage(ctx, st.ChatID, sprintMenuText, sprintMenu(st))
	if err != nil {
		return err
	}
	st.LastRenderedMessageID = id
	return nil
}

func (d *Dispatcher) sprintModeInput(ctx context.Context, st *session.State, text string) error {
	if isCancel(text) || strings.EqualFold(text, "exit") {
		return d.exitSprintMode(ctx, st)
	}
	return d.send(ctx, st, msgBoardUseButtons, nil)
}

// managerDenial returns the refusal for a board action a non-manager may not
// take, or "" when the action is open to everyone.
func managerDenial(action string) string {
	switch action {
	case "create":
		return msgSprintManager
	case "end", "endconfirm":
		return msgEndManager
	case "configure":
		return msgNoPermission
	}
	return ""
}

func (d *Dispatcher) sprintButton(ctx context.Context, st *session.State, p callbacks.Payload, messageID int) error {
	if msg := managerDenial(p.Action); msg != "" && !st.User.IsManager() {
		logger.Warn(ctx, logger.CompFlow, "sprint.denied",
			slog.Int64("chat_id", st.ChatID),
			slog.String("action", p.Action),
		)
		return d.send(ctx, st, msg, nil)
	}
	w, ok := st.Workflow.(*session.SprintMode)
	if !ok {
		w = &session.SprintMode{View: session.ViewMainMenu}
		d.enter(ctx, st, w)
	}
	if messageID > 0 {
		st.LastRenderedMessageID = messageID
	}

	switch p.Action {
	case "menu":
		w.View = session.ViewMainMenu
		return d.render(ctx, st, sprintMenuText, sprintMenu(st))
	case "active":
		return d.viewActive(ctx, st, w)
	case "history":
		return d.viewHistory(ctx, st, w)
	case "detail":
		id, err := p.Int64(0)
		if err != nil {
			return d.unsupported(ctx, st, p.Raw)
		}
		return d.viewDetail(ctx, st, w, id)
	case "mytasks":
		return d.viewSprintTasks(ctx, st, w, true)
	case "alltasks":
		return d.viewSprintTasks(ctx, st, w, false)
	case "configure":
		w.View = session.ViewConfigure
		return d.render(ctx, st, msgConfigureStub, backToBoard())
	case "create":
		return d.startSprintCreation(ctx, st)
	case "end":
		return d.confirmEndSprint(ctx, st, w)
	case "endconfirm":
		id, err := p.Int64(0)
		if err != nil {
			return d.unsupported(ctx, st, p.Raw)
		}
		return d.endSprintFromBoard(ctx, st, w, id)
	case "endcancel":
		w.View = session.ViewMainMenu
		w.SprintID = 0
		return d.render(ctx, st, msgEndKept+"\n\n"+sprintMenuText, sprintMenu(st))
	case "exit":
		return d.exitSprintMode(ctx, st)
	}
	return d.unsupported(ctx, st, p.Raw)
}

func (d *Dispatcher) exitSprintMode(ctx context.Context, st *session.State) error {
	if w, ok := st.Workflow.(*session.SprintMode); ok {
		w.View = session.ViewExited
	}
	if st.LastRenderedMessageID != 0 {
		if err := d.out.EditMessage(ctx, st.ChatID, st.LastRenderedMessageID, msgBoardLeft, nil); err != nil {
			logger.Warn(ctx, logger.CompFlow, "render.edit_failed",
				slog.Int64("chat_id", st.ChatID),
				slog.String("err", err.Error()),
			)
		}
	}
	logger.Info(ctx, logger.CompFlow, "sprint.exit", slog.Int64("chat_id", st.ChatID))
	st.ClearWorkflow()
	return d.send(ctx, st, msgMainMenu, mainMenu(st))
}

// activeSprint loads all sprints and picks the active one.
func (d *Dispatcher) activeSprint(ctx context.Context) (domain.Sprint, bool, error) {
	sprints, err := d.svc.AllSprints(ctx)
	if err != nil {
		return domain.Sprint{}, false, err
	}
	sp, ok := domain.ActiveSprint(sprints, d.now())
	return sp, ok, nil
}

func (d *Dispatcher) viewActive(ctx context.Context, st *session.State, w *session.SprintMode) error {
	stop := d.loading(ctx, st)
	defer stop()

	sp, ok, err := d.activeSprint(ctx)
	if err != nil {
		stop()
		return d.domainFailure(ctx, st, "all_sprints", err)
	}
	w.View = session.ViewActive
	if !ok {
		stop()
		return d.render(ctx, st, msgNoActiveSprint, backToBoard())
	}
	tasks, err := d.svc.TasksBySprintID(ctx, sp.ID)
	stop()
	if err != nil {
		return d.domainFailure(ctx, st, "tasks_by_sprint", err)
	}
	return d.render(ctx, st, sprintHeader(sp)+"\n\n"+taskBreakdown(tasks), backToBoard())
}

func (d *Dispatcher) viewHistory(ctx context.Context, st *session.State, w *session.SprintMode) error {
	sprints, err := d.svc.AllSprints(ctx)
	if err != nil {
		return d.domainFailure(ctx, st, "all_sprints", err)
	}
	w.View = session.ViewHistory
	if len(sprints) == 0 {
		return d.render(ctx, st, "📚 No sprints yet.", backToBoard())
	}
	sort.SliceStable(sprints, func(i, j int) bool {
		return sprints[i].EndDate.After(sprints[j].EndDate)
	})
	if len(sprints) > historyLimit {
		sprints = sprints[:historyLimit]
	}

	var b strings.Builder
	b.WriteString("📚 *Sprint history*\n")
	rows := make([][]keyboard.InlineBtn, 0, len(sprints)+1)
	for _, sp := range sprints {
		fmt.Fprintf(&b, "\n#%d %s · %s - %s · %s", sp.ID, format.MD(sp.Name),
			sp.StartDate.Format(displayDate), sp.EndDate.Format(displayDate), strings.ToLower(string(sp.Status)))
		rows = append(rows, []keyboard.InlineBtn{
			keyboard.Button(sp.Name, callbacks.Build("sprint", "detail", sp.ID)),
		})
	}
	rows = append(rows, backRow())
	return d.render(ctx, st, b.String(), keyboard.Inline(rows...))
}

func (d *Dispatcher) viewDetail(ctx context.Context, st *session.State, w *session.SprintMode, id int64) error {
	stop := d.loading(ctx, st)
	defer stop()

	sprints, err := d.svc.AllSprints(ctx)
	if err != nil {
		stop()
		return d.domainFailure(ctx, st, "all_sprints", err)
	}
	w.View = session.ViewHistory
	for _, sp := range sprints {
		if sp.ID != id {
			continue
		}
		tasks, err := d.svc.TasksBySprintID(ctx, sp.ID)
		stop()
		if err != nil {
			return d.domainFailure(ctx, st, "tasks_by_sprint", err)
		}
		return d.render(ctx, st, sprintHeader(sp)+"\n\n"+taskBreakdown(tasks), keyboard.Inline(
			[]keyboard.InlineBtn{keyboard.Button("⬅️ History", callbacks.Build("sprint", "history"))},
			backRow(),
		))
	}
	stop()
	return d.render(ctx, st, fmt.Sprintf("❌ Sprint #%d not found.", id), backToBoard())
}

// viewSprintTasks shows the active sprint's tasks, only the caller's when
// mine is set.
func (d *Dispatcher) viewSprintTasks(ctx context.Context, st *session.State, w *session.SprintMode, mine bool) error {
	stop := d.loading(ctx, st)
	defer stop()

	sp, ok, err := d.activeSprint(ctx)
	if err != nil {
		stop()
		return d.domainFailure(ctx, st, "all_sprints", err)
	}
	w.View = session.ViewAllTasks
	if mine {
		w.View = session.ViewMyTasks
	}
	if !ok {
		stop()
		return d.render(ctx, st, msgNoActiveSprint, backToBoard())
	}

	var tasks []domain.Task
	if mine {
		tasks, err = d.svc.TasksBySprintAndAssignee(ctx, sp.ID, st.UserID())
	} else {
		tasks, err = d.svc.TasksBySprintID(ctx, sp.ID)
	}
	stop()
	if err != nil {
		return d.domainFailure(ctx, st, "sprint_tasks", err)
	}
	title := "👥 *All tasks*"
	if mine {
		title = "🙋 *My tasks*"
	}
	return d.render(ctx, st, title+" in "+format.MD(sp.Name)+"\n\n"+taskBreakdown(tasks), backToBoard())
}

func (d *Dispatcher) confirmEndSprint(ctx context.Context, st *session.State, w *session.SprintMode) error {
	if !st.User.IsManager() {
		return d.send(ctx, st, msgEndManager, nil)
	}
	sp, ok, err := d.activeSprint(ctx)
	if err != nil {
		return d.domainFailure(ctx, st, "all_sprints", err)
	}
	if !ok {
		w.View = session.ViewMainMenu
		return d.render(ctx, st, msgNoActiveSprint, backToBoard())
	}
	tasks, err := d.svc.TasksBySprintID(ctx, sp.ID)
	if err != nil {
		return d.domainFailure(ctx, st, "tasks_by_sprint", err)
	}
	w.View = session.ViewConfirmEnd
	w.SprintID = sp.ID
	return d.render(ctx, st, endSprintSummary(sp, tasks), keyboard.Inline(
		[]keyboard.InlineBtn{keyboard.Button("✅ "+confirmEndSprint, callbacks.Build("sprint", "endconfirm", sp.ID))},
		[]keyboard.InlineBtn{keyboard.Button("↩️ Keep it running", callbacks.Build("sprint", "endcancel"))},
	))
}

func (d *Dispatcher) endSprintFromBoard(ctx context.Context, st *session.State, w *session.SprintMode, id int64) error {
	if !st.User.IsManager() {
		return d.send(ctx, st, msgEndManager, nil)
	}
	if w.View != session.ViewConfirmEnd || w.SprintID != id {
		w.View = session.ViewMainMenu
		return d.render(ctx, st, msgEndExpired+"\n\n"+sprintMenuText, sprintMenu(st))
	}
	if err := d.svc.CompleteSprint(ctx, id); err != nil {
		return d.domainFailure(ctx, st, "complete_sprint", err)
	}
	logger.Info(ctx, logger.CompFlow, "sprint.completed",
		slog.Int64("chat_id", st.ChatID),
		slog.Int64("sprint_id", id),
	)
	w.View = session.ViewMainMenu
	w.SprintID = 0
	return d.render(ctx, st, fmt.Sprintf(msgSprintEnded, id)+"\n\n"+sprintMenuText, sprintMenu(st))
}

func sprintMenu(st *session.State) *keyboard.Layout {
	btn := func(text, action string) keyboard.InlineBtn {
		return keyboard.Button(text, callbacks.Build("sprint", action))
	}
	if st.User.IsManager() {
		return keyboard.Inline(
			[]keyboard.InlineBtn{btn("🏃 Active sprint", "active"), btn("📚 History", "history")},
			[]keyboard.InlineBtn{btn("➕ New sprint", "create"), btn("⚙️ Settings", "configure")},
			[]keyboard.InlineBtn{btn("🏁 End sprint", "end")},
			[]keyboard.InlineBtn{btn("🚪 Exit", "exit")},
		)
	}
	return keyboard.Inline(
		[]keyboard.InlineBtn{btn("🏃 Active sprint", "active"), btn("📚 History", "history")},
		[]keyboard.InlineBtn{btn("🙋 My tasks", "mytasks"), btn("👥 All tasks", "alltasks")},
		[]keyboard.InlineBtn{btn("🚪 Exit", "exit")},
	)
}

func backRow() []keyboard.InlineBtn {
	return []keyboard.InlineBtn{keyboard.Button("⬅️ Back", callbacks.Build("sprint", "menu"))}
}

func backToBoard() *keyboard.Layout {
	return keyboard.Inline(backRow())
}
