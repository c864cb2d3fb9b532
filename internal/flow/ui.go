package flow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/m3rciful/sprintbot/core/telegram/keyboard"
	"github.com/m3rciful/sprintbot/internal/domain"
	"github.com/m3rciful/sprintbot/internal/session"
)

// Reply keyboard labels. They double as command table keys.
const (
	labelMyTasks      = "My Tasks"
	labelNewTask      = "New Task"
	labelCompleteTask = "Complete Task"
	labelSprintBoard  = "Sprint Board"
	labelNewSprint    = "New Sprint"
	labelEndSprint    = "End Sprint"
	labelAssign       = "Assign to Sprint"
	labelLogout       = "Logout"
	labelHelp         = "Help"

	labelCancel = "Cancel"
	labelSkip   = "skip"
	labelSelf   = "self"

	confirmCreateTask   = "Yes, create task"
	confirmCreateSprint = "Yes, create sprint"
	confirmEndSprint    = "Yes, end sprint"
)

const (
	msgWelcome       = "👋 Welcome to the sprint tracker!\nPlease send your *employee ID* to sign in."
	msgAuthRetry     = "❌ No employee found with that ID. Please check it and try again."
	msgAuthDown      = "⚠️ Authentication is unavailable right now. Please try again later."
	msgWelcomeBack   = "👋 Welcome back, *%s*!"
	msgSignedIn      = "✅ Signed in as *%s* (%s)."
	msgLoggedOut     = "👋 You are signed out. Send /start to sign in again."
	msgMainMenu      = "🏠 Main menu"
	msgFailure       = "⚠️ Something went wrong. Please try again."
	msgUnrecognized  = "🤔 Unrecognized command. Use the menu below or /help."
	msgUnsupported   = "⚠️ Unsupported action."
	msgNoPermission  = "⛔ You do not have permission to do that."
	msgNothingCancel = "Nothing to cancel."

	msgTaskCancelled  = "❌ Task creation cancelled."
	msgTaskSimple     = "📝 Describe the task in one message."
	msgTaskTitle      = "📝 Enter the task *title*."
	msgTaskDesc       = "📄 Enter the task *description*."
	msgTaskEstimate   = "⏱ Enter the *estimated hours* (more than 0, at most 4)."
	msgTaskBadEst     = "❌ Estimated hours must be a number greater than 0 and at most 4."
	msgTaskAssignee   = "👤 Who should work on it? Send `self` or pick a team member."
	msgTaskBadAssign  = "❌ Unknown team member. Send `self` or pick someone from the list."
	msgTaskPriority   = "🚦 Choose a *priority*: High, Medium or Low."
	msgTaskBadPrio    = "❌ Priority must be High, Medium or Low."
	msgTaskCreated    = "✅ Task #%d *%s* created."
	msgTaskNotFound   = "❌ Task #%d not found."
	msgTaskNotYours   = "❌ Task #%d is not assigned to you."
	msgTaskAlready    = "ℹ️ Task #%d is already done."
	msgCompletionNone = "🎉 You have no open tasks to complete."
	msgCompletionPick = "✅ Which task did you finish? Pick it or send its ID."
	msgCompletionBad  = "❌ Send a task ID such as `7` or pick a task from the list."
	msgCompletionHrs  = "⏱ How many hours did *%s* take?"
	msgCompletionBadH = "❌ Actual hours must be a number greater than 0."
	msgCompletionCmt  = "💬 Any comments? Send them or `skip`."
	msgCompletionDone = "🎉 Task #%d *%s* completed in %s h."
	msgCompletionStop = "❌ Task completion cancelled."

	msgStatusDone    = "✅ Task #%d marked as done."
	msgStatusUndo    = "↩️ Task #%d moved back to selected for development."
	msgStatusDeleted = "🗑 Task #%d deleted."

	msgSprintManager   = "⛔ Only managers can create sprints."
	msgSprintName      = "🏁 Enter the sprint *name*."
	msgSprintBadName   = "❌ The sprint name cannot be empty."
	msgSprintDesc      = "📄 Enter the sprint *description*."
	msgSprintStart     = "📅 Enter the *start date* (YYYY-MM-DD or DD.MM.YYYY) or pick it below."
	msgSprintEnd       = "📅 Enter the *end date* (YYYY-MM-DD or DD.MM.YYYY) or pick it below."
	msgSprintBadDate   = "❌ Could not read that date. Use YYYY-MM-DD or DD.MM.YYYY."
	msgSprintEndBefore = "❌ The end date cannot be before the start date (%s)."
	msgSprintCancelled = "❌ Sprint creation cancelled."
	msgSprintCreated   = "🏁 Sprint created!"
	msgPickerExpired   = "⌛ This date picker has expired."

	msgBoardUseButtons = "🧭 You are on the sprint board. Use the buttons above, or send `Exit` to leave."
	msgBoardLeft       = "🧭 You left the sprint board."
	msgNoActiveSprint  = "ℹ️ No active sprints."
	msgConfigureStub   = "⚙️ Sprint settings are not available yet."
	msgEndExpired      = "⌛ That confirmation has expired."
	msgSprintEnded     = "🏁 Sprint #%d completed."
	msgEndKept         = "↩️ The sprint keeps running."
	msgEndManager      = "⛔ Only managers can end sprints."

	msgAssignNoTasks   = "ℹ️ You have no open tasks outside a sprint."
	msgAssignNoSprints = "ℹ️ There are no open sprints to assign to."
	msgAssignPickTask  = "🗂 Which task should go into a sprint?"
	msgAssignPickSpr   = "🗂 Pick a sprint for task #%d."
	msgAssignBadSprint = "❌ Pick one of the open sprints from the list."
	msgAssignDone      = "🗂 Task #%d added to sprint *%s*."
	msgAssignCancelled = "❌ Sprint assignment cancelled."

	msgStartConfirm = "▶️ Start working on #%d *%s*?"
	msgStarted      = "▶️ Task #%d *%s* is now in progress."
	msgStartExpired = "⌛ That action has expired. Open the task again."
)

const msgHelp = `*Sprint tracker*

*My Tasks* /tasks: your open tasks
*New Task* /newtask: create a task
*Complete Task* /complete: log hours and close a task
*Sprint Board* /sprint: browse sprints
*Assign to Sprint* /assign: move a task into a sprint
*New Sprint* /newsprint: plan a sprint (managers)
*End Sprint* /endsprint: close the active sprint (managers)
/cancel: stop what you are doing
*Logout* /logout: sign out

Shortcut: send ` + "`7-DONE`, `7-UNDO` or `7-DELETE`" + ` to update task 7.`

// mainMenu returns the role-specific reply keyboard, or nil before sign-in.
func mainMenu(st *session.State) *keyboard.Layout {
	if st == nil || !st.Authenticated {
		return nil
	}
	switch st.Role() {
	case domain.RoleManager:
		return keyboard.Reply(
			[]string{labelMyTasks, labelNewTask},
			[]string{labelCompleteTask, labelAssign},
			[]string{labelSprintBoard, labelNewSprint},
			[]string{labelEndSprint, labelHelp},
			[]string{labelLogout},
		)
	case domain.RoleDeveloper:
		return keyboard.Reply(
			[]string{labelMyTasks, labelNewTask},
			[]string{labelCompleteTask, labelAssign},
			[]string{labelSprintBoard, labelHelp},
			[]string{labelLogout},
		)
	}
	return keyboard.Reply(
		[]string{labelMyTasks, labelNewTask},
		[]string{labelCompleteTask, labelSprintBoard},
		[]string{labelHelp, labelLogout},
	)
}

func cancelKeyboard() *keyboard.Layout {
	return keyboard.Reply([]string{labelCancel})
}

func confirmKeyboard(confirm string) *keyboard.Layout {
	return keyboard.Reply([]string{confirm}, []string{labelCancel})
}

// selectionKeyboard lists "ID: <n> - <label>" options followed by Cancel.
func selectionKeyboard(extra []string, options ...string) *keyboard.Layout {
	rows := make([][]string, 0, len(options)+2)
	if len(extra) > 0 {
		rows = append(rows, extra)
	}
	for _, o := range options {
		rows = append(rows, []string{o})
	}
	rows = append(rows, []string{labelCancel})
	return keyboard.Reply(rows...)
}

func selectionLabel(id int64, label string) string {
	return fmt.Sprintf("ID: %d - %s", id, label)
}

var selectionRe = regexp.MustCompile(`^(?i:id)\s*:\s*(\d+)\s*(?:-.*)?$`)

// parseSelectionID accepts a bare integer or an "ID: <n> - <label>" string.
func parseSelectionID(text string) (int64, bool) {
	text = strings.TrimSpace(text)
	if m := selectionRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func isCancel(text string) bool {
	t := strings.TrimSpace(text)
	return strings.EqualFold(t, labelCancel) || strings.EqualFold(t, "/cancel")
}

// formatHours renders hours without trailing zeros.
func formatHours(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
