package session

import (
	"fmt"
	"time"
)

// Kind names the active workflow of a session.
type Kind int

const (
	KindNone Kind = iota
	KindTaskCreation
	KindTaskCompletion
	KindSprintCreation
	KindSprintMode
	KindAssignToSprint
	KindEndSprint
	KindStartTaskWork
	KindViewingTask
)

var kindNames = [...]string{
	KindNone:           "NONE",
	KindTaskCreation:   "TASK_CREATION",
	KindTaskCompletion: "TASK_COMPLETION",
	KindSprintCreation: "SPRINT_CREATION",
	KindSprintMode:     "SPRINT_MODE",
	KindAssignToSprint: "ASSIGN_TO_SPRINT",
	KindEndSprint:      "END_SPRINT",
	KindStartTaskWork:  "START_TASK_WORK",
	KindViewingTask:    "VIEWING_TASK",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Workflow is the sealed set of multi-turn conversations. Each implementation
// carries its own stage and scratch fields, so replacing the session's
// workflow discards everything the previous one accumulated.
type Workflow interface {
	Kind() Kind
	// StageName is the current stage for logs.
	StageName() string
	sealed()
}

// TaskCreationStage is the position inside task creation.
type TaskCreationStage int

const (
	// TaskSimpleInput is the single-turn variant used by the employee role.
	TaskSimpleInput TaskCreationStage = iota
	TaskTitle
	TaskDescription
	TaskEstimatedHours
	TaskAssignee
	TaskPriority
	TaskConfirmation
)

func (s TaskCreationStage) String() string {
	switch s {
	case TaskSimpleInput:
		return "SIMPLE_INPUT"
	case TaskTitle:
		return "TITLE"
	case TaskDescription:
		return "DESCRIPTION"
	case TaskEstimatedHours:
		return "ESTIMATED_HOURS"
	case TaskAssignee:
		return "ASSIGNEE"
	case TaskPriority:
		return "PRIORITY"
	case TaskConfirmation:
		return "CONFIRMATION"
	}
	return fmt.Sprintf("TaskCreationStage(%d)", int(s))
}

// TaskCreation accumulates a new task turn by turn.
type TaskCreation struct {
	Stage          TaskCreationStage
	Title          string
	Description    string
	EstimatedHours float64
	// AssigneeID is zero until a manager picks someone.
	AssigneeID   int64
	AssigneeName string
	Priority     string
}

func (*TaskCreation) Kind() Kind          { return KindTaskCreation }
func (w *TaskCreation) StageName() string { return w.Stage.String() }
func (*TaskCreation) sealed()             {}

// TaskCompletionStage is the position inside task completion.
type TaskCompletionStage int

const (
	CompletionSelectTask TaskCompletionStage = iota
	CompletionActualHours
	CompletionComments
)

func (s TaskCompletionStage) String() string {
	switch s {
	case CompletionSelectTask:
		return "SELECT_TASK"
	case CompletionActualHours:
		return "ACTUAL_HOURS"
	case CompletionComments:
		return "COMMENTS"
	}
	return fmt.Sprintf("TaskCompletionStage(%d)", int(s))
}

// TaskCompletion collects the data needed to close a task.
type TaskCompletion struct {
	Stage       TaskCompletionStage
	TaskID      int64
	TaskTitle   string
	ActualHours float64
}

func (*TaskCompletion) Kind() Kind          { return KindTaskCompletion }
func (w *TaskCompletion) StageName() string { return w.Stage.String() }
func (*TaskCompletion) sealed()             {}

// SprintCreationStage is the position inside sprint creation.
type SprintCreationStage int

const (
	SprintName SprintCreationStage = iota
	SprintDescription
	SprintStartDate
	SprintEndDate
	SprintConfirmation
)

func (s SprintCreationStage) String() string {
	switch s {
	case SprintName:
		return "NAME"
	case SprintDescription:
		return "DESCRIPTION"
	case SprintStartDate:
		return "START_DATE"
	case SprintEndDate:
		return "END_DATE"
	case SprintConfirmation:
		return "CONFIRMATION"
	}
	return fmt.Sprintf("SprintCreationStage(%d)", int(s))
}

// SprintCreation accumulates a new sprint.
type SprintCreation struct {
	Stage       SprintCreationStage
	Name        string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	// PickerMessageID is the inline date picker to update in place.
	PickerMessageID int
}

func (*SprintCreation) Kind() Kind          { return KindSprintCreation }
func (w *SprintCreation) StageName() string { return w.Stage.String() }
func (*SprintCreation) sealed()             {}

// SprintView is the screen shown by the sprint board.
type SprintView int

const (
	ViewMainMenu SprintView = iota
	ViewActive
	ViewHistory
	ViewMyTasks
	ViewAllTasks
	ViewConfigure
	ViewConfirmEnd
	ViewExited
)

func (v SprintView) String() string {
	switch v {
	case ViewMainMenu:
		return "MAIN_MENU"
	case ViewActive:
		return "VIEW_ACTIVE"
	case ViewHistory:
		return "VIEW_HISTORY"
	case ViewMyTasks:
		return "VIEW_MY_TASKS"
	case ViewAllTasks:
		return "VIEW_ALL_TASKS"
	case ViewConfigure:
		return "CONFIGURE"
	case ViewConfirmEnd:
		return "CONFIRM_END"
	case ViewExited:
		return "EXITED"
	}
	return fmt.Sprintf("SprintView(%d)", int(v))
}

// SprintMode is the button-driven sprint board.
type SprintMode struct {
	View SprintView
	// SprintID is the sprint awaiting end confirmation.
	SprintID int64
}

func (*SprintMode) Kind() Kind          { return KindSprintMode }
func (w *SprintMode) StageName() string { return w.View.String() }
func (*SprintMode) sealed()             {}

// AssignStage is the position inside assign-to-sprint.
type AssignStage int

const (
	AssignSelectTask AssignStage = iota
	AssignSelectSprint
)

func (s AssignStage) String() string {
	if s == AssignSelectSprint {
		return "SELECT_SPRINT"
	}
	return "SELECT_TASK"
}

// AssignToSprint moves one of the user's tasks into a sprint.
type AssignToSprint struct {
	Stage  AssignStage
	TaskID int64
}

func (*AssignToSprint) Kind() Kind          { return KindAssignToSprint }
func (w *AssignToSprint) StageName() string { return w.Stage.String() }
func (*AssignToSprint) sealed()             {}

// EndSprint awaits a typed confirmation before completing a sprint.
type EndSprint struct {
	SprintID int64
}

func (*EndSprint) Kind() Kind        { return KindEndSprint }
func (*EndSprint) StageName() string { return "CONFIRMATION" }
func (*EndSprint) sealed()           {}

// StartTaskWork awaits confirmation before moving a task to in progress.
type StartTaskWork struct {
	TaskID int64
}

func (*StartTaskWork) Kind() Kind        { return KindStartTaskWork }
func (*StartTaskWork) StageName() string { return "CONFIRMATION" }
func (*StartTaskWork) sealed()           {}

// ViewingTask shows one task's detail card.
type ViewingTask struct {
	TaskID int64
}

func (*ViewingTask) Kind() Kind        { return KindViewingTask }
func (*ViewingTask) StageName() string { return "DETAIL" }
func (*ViewingTask) sealed()           {}
