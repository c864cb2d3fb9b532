package domain

import "context"

// Facade is the task/sprint/user service consumed by conversation handlers.
// Lookups return ErrNotFound (possibly wrapped) when nothing matches.
type Facade interface {
	FindUserByChatID(ctx context.Context, chatID int64) (User, error)
	FindUserByEmployeeID(ctx context.Context, employeeID string) (User, error)
	BindChatIDToUser(ctx context.Context, userID, chatID int64) error
	UnbindChat(ctx context.Context, chatID int64) error
	UserByID(ctx context.Context, id int64) (User, error)
	UsersByTeamID(ctx context.Context, teamID int64) ([]User, error)

	CreateTask(ctx context.Context, t Task) (Task, error)
	UpdateTask(ctx context.Context, t Task) (Task, error)
	DeleteTask(ctx context.Context, id int64) error
	CompleteTask(ctx context.Context, id int64, actualHours float64, comments string) (Task, error)
	TaskByID(ctx context.Context, id int64) (Task, error)
	AssignTaskToSprint(ctx context.Context, taskID, sprintID int64) error
	TasksBySprintID(ctx context.Context, sprintID int64) ([]Task, error)
	ActiveTasksByAssignee(ctx context.Context, userID int64) ([]Task, error)
	TasksBySprintAndAssignee(ctx context.Context, sprintID, userID int64) ([]Task, error)

	AllSprints(ctx context.Context) ([]Sprint, error)
	CreateSprint(ctx context.Context, s Sprint) (Sprint, error)
	CompleteSprint(ctx context.Context, id int64) error
}

// Seedable stores accept fixture users and teams at bootstrap.
type Seedable interface {
	UpsertTeam(ctx context.Context, id int64, name string) error
	UpsertUser(ctx context.Context, u User) (User, error)
}
