// Package postgres implements domain.Facade on top of sqlx and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/sprintbot/core/logger"
	"github.com/m3rciful/sprintbot/internal/domain"
)

const (
	userColumns = `id, employee_id, name, role, COALESCE(team_id, 0) AS team_id, COALESCE(chat_id, 0) AS chat_id`
	taskColumns = `id, title, description, estimated_hours, actual_hours, priority, status,
		assignee_id, COALESCE(sprint_id, 0) AS sprint_id, comments, created_at, completed_at`
	sprintColumns = `id, name, description, start_date, end_date, status, COALESCE(team_id, 0) AS team_id`
)

// Store is the Postgres-backed task tracker.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

var (
	_ domain.Facade   = (*Store)(nil)
	_ domain.Seedable = (*Store)(nil)
)

// New wraps an open connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// nullID maps the zero id onto SQL NULL for optional foreign keys.
func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

// mapErr turns sql.ErrNoRows into domain.ErrNotFound and adds context.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func expectRow(op string, res sql.Result, err error) error {
	if err != nil {
		return mapErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}

// UpsertTeam creates or renames a team.
func (s *Store) UpsertTeam(ctx context.Context, id int64, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO teams (id, name) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`, id, name)
	return mapErr("upsert team", err)
}

// UpsertUser inserts u or updates the row with the same employee id. Ids are
// assigned by the database; an existing chat binding is preserved.
func (s *Store) UpsertUser(ctx context.Context, u domain.User) (domain.User, error) {
	if strings.TrimSpace(u.EmployeeID) == "" {
		return domain.User{}, fmt.Errorf("upsert user: empty employee id")
	}
	var out domain.User
	err := s.db.GetContext(ctx, &out,
		`INSERT INTO users (employee_id, name, role, team_id) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (employee_id) DO UPDATE
		 SET name = EXCLUDED.name, role = EXCLUDED.role, team_id = EXCLUDED.team_id
		 RETURNING `+userColumns,
		u.EmployeeID, u.Name, string(u.Role), nullID(u.TeamID))
	if err != nil {
		return domain.User{}, mapErr("upsert user", err)
	}
	return out, nil
}

// FindUserByChatID returns the user bound to chatID, or domain.ErrNotFound.
func (s *Store) FindUserByChatID(ctx context.Context, chatID int64) (domain.User, error) {
	var u domain.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE chat_id = $1`, chatID)
	return u, mapErr("find user by chat", err)
}

// FindUserByEmployeeID looks the user up by employee id, ignoring case and
// surrounding spaces.
func (s *Store) FindUserByEmployeeID(ctx context.Context, employeeID string) (domain.User, error) {
	var u domain.User
	err := s.db.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users WHERE LOWER(employee_id) = LOWER($1) LIMIT 1`,
		strings.TrimSpace(employeeID))
	return u, mapErr("find user by employee id", err)
}

// BindChatIDToUser attaches chatID to the user, detaching it from anyone else.
func (s *Store) BindChatIDToUser(ctx context.Context, userID, chatID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapErr("bind chat", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE users SET chat_id = NULL WHERE chat_id = $1 AND id <> $2`, chatID, userID); err != nil {
		return mapErr("bind chat: release", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE users SET chat_id = $1 WHERE id = $2`, chatID, userID)
	if err := expectRow("bind chat", res, err); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapErr("bind chat: commit", err)
	}
	logger.Info(ctx, logger.CompUsers, "chat.bound",
		slog.Int64("user_id", userID),
		slog.Int64("chat_id", chatID),
	)
	return nil
}

// UnbindChat clears chatID from whichever user holds it. An unbound chat is
// not an error.
func (s *Store) UnbindChat(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET chat_id = NULL WHERE chat_id = $1`, chatID)
	return mapErr("unbind chat", err)
}

// UserByID returns the user with id, or domain.ErrNotFound.
func (s *Store) UserByID(ctx context.Context, id int64) (domain.User, error) {
	var u domain.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return u, mapErr("user by id", err)
}

// UsersByTeamID lists the team ordered by name.
func (s *Store) UsersByTeamID(ctx context.Context, teamID int64) ([]domain.User, error) {
	var users []domain.User
	err := s.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users WHERE team_id = $1 ORDER BY name, id`, teamID)
	return users, mapErr("users by team", err)
}

// CreateTask inserts t. Empty status and priority default to
// SELECTED_FOR_DEVELOPMENT and Medium.
func (s *Store) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	if t.Status == "" {
		t.Status = domain.StatusSelected
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	var out domain.Task
	err := s.db.GetContext(ctx, &out,
		`INSERT INTO tasks (title, description, estimated_hours, priority, status, assignee_id, sprint_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+taskColumns,
		t.Title, t.Description, t.EstimatedHours, string(t.Priority), string(t.Status), t.AssigneeID, nullID(t.SprintID))
	if err != nil {
		return domain.Task{}, mapErr("create task", err)
	}
	logger.Info(ctx, logger.CompTasks, "task.created",
		slog.Int64("task_id", out.ID),
		slog.Int64("assignee_id", out.AssigneeID),
	)
	return out, nil
}

// UpdateTask overwrites every mutable column of the task with t.ID.
func (s *Store) UpdateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	var out domain.Task
	err := s.db.GetContext(ctx, &out,
		`UPDATE tasks SET title = $2, description = $3, estimated_hours = $4, actual_hours = $5,
		 priority = $6, status = $7, assignee_id = $8, sprint_id = $9, comments = $10, completed_at = $11
		 WHERE id = $1
		 RETURNING `+taskColumns,
		t.ID, t.Title, t.Description, t.EstimatedHours, t.ActualHours, string(t.Priority), string(t.Status),
		t.AssigneeID, nullID(t.SprintID), t.Comments, t.CompletedAt)
	if err != nil {
		return domain.Task{}, mapErr("update task", err)
	}
	return out, nil
}

// DeleteTask removes the task; a missing id yields domain.ErrNotFound.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err := expectRow("delete task", res, err); err != nil {
		return err
	}
	logger.Info(ctx, logger.CompTasks, "task.deleted", slog.Int64("task_id", id))
	return nil
}

// CompleteTask marks the task done with the reported hours and comments.
func (s *Store) CompleteTask(ctx context.Context, id int64, actualHours float64, comments string) (domain.Task, error) {
	var out domain.Task
	err := s.db.GetContext(ctx, &out,
		`UPDATE tasks SET status = $2, actual_hours = $3, comments = $4, completed_at = $5
		 WHERE id = $1
		 RETURNING `+taskColumns,
		id, string(domain.StatusDone), actualHours, comments, s.now())
	if err != nil {
		return domain.Task{}, mapErr("complete task", err)
	}
	logger.Info(ctx, logger.CompTasks, "task.completed",
		slog.Int64("task_id", id),
		slog.Float64("actual_hours", actualHours),
	)
	return out, nil
}

// TaskByID returns the task with id, or domain.ErrNotFound.
func (s *Store) TaskByID(ctx context.Context, id int64) (domain.Task, error) {
	var t domain.Task
	err := s.db.GetContext(ctx, &t, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return t, mapErr("task by id", err)
}

// AssignTaskToSprint moves the task into the sprint. Both must exist.
func (s *Store) AssignTaskToSprint(ctx context.Context, taskID, sprintID int64) error {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM sprints WHERE id = $1)`, sprintID); err != nil {
		return mapErr("assign task: sprint lookup", err)
	}
	if !exists {
		return fmt.Errorf("assign task: sprint %d: %w", sprintID, domain.ErrNotFound)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET sprint_id = $2 WHERE id = $1`, taskID, sprintID)
	if err := expectRow("assign task", res, err); err != nil {
		return err
	}
	logger.Info(ctx, logger.CompTasks, "task.assigned",
		slog.Int64("task_id", taskID),
		slog.Int64("sprint_id", sprintID),
	)
	return nil
}

// TasksBySprintID lists the sprint's tasks in id order.
func (s *Store) TasksBySprintID(ctx context.Context, sprintID int64) ([]domain.Task, error) {
	var tasks []domain.Task
	err := s.db.SelectContext(ctx, &tasks,
		`SELECT `+taskColumns+` FROM tasks WHERE sprint_id = $1 ORDER BY id`, sprintID)
	return tasks, mapErr("tasks by sprint", err)
}

// ActiveTasksByAssignee returns the user's tasks that are not done.
func (s *Store) ActiveTasksByAssignee(ctx context.Context, userID int64) ([]domain.Task, error) {
	var tasks []domain.Task
	err := s.db.SelectContext(ctx, &tasks,
		`SELECT `+taskColumns+` FROM tasks WHERE assignee_id = $1 AND status <> $2 ORDER BY id`,
		userID, string(domain.StatusDone))
	return tasks, mapErr("active tasks by assignee", err)
}

// TasksBySprintAndAssignee lists the user's tasks in the sprint.
func (s *Store) TasksBySprintAndAssignee(ctx context.Context, sprintID, userID int64) ([]domain.Task, error) {
	var tasks []domain.Task
	err := s.db.SelectContext(ctx, &tasks,
		`SELECT `+taskColumns+` FROM tasks WHERE sprint_id = $1 AND assignee_id = $2 ORDER BY id`,
		sprintID, userID)
	return tasks, mapErr("tasks by sprint and assignee", err)
}

// AllSprints returns every sprint in id order.
func (s *Store) AllSprints(ctx context.Context) ([]domain.Sprint, error) {
	var sprints []domain.Sprint
	err := s.db.SelectContext(ctx, &sprints, `SELECT `+sprintColumns+` FROM sprints ORDER BY id`)
	return sprints, mapErr("all sprints", err)
}

// CreateSprint inserts sp; an empty status defaults to PLANNED.
func (s *Store) CreateSprint(ctx context.Context, sp domain.Sprint) (domain.Sprint, error) {
	if sp.Status == "" {
		sp.Status = domain.SprintPlanned
	}
	var out domain.Sprint
	err := s.db.GetContext(ctx, &out,
		`INSERT INTO sprints (name, description, start_date, end_date, status, team_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+sprintColumns,
		sp.Name, sp.Description, sp.StartDate, sp.EndDate, string(sp.Status), nullID(sp.TeamID))
	if err != nil {
		return domain.Sprint{}, mapErr("create sprint", err)
	}
	logger.Info(ctx, logger.CompSprints, "sprint.created",
		slog.Int64("sprint_id", out.ID),
		slog.Int64("team_id", out.TeamID),
	)
	return out, nil
}

// CompleteSprint marks the sprint COMPLETED.
func (s *Store) CompleteSprint(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sprints SET status = $2 WHERE id = $1`, id, string(domain.SprintCompleted))
	if err := expectRow("complete sprint", res, err); err != nil {
		return err
	}
	logger.Info(ctx, logger.CompSprints, "sprint.completed", slog.Int64("sprint_id", id))
	return nil
}
