// Package domain holds the task tracker entities and the service boundary
// the conversation layer talks to.
package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by Facade lookups when the entity does not exist.
var ErrNotFound = errors.New("not found")

// Role gates which workflows a user may run.
type Role string

const (
	RoleEmployee  Role = "employee"
	RoleDeveloper Role = "developer"
	RoleManager   Role = "manager"
)

// ParseRole maps free-form role names onto known roles, defaulting to employee.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manager":
		return RoleManager
	case "developer", "dev":
		return RoleDeveloper
	}
	return RoleEmployee
}

// User is a team member that can bind a Telegram chat.
type User struct {
	ID         int64  `db:"id" yaml:"id"`
	EmployeeID string `db:"employee_id" yaml:"employee_id"`
	Name       string `db:"name" yaml:"name"`
	Role       Role   `db:"role" yaml:"role"`
	TeamID     int64  `db:"team_id" yaml:"team_id"`
	ChatID     int64  `db:"chat_id" yaml:"-"`
}

// IsManager reports whether u may run manager-only workflows.
func (u *User) IsManager() bool {
	return u != nil && u.Role == RoleManager
}

// TaskStatus is the task lifecycle position.
type TaskStatus string

const (
	StatusSelected   TaskStatus = "SELECTED_FOR_DEVELOPMENT"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDelayed    TaskStatus = "DELAYED"
	StatusInQA       TaskStatus = "IN_QA"
	StatusDone       TaskStatus = "DONE"
)

// StatusOrder is the fixed display order for task breakdowns.
var StatusOrder = []TaskStatus{
	StatusSelected,
	StatusInProgress,
	StatusDelayed,
	StatusInQA,
	StatusDone,
}

// Label returns a short human-readable status name.
func (s TaskStatus) Label() string {
	switch s {
	case StatusSelected:
		return "Selected for development"
	case StatusInProgress:
		return "In progress"
	case StatusDelayed:
		return "Delayed"
	case StatusInQA:
		return "In QA"
	case StatusDone:
		return "Done"
	}
	return string(s)
}

// Priority of a task.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// ParsePriority accepts High, Medium or Low in any letter case.
func ParsePriority(s string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh, true
	case "medium":
		return PriorityMedium, true
	case "low":
		return PriorityLow, true
	}
	return "", false
}

// Task is a unit of work tracked per assignee and optionally per sprint.
type Task struct {
	ID             int64      `db:"id"`
	Title          string     `db:"title"`
	Description    string     `db:"description"`
	EstimatedHours float64    `db:"estimated_hours"`
	ActualHours    float64    `db:"actual_hours"`
	Priority       Priority   `db:"priority"`
	Status         TaskStatus `db:"status"`
	AssigneeID     int64      `db:"assignee_id"`
	SprintID       int64      `db:"sprint_id"`
	Comments       string     `db:"comments"`
	CreatedAt      time.Time  `db:"created_at"`
	CompletedAt    *time.Time `db:"completed_at"`
}

// Done reports whether the task is complete.
func (t Task) Done() bool {
	return t.Status == StatusDone
}

// SprintStatus is the sprint lifecycle position.
type SprintStatus string

const (
	SprintPlanned   SprintStatus = "PLANNED"
	SprintActive    SprintStatus = "ACTIVE"
	SprintCompleted SprintStatus = "COMPLETED"
)

// Sprint is a time-boxed iteration owned by a team.
type Sprint struct {
	ID          int64        `db:"id"`
	Name        string       `db:"name"`
	Description string       `db:"description"`
	StartDate   time.Time    `db:"start_date"`
	EndDate     time.Time    `db:"end_date"`
	Status      SprintStatus `db:"status"`
	TeamID      int64        `db:"team_id"`
}

// Open reports whether tasks may still be assigned to the sprint at now.
func (s Sprint) Open(now time.Time) bool {
	return s.Status != SprintCompleted && s.EndDate.After(now)
}
