// Package memory is an in-process implementation of domain.Facade for local
// runs and tests. Nothing is persisted.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/sprintbot/internal/domain"
)

// Store keeps teams, users, tasks and sprints in maps guarded by one RWMutex.
type Store struct {
	mu      sync.RWMutex
	teams   map[int64]string
	users   map[int64]domain.User
	tasks   map[int64]domain.Task
	sprints map[int64]domain.Sprint

	nextUser   int64
	nextTask   int64
	nextSprint int64
	now        func() time.Time
}

var (
	_ domain.Facade   = (*Store)(nil)
	_ domain.Seedable = (*Store)(nil)
)

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the time source used for created and completed stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		teams:   make(map[int64]string),
		users:   make(map[int64]domain.User),
		tasks:   make(map[int64]domain.Task),
		sprints: make(map[int64]domain.Sprint),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func notFound(kind string, id any) error {
	return fmt.Errorf("%s %v: %w", kind, id, domain.ErrNotFound)
}

// UpsertTeam creates or renames a team.
func (s *Store) UpsertTeam(_ context.Context, id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[id] = name
	return nil
}

// UpsertUser inserts u or updates the user with the same employee id.
// An existing chat binding is preserved.
func (s *Store) UpsertUser(_ context.Context, u domain.User) (domain.User, error) {
	if strings.TrimSpace(u.EmployeeID) == "" {
		return domain.User{}, fmt.Errorf("upsert user: empty employee id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.users {
		if strings.EqualFold(existing.EmployeeID, u.EmployeeID) {
			u.ID = id
			u.ChatID = existing.ChatID
			s.users[id] = u
			return u, nil
		}
	}
	if u.ID == 0 {
		s.nextUser++
		u.ID = s.nextUser
	} else if u.ID > s.nextUser {
		s.nextUser = u.ID
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) FindUserByChatID(_ context.Context, chatID int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if chatID != 0 && u.ChatID == chatID {
			return u, nil
		}
	}
	return domain.User{}, notFound("user with chat", chatID)
}

func (s *Store) FindUserByEmployeeID(_ context.Context, employeeID string) (domain.User, error) {
	employeeID = strings.TrimSpace(employeeID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if employeeID != "" && strings.EqualFold(u.EmployeeID, employeeID) {
			return u, nil
		}
	}
	return domain.User{}, notFound("employee", employeeID)
}

// BindChatIDToUser attaches chatID to the user, detaching it from anyone else.
func (s *Store) BindChatIDToUser(_ context.Context, userID, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return notFound("user", userID)
	}
	for id, other := range s.users {
		if other.ChatID == chatID {
			other.ChatID = 0
			s.users[id] = other
		}
	}
	u.ChatID = chatID
	s.users[userID] = u
	return nil
}

func (s *Store) UnbindChat(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.ChatID == chatID {
			u.ChatID = 0
			s.users[id] = u
		}
	}
	return nil
}

func (s *Store) UserByID(_ context.Context, id int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, notFound("user", id)
	}
	return u, nil
}

// UsersByTeamID returns team members ordered by name.
func (s *Store) UsersByTeamID(_ context.Context, teamID int64) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.User
	for _, u := range s.users {
		if u.TeamID == teamID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) CreateTask(_ context.Context, t domain.Task) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.SprintID != 0 {
		if _, ok := s.sprints[t.SprintID]; !ok {
			return domain.Task{}, notFound("sprint", t.SprintID)
		}
	}
	s.nextTask++
	t.ID = s.nextTask
	if t.Status == "" {
		t.Status = domain.StatusSelected
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	s.tasks[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTask(_ context.Context, t domain.Task) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.tasks[t.ID]
	if !ok {
		return domain.Task{}, notFound("task", t.ID)
	}
	t.CreatedAt = old.CreatedAt
	s.tasks[t.ID] = t
	return t, nil
}

func (s *Store) DeleteTask(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return notFound("task", id)
	}
	delete(s.tasks, id)
	return nil
}

// CompleteTask marks the task done with the reported hours and comments.
func (s *Store) CompleteTask(_ context.Context, id int64, actualHours float64, comments string) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, notFound("task", id)
	}
	now := s.now()
	t.Status = domain.StatusDone
	t.ActualHours = actualHours
	t.Comments = comments
	t.CompletedAt = &now
	s.tasks[id] = t
	return t, nil
}

func (s *Store) TaskByID(_ context.Context, id int64) (domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, notFound("task", id)
	}
	return t, nil
}

func (s *Store) AssignTaskToSprint(_ context.Context, taskID, sprintID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return notFound("task", taskID)
	}
	if _, ok := s.sprints[sprintID]; !ok {
		return notFound("sprint", sprintID)
	}
	t.SprintID = sprintID
	s.tasks[taskID] = t
	return nil
}

func (s *Store) TasksBySprintID(_ context.Context, sprintID int64) ([]domain.Task, error) {
	return s.filterTasks(func(t domain.Task) bool { return t.SprintID == sprintID }), nil
}

// ActiveTasksByAssignee returns the user's tasks that are not done.
func (s *Store) ActiveTasksByAssignee(_ context.Context, userID int64) ([]domain.Task, error) {
	return s.filterTasks(func(t domain.Task) bool { return t.AssigneeID == userID && !t.Done() }), nil
}

func (s *Store) TasksBySprintAndAssignee(_ context.Context, sprintID, userID int64) ([]domain.Task, error) {
	return s.filterTasks(func(t domain.Task) bool { return t.SprintID == sprintID && t.AssigneeID == userID }), nil
}

func (s *Store) filterTasks(keep func(domain.Task) bool) []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Task
	for _, t := range s.tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) AllSprints(_ context.Context) ([]domain.Sprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Sprint, 0, len(s.sprints))
	for _, sp := range s.sprints {
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateSprint(_ context.Context, sp domain.Sprint) (domain.Sprint, error) {
	if sp.EndDate.Before(sp.StartDate) {
		return domain.Sprint{}, fmt.Errorf("create sprint: end %s before start %s", sp.EndDate.Format(time.DateOnly), sp.StartDate.Format(time.DateOnly))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSprint++
	sp.ID = s.nextSprint
	if sp.Status == "" {
		sp.Status = domain.SprintPlanned
	}
	s.sprints[sp.ID] = sp
	return sp, nil
}

func (s *Store) CompleteSprint(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.sprints[id]
	if !ok {
		return notFound("sprint", id)
	}
	sp.Status = domain.SprintCompleted
	s.sprints[id] = sp
	return nil
}
