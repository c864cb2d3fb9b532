package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m3rciful/sprintbot/internal/domain"
)

var fixedNow = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func seeded(t *testing.T) (*Store, domain.User, domain.User) {
	t.Helper()
	s := New(WithClock(func() time.Time { return fixedNow }))
	ctx := context.Background()
	if err := s.UpsertTeam(ctx, 1, "Core"); err != nil {
		t.Fatal(err)
	}
	dev, err := s.UpsertUser(ctx, domain.User{EmployeeID: "E123", Name: "Dana", Role: domain.RoleDeveloper, TeamID: 1})
	if err != nil {
		t.Fatal(err)
	}
	mgr, err := s.UpsertUser(ctx, domain.User{EmployeeID: "M1", Name: "Alex", Role: domain.RoleManager, TeamID: 1})
	if err != nil {
		t.Fatal(err)
	}
	return s, dev, mgr
}

func TestBindAndFindUser(t *testing.T) {
	s, dev, mgr := seeded(t)
	ctx := context.Background()

	if _, err := s.FindUserByChatID(ctx, 77); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unbound chat err = %v", err)
	}
	got, err := s.FindUserByEmployeeID(ctx, " e123 ")
	if err != nil || got.ID != dev.ID {
		t.Fatalf("find by employee = %+v, %v", got, err)
	}
	if err := s.BindChatIDToUser(ctx, dev.ID, 77); err != nil {
		t.Fatal(err)
	}
	// Rebinding the chat to another user detaches the first one.
	if err := s.BindChatIDToUser(ctx, mgr.ID, 77); err != nil {
		t.Fatal(err)
	}
	got, err = s.FindUserByChatID(ctx, 77)
	if err != nil || got.ID != mgr.ID {
		t.Fatalf("find by chat = %+v, %v", got, err)
	}
	if err := s.UnbindChat(ctx, 77); err != nil {
		t.Fatal(err)
	}
	if _, err := s.FindUserByChatID(ctx, 77); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("after unbind err = %v", err)
	}
	if err := s.BindChatIDToUser(ctx, 999, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("bind unknown user err = %v", err)
	}
}

func TestUpsertUserKeepsChatBinding(t *testing.T) {
	s, dev, _ := seeded(t)
	ctx := context.Background()
	_ = s.BindChatIDToUser(ctx, dev.ID, 5)
	again, err := s.UpsertUser(ctx, domain.User{EmployeeID: "E123", Name: "Dana R.", Role: domain.RoleDeveloper, TeamID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != dev.ID || again.ChatID != 5 || again.Name != "Dana R." {
		t.Fatalf("upsert = %+v", again)
	}
	if _, err := s.UpsertUser(ctx, domain.User{}); err == nil {
		t.Fatal("expected error for empty employee id")
	}
}

func TestTaskLifecycle(t *testing.T) {
	s, dev, _ := seeded(t)
	ctx := context.Background()

	task, err := s.CreateTask(ctx, domain.Task{Title: "Fix bug", AssigneeID: dev.ID, EstimatedHours: 3})
	if err != nil {
		t.Fatal(err)
	}
	if task.ID == 0 || task.Status != domain.StatusSelected || !task.CreatedAt.Equal(fixedNow) {
		t.Fatalf("created = %+v", task)
	}
	active, _ := s.ActiveTasksByAssignee(ctx, dev.ID)
	if len(active) != 1 {
		t.Fatalf("active = %+v", active)
	}

	done, err := s.CompleteTask(ctx, task.ID, 2.5, "ok")
	if err != nil {
		t.Fatal(err)
	}
	if !done.Done() || done.ActualHours != 2.5 || done.CompletedAt == nil {
		t.Fatalf("completed = %+v", done)
	}
	active, _ = s.ActiveTasksByAssignee(ctx, dev.ID)
	if len(active) != 0 {
		t.Fatalf("done tasks must not be active: %+v", active)
	}

	if err := s.DeleteTask(ctx, task.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.TaskByID(ctx, task.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("deleted task err = %v", err)
	}
	if _, err := s.UpdateTask(ctx, task); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("update deleted err = %v", err)
	}
}

func TestSprints(t *testing.T) {
	s, dev, _ := seeded(t)
	ctx := context.Background()

	sp, err := s.CreateSprint(ctx, domain.Sprint{
		Name:      "S1",
		StartDate: fixedNow,
		EndDate:   fixedNow.Add(14 * 24 * time.Hour),
		Status:    domain.SprintActive,
		TeamID:    1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateSprint(ctx, domain.Sprint{StartDate: fixedNow, EndDate: fixedNow.Add(-time.Hour)}); err == nil {
		t.Fatal("expected error for inverted dates")
	}

	task, _ := s.CreateTask(ctx, domain.Task{Title: "t", AssigneeID: dev.ID})
	if err := s.AssignTaskToSprint(ctx, task.ID, sp.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.AssignTaskToSprint(ctx, task.ID, 42); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("assign unknown sprint err = %v", err)
	}
	bySprint, _ := s.TasksBySprintID(ctx, sp.ID)
	mine, _ := s.TasksBySprintAndAssignee(ctx, sp.ID, dev.ID)
	if len(bySprint) != 1 || len(mine) != 1 {
		t.Fatalf("bySprint=%d mine=%d", len(bySprint), len(mine))
	}

	if err := s.CompleteSprint(ctx, sp.ID); err != nil {
		t.Fatal(err)
	}
	all, _ := s.AllSprints(ctx)
	if len(all) != 1 || all[0].Status != domain.SprintCompleted {
		t.Fatalf("sprints = %+v", all)
	}
}

func TestUsersByTeamSorted(t *testing.T) {
	s, _, _ := seeded(t)
	users, err := s.UsersByTeamID(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 || users[0].Name != "Alex" {
		t.Fatalf("users = %+v", users)
	}
}
