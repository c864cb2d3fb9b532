package session

import (
	"testing"

	"github.com/m3rciful/sprintbot/internal/domain"
)

func TestNewSessionBaseline(t *testing.T) {
	s := New(99)
	if s.Authenticated || s.User != nil || s.Active() != KindNone || s.Stage() != "" {
		t.Fatalf("unexpected baseline %+v", s)
	}
}

func TestEnterReplacesScratch(t *testing.T) {
	s := New(1)
	s.Authenticate(domain.User{ID: 5, Role: domain.RoleManager})
	s.Enter(&TaskCreation{Stage: TaskPriority, Title: "Fix bug", EstimatedHours: 3})
	s.Enter(&SprintCreation{Stage: SprintName})

	if s.Active() != KindSprintCreation {
		t.Fatalf("active = %v", s.Active())
	}
	if _, ok := s.Workflow.(*TaskCreation); ok {
		t.Fatal("task creation scratch survived")
	}
	if s.Stage() != "NAME" {
		t.Fatalf("stage = %q", s.Stage())
	}
}

func TestClearWorkflowKeepsAuthentication(t *testing.T) {
	s := New(1)
	s.Authenticate(domain.User{ID: 5})
	s.Enter(&SprintMode{View: ViewActive})
	s.LastRenderedMessageID = 77

	s.ClearWorkflow()
	if s.Active() != KindNone || s.LastRenderedMessageID != 0 {
		t.Fatalf("workflow not cleared: %+v", s)
	}
	if !s.Authenticated || s.UserID() != 5 {
		t.Fatal("authentication lost")
	}
}

func TestResetReturnsToBaseline(t *testing.T) {
	s := New(3)
	s.Authenticate(domain.User{ID: 5, Role: domain.RoleDeveloper})
	s.Enter(&TaskCompletion{TaskID: 8})
	s.Reset()
	if s.ChatID != 3 || s.Authenticated || s.User != nil || s.Workflow != nil {
		t.Fatalf("reset left %+v", s)
	}
	if s.Role() != domain.RoleEmployee {
		t.Fatalf("role = %v", s.Role())
	}
}

func TestKindNames(t *testing.T) {
	workflows := []Workflow{
		&TaskCreation{}, &TaskCompletion{}, &SprintCreation{}, &SprintMode{},
		&AssignToSprint{}, &EndSprint{}, &StartTaskWork{}, &ViewingTask{},
	}
	want := []string{
		"TASK_CREATION", "TASK_COMPLETION", "SPRINT_CREATION", "SPRINT_MODE",
		"ASSIGN_TO_SPRINT", "END_SPRINT", "START_TASK_WORK", "VIEWING_TASK",
	}
	for i, w := range workflows {
		if got := w.Kind().String(); got != want[i] {
			t.Errorf("kind %d = %s, want %s", i, got, want[i])
		}
	}
	if KindNone.String() != "NONE" {
		t.Fatal("NONE name")
	}
}

func TestStoreTurnCreatesSession(t *testing.T) {
	st := NewStore()
	err := st.Turn(12, func(s *State) error {
		if s.ChatID != 12 {
			t.Fatalf("chat id = %d", s.ChatID)
		}
		s.Authenticated = true
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	_ = st.Turn(12, func(s *State) error {
		if !s.Authenticated {
			t.Fatal("state not persisted between turns")
		}
		return nil
	})
	if st.Len() != 1 {
		t.Fatalf("len = %d", st.Len())
	}
}
