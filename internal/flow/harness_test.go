package flow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/sprintbot/core/telegram/keyboard"
	"github.com/m3rciful/sprintbot/internal/domain"
	"github.com/m3rciful/sprintbot/internal/session"
	"github.com/m3rciful/sprintbot/internal/storage/memory"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type outMsg struct {
	ChatID int64
	ID     int
	Text   string
	KB     *keyboard.Layout
	Edit   bool
	Remove bool
}

type fakeTransport struct {
	mu   sync.Mutex
	next int
	msgs []outMsg
}

func (f *fakeTransport) SendMessage(_ context.Context, chatID int64, text string, kb *keyboard.Layout) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := 100 + f.next
	f.msgs = append(f.msgs, outMsg{ChatID: chatID, ID: id, Text: text, KB: kb})
	return id, nil
}

func (f *fakeTransport) EditMessage(_ context.Context, chatID int64, messageID int, text string, kb *keyboard.Layout) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, outMsg{ChatID: chatID, ID: messageID, Text: text, KB: kb, Edit: true})
	return nil
}

func (f *fakeTransport) RemoveKeyboard(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, outMsg{ChatID: chatID, Text: text, Remove: true})
	return nil
}

func (f *fakeTransport) last(t *testing.T) outMsg {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.msgs) == 0 {
		t.Fatal("nothing was sent")
	}
	return f.msgs[len(f.msgs)-1]
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

// animatingTransport records loading animations.
type animatingTransport struct {
	fakeTransport
	starts, stops int
}

func (a *animatingTransport) Animate(_ context.Context, _ int64, _ int, _ []string, _ time.Duration) func() {
	a.mu.Lock()
	a.starts++
	a.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			a.stops++
			a.mu.Unlock()
		})
	}
}

// recordingFacade counts mutating calls on top of the in-memory store.
type recordingFacade struct {
	*memory.Store

	mu        sync.Mutex
	calls     map[string]int
	createErr error
	lookupErr error
	panicOnID int64
}

func (f *recordingFacade) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *recordingFacade) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *recordingFacade) FindUserByEmployeeID(ctx context.Context, employeeID string) (domain.User, error) {
	if f.lookupErr != nil {
		return domain.User{}, f.lookupErr
	}
	return f.Store.FindUserByEmployeeID(ctx, employeeID)
}

func (f *recordingFacade) BindChatIDToUser(ctx context.Context, userID, chatID int64) error {
	f.record("bind")
	return f.Store.BindChatIDToUser(ctx, userID, chatID)
}

func (f *recordingFacade) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	f.record("create_task")
	if f.createErr != nil {
		return domain.Task{}, f.createErr
	}
	return f.Store.CreateTask(ctx, t)
}

func (f *recordingFacade) UpdateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	f.record("update_task")
	return f.Store.UpdateTask(ctx, t)
}

func (f *recordingFacade) DeleteTask(ctx context.Context, id int64) error {
	f.record("delete_task")
	return f.Store.DeleteTask(ctx, id)
}

func (f *recordingFacade) CompleteTask(ctx context.Context, id int64, hours float64, comments string) (domain.Task, error) {
	f.record("complete_task")
	return f.Store.CompleteTask(ctx, id, hours, comments)
}

func (f *recordingFacade) TaskByID(ctx context.Context, id int64) (domain.Task, error) {
	if f.panicOnID != 0 && id == f.panicOnID {
		panic("task lookup exploded")
	}
	return f.Store.TaskByID(ctx, id)
}

func (f *recordingFacade) CreateSprint(ctx context.Context, s domain.Sprint) (domain.Sprint, error) {
	f.record("create_sprint")
	return f.Store.CreateSprint(ctx, s)
}

func (f *recordingFacade) CompleteSprint(ctx context.Context, id int64) error {
	f.record("complete_sprint")
	return f.Store.CompleteSprint(ctx, id)
}

func (f *recordingFacade) AssignTaskToSprint(ctx context.Context, taskID, sprintID int64) error {
	f.record("assign")
	return f.Store.AssignTaskToSprint(ctx, taskID, sprintID)
}

// Fixture users. Chat ids equal user ids in these tests.
const (
	eve int64 = 1 // employee, team 1
	dan int64 = 2 // developer, team 1
	mia int64 = 3 // manager, team 1
	ola int64 = 4 // developer, team 2
)

var employeeIDs = map[int64]string{eve: "E123", dan: "D200", mia: "M300", ola: "D400"}

type harness struct {
	t        *testing.T
	ctx      context.Context
	d        *Dispatcher
	out      *fakeTransport
	svc      *recordingFacade
	sessions *session.Store
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, &fakeTransport{})
}

func newHarnessWith(t *testing.T, out Transport) *harness {
	t.Helper()
	ctx := context.Background()
	store := memory.New(memory.WithClock(func() time.Time { return testNow }))
	_ = store.UpsertTeam(ctx, 1, "Core")
	_ = store.UpsertTeam(ctx, 2, "Mobile")
	for _, u := range []domain.User{
		{ID: eve, EmployeeID: "E123", Name: "Eve", Role: domain.RoleEmployee, TeamID: 1},
		{ID: dan, EmployeeID: "D200", Name: "Dan", Role: domain.RoleDeveloper, TeamID: 1},
		{ID: mia, EmployeeID: "M300", Name: "Mia", Role: domain.RoleManager, TeamID: 1},
		{ID: ola, EmployeeID: "D400", Name: "Ola", Role: domain.RoleDeveloper, TeamID: 2},
	} {
		if _, err := store.UpsertUser(ctx, u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	svc := &recordingFacade{Store: store, calls: make(map[string]int)}
	sessions := session.NewStore()
	d := New(sessions, svc, out, WithClock(func() time.Time { return testNow }), WithLocation(time.UTC))

	h := &harness{t: t, ctx: ctx, d: d, svc: svc, sessions: sessions}
	switch o := out.(type) {
	case *fakeTransport:
		h.out = o
	case *animatingTransport:
		h.out = &o.fakeTransport
	}
	return h
}

func (h *harness) text(chatID int64, text string) {
	h.t.Helper()
	if err := h.d.HandleText(h.ctx, chatID, text); err != nil {
		h.t.Fatalf("HandleText(%q): %v", text, err)
	}
}

func (h *harness) press(chatID int64, payload string, messageID int) {
	h.t.Helper()
	if err := h.d.HandleButton(h.ctx, chatID, payload, messageID); err != nil {
		h.t.Fatalf("HandleButton(%q): %v", payload, err)
	}
}

func (h *harness) signIn(chatID int64) {
	h.t.Helper()
	h.text(chatID, employeeIDs[chatID])
	if st := h.state(chatID); !st.Authenticated {
		h.t.Fatalf("chat %d did not authenticate", chatID)
	}
}

func (h *harness) state(chatID int64) *session.State {
	var cp session.State
	_ = h.sessions.Turn(chatID, func(s *session.State) error {
		cp = *s
		return nil
	})
	return &cp
}

func (h *harness) lastText() string {
	h.t.Helper()
	return h.out.last(h.t).Text
}

func (h *harness) seedTask(t domain.Task) domain.Task {
	h.t.Helper()
	created, err := h.svc.Store.CreateTask(h.ctx, t)
	if err != nil {
		h.t.Fatalf("seed task: %v", err)
	}
	return created
}

func (h *harness) seedSprint(s domain.Sprint) domain.Sprint {
	h.t.Helper()
	created, err := h.svc.Store.CreateSprint(h.ctx, s)
	if err != nil {
		h.t.Fatalf("seed sprint: %v", err)
	}
	return created
}
