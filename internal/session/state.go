// Package session models the per-chat conversation state and the store that
// owns it.
package session

import "github.com/m3rciful/sprintbot/internal/domain"

// State is the conversation record for one chat.
type State struct {
	ChatID        int64
	Authenticated bool
	User          *domain.User
	// Workflow is nil when no workflow is active.
	Workflow Workflow
	// LastRenderedMessageID is the bot message edited in place by button menus.
	LastRenderedMessageID int
}

// New returns the unauthenticated baseline for chatID.
func New(chatID int64) *State {
	return &State{ChatID: chatID}
}

// Active reports the kind of the running workflow.
func (s *State) Active() Kind {
	if s.Workflow == nil {
		return KindNone
	}
	return s.Workflow.Kind()
}

// Stage returns the current stage name or an empty string.
func (s *State) Stage() string {
	if s.Workflow == nil {
		return ""
	}
	return s.Workflow.StageName()
}

// Enter makes w the only active workflow.
func (s *State) Enter(w Workflow) {
	s.Workflow = w
}

// ClearWorkflow ends the running workflow and drops its scratch data and the
// tracked message. Authentication is untouched.
func (s *State) ClearWorkflow() {
	s.Workflow = nil
	s.LastRenderedMessageID = 0
}

// Authenticate binds u to the session.
func (s *State) Authenticate(u domain.User) {
	s.Authenticated = true
	s.User = &u
}

// Reset returns the session to the unauthenticated baseline.
func (s *State) Reset() {
	*s = State{ChatID: s.ChatID}
}

// Role returns the bound user's role, or employee when unbound.
func (s *State) Role() domain.Role {
	if s.User == nil {
		return domain.RoleEmployee
	}
	return s.User.Role
}

// UserID returns the bound user's id or zero.
func (s *State) UserID() int64 {
	if s.User == nil {
		return 0
	}
	return s.User.ID
}
