package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/sprintbot/core/logger"
	"github.com/m3rciful/sprintbot/core/telegram/format"
	"github.com/m3rciful/sprintbot/internal/domain"
	"github.com/m3rciful/sprintbot/internal/session"
)

func (d *Dispatcher) greet(ctx context.Context, st *session.State) error {
	logger.Info(ctx, logger.CompFlow, "auth.greet", slog.Int64("chat_id", st.ChatID))
	return d.send(ctx, st, msgWelcome, nil)
}

// attempt signs the chat in. A chat already bound to a user is welcomed back
// without binding again.
func (d *Dispatcher) attempt(ctx context.Context, st *session.State, employeeID string) error {
	u, err := d.svc.FindUserByChatID(ctx, st.ChatID)
	switch {
	case err == nil:
		st.Authenticate(u)
		logger.Info(ctx, logger.CompFlow, "auth.returning",
			slog.Int64("chat_id", st.ChatID),
			slog.Int64("user_id", u.ID),
		)
		return d.send(ctx, st, fmt.Sprintf(msgWelcomeBack, format.MD(u.Name)), mainMenu(st))
	case !errors.Is(err, domain.ErrNotFound):
		return d.authUnavailable(ctx, st, "find_by_chat", err)
	}

	if employeeID == "" {
		return d.send(ctx, st, msgAuthRetry, nil)
	}
	u, err = d.svc.FindUserByEmployeeID(ctx, employeeID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Info(ctx, logger.CompFlow, "auth.unknown", slog.Int64("chat_id", st.ChatID))
		return d.send(ctx, st, msgAuthRetry, nil)
	}
	if err != nil {
		return d.authUnavailable(ctx, st, "find_by_employee", err)
	}
	if err := d.svc.BindChatIDToUser(ctx, u.ID, st.ChatID); err != nil {
		return d.authUnavailable(ctx, st, "bind_chat", err)
	}
	u.ChatID = st.ChatID
	st.Authenticate(u)
	logger.Info(ctx, logger.CompFlow, "auth.success",
		slog.Int64("chat_id", st.ChatID),
		slog.Int64("user_id", u.ID),
		slog.String("role", string(u.Role)),
	)
	return d.send(ctx, st, fmt.Sprintf(msgSignedIn, format.MD(u.Name), u.Role), mainMenu(st))
}

func (d *Dispatcher) authUnavailable(ctx context.Context, st *session.State, op string, err error) error {
	logger.Error(ctx, logger.CompFlow, "auth.fail",
		slog.Int64("chat_id", st.ChatID),
		slog.String("op", op),
		slog.String("err", err.Error()),
	)
	return d.send(ctx, st, msgAuthDown, nil)
}

// logout unbinds the chat and drops the session back to the baseline.
func (d *Dispatcher) logout(ctx context.Context, st *session.State) error {
	if err := d.svc.UnbindChat(ctx, st.ChatID); err != nil {
		return d.domainFailure(ctx, st, "unbind_chat", err)
	}
	logger.Info(ctx, logger.CompFlow, "auth.logout",
		slog.Int64("chat_id", st.ChatID),
		slog.Int64("user_id", st.UserID()),
	)
	st.Reset()
	return d.out.RemoveKeyboard(ctx, st.ChatID, msgLoggedOut)
}
