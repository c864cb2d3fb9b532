package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/sprintbot/core/logger"
	"github.com/m3rciful/sprintbot/core/telegram/callbacks"
	"github.com/m3rciful/sprintbot/core/telegram/format"
	"github.com/m3rciful/sprintbot/core/telegram/helpers"
	"github.com/m3rciful/sprintbot/internal/domain"
	"github.com/m3rciful/sprintbot/internal/session"
)

func (d *Dispatcher) startSprintCreation(ctx context.Context, st *session.State) error {
	if !st.User.IsManager() {
		logger.Info(ctx, logger.CompFlow, "sprint.create_forbidden", slog.Int64("chat_id", st.ChatID))
		return d.send(ctx, st, msgSprintManager, mainMenu(st))
	}
	d.enter(ctx, st, &session.SprintCreation{Stage: session.SprintName})
	return d.send(ctx, st, msgSprintName, cancelKeyboard())
}

func (d *Dispatcher) sprintCreationInput(ctx context.Context, st *session.State, w *session.SprintCreation, text string) error {
	if isCancel(text) {
		d.closePicker(ctx, st, w, msgSprintCancelled)
		return d.cancelWorkflow(ctx, st, msgSprintCancelled)
	}

	switch w.Stage {
	case session.SprintName:
		if text == "" {
			return d.send(ctx, st, msgSprintBadName, nil)
		}
		w.Name = text
		w.Stage = session.SprintDescription
		return d.send(ctx, st, msgSprintDesc, nil)

	case session.SprintDescription:
		w.Description = text
		w.Stage = session.SprintStartDate
		return d.askDate(ctx, st, w, d.today())

	case session.SprintStartDate, session.SprintEndDate:
		day, ok := helpers.ParseFlexibleDate(text, d.loc)
		if !ok {
			return d.send(ctx, st, msgSprintBadDate, nil)
		}
		return d.acceptDate(ctx, st, w, day)

	case session.SprintConfirmation:
		if !strings.EqualFold(text, confirmCreateSprint) {
			return d.cancelWorkflow(ctx, st, msgSprintCancelled)
		}
		return d.createSprint(ctx, st, w)
	}
	return fmt.Errorf("sprint creation: unexpected stage %v", w.Stage)
}

// acceptDate stores day for the current date stage. An end date before the
// start date keeps the stage.
func (d *Dispatcher) acceptDate(ctx context.Context, st *session.State, w *session.SprintCreation, day time.Time) error {
	day = domain.StartOfDay(day.In(d.loc))
	if w.Stage == session.SprintStartDate {
		w.StartDate = day
		w.Stage = session.SprintEndDate
		d.closePicker(ctx, st, w, "📅 Start date: "+day.Format(displayDate))
		return d.askDate(ctx, st, w, day)
	}
	if day.Before(w.StartDate) {
		return d.send(ctx, st, fmt.Sprintf(msgSprintEndBefore, w.StartDate.Format(displayDate)), nil)
	}
	w.EndDate = day
	w.Stage = session.SprintConfirmation
	d.closePicker(ctx, st, w, "📅 End date: "+day.Format(displayDate))
	return d.send(ctx, st, sprintCreationSummary(w), confirmKeyboard(confirmCreateSprint))
}

func (d *Dispatcher) askDate(ctx context.Context, st *session.State, w *session.SprintCreation, from time.Time) error {
	id, err := d.out.SendMessage(ctx, st.ChatID, datePrompt(w), datePicker(from, d.today()))
	if err != nil {
		return err
	}
	w.PickerMessageID = id
	return nil
}

// closePicker strips the buttons from the picker message.
func (d *Dispatcher) closePicker(ctx context.Context, st *session.State, w *session.SprintCreation, text string) {
	if w.PickerMessageID == 0 {
		return
	}
	if err := d.out.EditMessage(ctx, st.ChatID, w.PickerMessageID, text, nil); err != nil {
		logger.Warn(ctx, logger.CompFlow, "picker.close_failed",
			slog.Int64("chat_id", st.ChatID),
			slog.String("err", err.Error()),
		)
	}
	w.PickerMessageID = 0
}

func (d *Dispatcher) dateButton(ctx context.Context, st *session.State, p callbacks.Payload, messageID int) error {
	w, ok := st.Workflow.(*session.SprintCreation)
	if !ok || (w.Stage != session.SprintStartDate && w.Stage != session.SprintEndDate) || w.PickerMessageID != messageID {
		if messageID > 0 {
			return d.out.EditMessage(ctx, st.ChatID, messageID, msgPickerExpired, nil)
		}
		return d.send(ctx, st, msgPickerExpired, nil)
	}

	switch p.Action {
	case "pick":
		day, err := time.ParseInLocation(payloadDate, p.Param(0), d.loc)
		if err != nil {
			return d.unsupported(ctx, st, p.Raw)
		}
		return d.acceptDate(ctx, st, w, day)
	case "page":
		from, err := time.ParseInLocation(payloadDate, p.Param(0), d.loc)
		if err != nil {
			return d.unsupported(ctx, st, p.Raw)
		}
		return d.out.EditMessage(ctx, st.ChatID, messageID, datePrompt(w), datePicker(from, d.today()))
	case "cancel":
		d.closePicker(ctx, st, w, msgSprintCancelled)
		return d.cancelWorkflow(ctx, st, msgSprintCancelled)
	}
	return d.unsupported(ctx, st, p.Raw)
}

func (d *Dispatcher) createSprint(ctx context.Context, st *session.State, w *session.SprintCreation) error {
	sp, err := d.svc.CreateSprint(ctx, domain.Sprint{
		Name:        w.Name,
		Description: w.Description,
		StartDate:   domain.StartOfDay(w.StartDate),
		EndDate:     domain.EndOfDay(w.EndDate),
		Status:      domain.SprintActive,
		TeamID:      st.User.TeamID,
	})
	if err != nil {
		return d.domainFailure(ctx, st, "create_sprint", err)
	}
	logger.Info(ctx, logger.CompFlow, "sprint.created",
		slog.Int64("chat_id", st.ChatID),
		slog.Int64("sprint_id", sp.ID),
	)
	st.ClearWorkflow()
	return d.send(ctx, st, msgSprintCreated+"\n\n"+sprintHeader(sp), mainMenu(st))
}

func datePrompt(w *session.SprintCreation) string {
	if w.Stage == session.SprintEndDate {
		return msgSprintEnd
	}
	return msgSprintStart
}

func sprintCreationSummary(w *session.SprintCreation) string {
	var b strings.Builder
	b.WriteString("🏁 *New sprint*\n\n")
	fmt.Fprintf(&b, "*Name:* %s\n", format.MD(w.Name))
	if w.Description != "" {
		fmt.Fprintf(&b, "*Description:* %s\n", format.MD(w.Description))
	}
	fmt.Fprintf(&b, "*Dates:* %s - %s\n\n", w.StartDate.Format(displayDate), w.EndDate.Format(displayDate))
	b.WriteString("Create this sprint?")
	return b.String()
}
