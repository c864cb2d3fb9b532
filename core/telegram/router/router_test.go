package router

import (
	"context"
	"errors"
	"fmt"
	"testing"

	tg "github.com/m3rciful/sprintbot/core/telegram"
	"github.com/m3rciful/sprintbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

type recordingConversation struct {
	chatID int64
	text   string
	err    error
}

func (r *recordingConversation) HandleText(_ context.Context, chatID int64, text string) error {
	r.chatID, r.text = chatID, text
	return r.err
}

func (r *recordingConversation) HandleButton(context.Context, int64, string, int) error {
	return nil
}

func textContext(text string) tele.Context {
	return tele.NewContext(nil, tele.Update{
		ID: 1,
		Message: &tele.Message{
			Text:   text,
			Sender: &tele.User{ID: 9},
			Chat:   &tele.Chat{ID: 9},
		},
	})
}

func TestTextRouteForwardsToConversation(t *testing.T) {
	conv := &recordingConversation{}
	routes := TextRoutes(conv, TextOptions{})
	if routes[0].Endpoint != tele.OnText {
		t.Fatalf("first route = %v", routes[0].Endpoint)
	}
	if err := routes[0].Handler(textContext("/newtask")); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if conv.chatID != 9 || conv.text != "/newtask" {
		t.Fatalf("conversation got %d %q", conv.chatID, conv.text)
	}
}

func TestTextRoutePropagatesError(t *testing.T) {
	conv := &recordingConversation{err: errors.New("boom")}
	routes := TextRoutes(conv, TextOptions{})
	if err := routes[0].Handler(textContext("hi")); err == nil {
		t.Fatal("expected error")
	}
}

func TestCommandRoutesSkipMenuOnly(t *testing.T) {
	reg := tg.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Description: "Main menu"})
	reg.RegisterCommand("/stats", commands.Command{
		Description: "Stats",
		AdminOnly:   true,
		Handler:     func(tele.Context) error { return nil },
	})
	routes := CommandRoutes(reg, CommandRouteOptions{AdminID: 1})
	if len(routes) != 1 || routes[0].Endpoint != "/stats" {
		t.Fatalf("routes = %+v", routes)
	}
}

func TestHandlerName(t *testing.T) {
	if got := handlerName(" /New Task "); got != "new_task" {
		t.Fatalf("got %q", got)
	}
	if got := handlerName(""); got != "unknown" {
		t.Fatalf("got %q", got)
	}
}

type codedErr struct{}

func (codedErr) Error() string { return "coded" }
func (codedErr) Code() string  { return "task not found" }

type plainErr struct{}

func (*plainErr) Error() string { return "plain" }

func TestErrorCode(t *testing.T) {
	if got := errorCode(fmt.Errorf("wrap: %w", codedErr{})); got != "TASK_NOT_FOUND" {
		t.Fatalf("coded = %q", got)
	}
	if got := errorCode(fmt.Errorf("wrap: %w", &plainErr{})); got != "PLAINERR" {
		t.Fatalf("plain = %q", got)
	}
}
