package router

import "context"

// Conversation is the application side of text and button routing. Each call
// handles one inbound event for chatID.
type Conversation interface {
	HandleText(ctx context.Context, chatID int64, text string) error
	HandleButton(ctx context.Context, chatID int64, payload string, messageID int) error
}
