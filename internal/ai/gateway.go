package ai

import (
	"context"
)

// Attachment is a document handed to the vision model alongside the prompt.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// Message is one response message from the model.
type Message struct {
	Content string
}

// Gateway is a single round-trip, vision-capable chat completion. The
// extraction worker treats it as a black box: prompt and file in, text out.
type Gateway interface {
	Chat(ctx context.Context, prompt string, attachments []Attachment) ([]Message, error)
}
