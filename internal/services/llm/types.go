package llm

import (
	"context"
	"strings"
)

// Role identifies the author of a chat turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Message is one chat turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a single chat completion call.
type Request struct {
	Model    string
	Messages []Message
}

// Usage reports token accounting for one completion.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

// Add accumulates other into u.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
}

// Total returns prompt plus completion tokens.
func (u Usage) Total() int64 {
	return u.PromptTokens + u.CompletionTokens
}

// Response is the outcome of a successful completion.
type Response struct {
	Content      string
	FinishReason string
	Usage        Usage
}

// Sampling holds the generation settings that shape a completion.
type Sampling struct {
	Temperature float64
	MaxTokens   int
}

// Sampler is implemented by backends that report their sampling settings.
type Sampler interface {
	Sampling() Sampling
}

// Backend sends exactly one completion request per Complete call. Retryable
// failures must be tagged with services.ErrTransient; backends never retry
// on their own.
type Backend interface {
	Name() string
	Complete(ctx context.Context, req Request) (Response, error)
}

// Conversation builds the ordered system, assistant, user turns. A blank
// assistant turn is omitted so zero-shot prompts carry only two messages.
func Conversation(system, assistant, user string) []Message {
	msgs := make([]Message, 0, 3)
	msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	if strings.TrimSpace(assistant) != "" {
		msgs = append(msgs, Message{Role: RoleAssistant, Content: assistant})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: user})
	return msgs
}

// Split separates the system, assistant, and user content of msgs. Multiple
// turns of the same role are joined with blank lines.
func Split(msgs []Message) (system, assistant, user string) {
	var s, a, u []string
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			s = append(s, m.Content)
		case RoleAssistant:
			a = append(a, m.Content)
		default:
			u = append(u, m.Content)
		}
	}
	return strings.Join(s, "\n\n"), strings.Join(a, "\n\n"), strings.Join(u, "\n\n")
}
