package models

// Role of a message author in a thread.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a remote thread.
type Message struct {
	ID        string `json:"id"`
	ThreadID  string `json:"-"`
	Role      Role   `json:"sentBy"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
}

// Thread is the transcript returned to clients.
type Thread struct {
	ID        string    `json:"id"`
	CreatedAt int64     `json:"createdAt"`
	Messages  []Message `json:"messages"`
}

// LastAssistantMessage returns the newest message written by the assistant.
func (t *Thread) LastAssistantMessage() (Message, bool) {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].Role == RoleAssistant {
			return t.Messages[i], true
		}
	}
	return Message{}, false
}
