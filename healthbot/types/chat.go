// healthbot/types/chat.go
package types

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest carries a nil SessionID to ask the server for a new session.
type ChatRequest struct {
	Message   string  `json:"message"`
	SessionID *string `json:"session_id"`
}

type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`
}

// SessionSummary is one row of the sessions sidebar.
type SessionSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

type ChatSession struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Messages []ChatMessage `json:"messages"`
}

// ThreadEntry is one bubble of the visible thread. Pending marks the typing
// placeholder shown while a reply is outstanding.
type ThreadEntry struct {
	Message ChatMessage
	Pending bool
}
