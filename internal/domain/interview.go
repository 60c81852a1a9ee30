package domain

import "time"

// Sender identifies who wrote an interview message.
type Sender string

const (
	SenderUser        Sender = "USER"
	SenderInterviewer Sender = "INTERVIEWER"
)

// InterviewTemplate is a mock-interview theme the user created.
type InterviewTemplate struct {
	ID        string    `json:"id"`
	Theme     string    `json:"theme"`
	CreatedAt time.Time `json:"created_at"`
}

// TemplatePage is one page of interview templates.
type TemplatePage struct {
	Templates  []InterviewTemplate `json:"templates"`
	Page       int                 `json:"page"`
	TotalPages int                 `json:"total_pages"`
}

// InterviewMessage is one persisted interview turn.
type InterviewMessage struct {
	Sender  Sender `json:"sender"`
	Content string `json:"content"`
}

// MessagePage is a cursor-paginated slice of interview history, oldest first.
// Cursor is nil when there are no older messages.
type MessagePage struct {
	Data   []InterviewMessage `json:"data"`
	Cursor *string            `json:"cursor"`
}

// CreatedInterview is the backend's answer to a new template.
type CreatedInterview struct {
	InterviewID string `json:"interviewId"`
	Theme       string `json:"theme"`
}
