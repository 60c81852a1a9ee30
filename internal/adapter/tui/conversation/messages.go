// Package conversation is the Bubble Tea view for streamed coach replies:
// the roadmap assistant chat, step guides and mock interviews.
package conversation

// Every stream message carries the turn (Gen) it belongs to and the session
// that produced it. Messages from an older turn or another session are dropped.

// turnStartedMsg reports the outcome of StreamManager.Start for a turn.
type turnStartedMsg struct {
	Gen       uint64
	SessionID string
	Err       error
}

// StreamUpdateMsg carries the full accumulated text of the current reply.
type StreamUpdateMsg struct {
	Gen       uint64
	SessionID string
	Text      string
}

// StreamDoneMsg signals that a reply finished normally.
type StreamDoneMsg struct {
	Gen       uint64
	SessionID string
	Text      string
}

// StreamFailedMsg signals that a reply's transport failed mid-stream.
type StreamFailedMsg struct {
	Gen       uint64
	SessionID string
	Err       error
}

// QuitMsg asks the program to exit.
type QuitMsg struct{}
