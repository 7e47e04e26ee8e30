package editor

import "time"

// Level grades a user-facing message.
type Level string

// Message levels.
const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is a short status line for the user.
type Message struct {
	Level Level
	Text  string
	At    time.Time
}

// maxMessages bounds the message log kept by a Session.
const maxMessages = 50
