package dashboard

import "time"

// Level is the severity of a user-visible notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a message for the user. The TUI shows it in the status bar;
// the CLI prints it.
type Notice struct {
	Level   Level
	Message string
	At      time.Time
}
