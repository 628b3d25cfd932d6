package wildwatch

import "time"

// Level is the severity of a Notice shown on the control panel
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a message for the operator, eg: a failed frame read or an alert
// that was sent
type Notice struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
	// State is set when the notice reports an inference loop state change
	State string `json:"state,omitempty"`
}

// Reporter receives notices for the operator
type Reporter interface {
	Report(n Notice)
}

// NewNotice returns a notice stamped with the current time
func NewNotice(level Level, msg string) Notice {
	return Notice{Level: level, Message: msg, Time: time.Now()}
}
