package msg

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultNoticeDuration is how long a notice stays in the status bar.
const DefaultNoticeDuration = 4 * time.Second

// NoticeMsg displays a temporary message in the status bar.
type NoticeMsg struct {
	Message  string
	Duration time.Duration
	IsError  bool // true for error notices (red), false for info (green)
}

// ShowNotice returns a command to show a notice.
func ShowNotice(message string, duration time.Duration) tea.Cmd {
	return func() tea.Msg {
		return NoticeMsg{
			Message:  message,
			Duration: duration,
		}
	}
}

// ShowError returns a command to show an error notice.
func ShowError(message string) tea.Cmd {
	return func() tea.Msg {
		return NoticeMsg{
			Message:  message,
			Duration: DefaultNoticeDuration,
			IsError:  true,
		}
	}
}

// NoticeExpiredMsg clears a notice once its duration has elapsed. Seq
// guards against clearing a newer notice.
type NoticeExpiredMsg struct {
	Seq int
}
