package views

import (
	"fmt"
	"time"

	"github.com/intransparency/msgcenter/internal/status"
	"github.com/rivo/tview"
)

// StatusBar displays the connection indicator, the total unread badge
// and transient flash messages.
type StatusBar struct {
	*tview.TextView
	user     string
	state    status.State
	attempts int
	unread   int
	flash    string
}

// NewStatusBar creates a new status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv, state: status.Connecting}
}

// SetUser updates the user display.
func (sb *StatusBar) SetUser(name string) {
	sb.user = name
	sb.render()
}

// SetConnState updates the connection indicator.
func (sb *StatusBar) SetConnState(s status.State, attempts int) {
	sb.state = s
	sb.attempts = attempts
	sb.render()
}

// SetUnread updates the total unread badge.
func (sb *StatusBar) SetUnread(n int) {
	sb.unread = n
	sb.render()
}

// SetFlash sets a temporary message.
func (sb *StatusBar) SetFlash(msg string) {
	sb.flash = msg
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	indicator := ""
	switch sb.state {
	case status.Open:
		indicator = "[green]o online[-]"
	case status.Connecting:
		indicator = "[yellow]o connecting[-]"
	case status.Reconnecting:
		indicator = fmt.Sprintf("[yellow]o reconnecting (%d)[-]", sb.attempts)
	case status.Closed:
		indicator = "[red]o offline[-]"
	}

	badge := ""
	if sb.unread > 0 {
		badge = fmt.Sprintf(" | [red]%d unread[-]", sb.unread)
	}

	clock := time.Now().Format("15:04")

	line := fmt.Sprintf(" [::b]%s[-:-:-] | %s%s | %s", sb.user, indicator, badge, clock)
	if sb.flash != "" {
		line += fmt.Sprintf(" | [yellow]%s[-]", sb.flash)
	}

	_, _ = fmt.Fprint(sb, line)
}
