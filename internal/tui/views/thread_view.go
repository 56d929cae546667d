package views

import (
	"fmt"

	"github.com/intransparency/msgcenter/internal/store"
	"github.com/rivo/tview"
)

// ThreadView displays the messages of the active conversation.
type ThreadView struct {
	*tview.TextView
}

// NewThreadView creates the thread view.
func NewThreadView() *ThreadView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true).SetTitle(" Messages ")

	return &ThreadView{TextView: tv}
}

// SetConversationTitle updates the border title.
func (tv *ThreadView) SetConversationTitle(title string) {
	tv.SetTitle(fmt.Sprintf(" %s ", title))
}

// Update renders a thread snapshot, oldest first.
func (tv *ThreadView) Update(msgs []store.Message) {
	tv.Clear()

	for _, m := range msgs {
		sender := m.SenderName
		if sender == "" {
			sender = m.SenderID
		}
		if m.FromMe {
			sender = "You"
		} else if m.SenderRole != "" {
			sender = fmt.Sprintf("%s [%s]", sender, m.SenderRole)
		}

		marker := ""
		switch m.Delivery {
		case store.DeliveryPending:
			marker = " [::d]sending...[-:-:-]"
		case store.DeliveryFailed:
			marker = " [red]failed - press r to retry[-]"
		}

		ts := formatTimestamp(m.Timestamp)
		line := fmt.Sprintf("[::b]%s[-:-:-] [::d]%s[-:-:-]%s\n%s\n\n", sender, ts, marker, m.Body)
		_, _ = fmt.Fprint(tv, line)
	}

	tv.ScrollToEnd()
}
