package views

import (
	"fmt"
	"time"

	"github.com/intransparency/msgcenter/internal/store"
	"github.com/rivo/tview"
)

// ConversationList is the conversation overview table, most recent
// activity first.
type ConversationList struct {
	*tview.Table
	convs      []store.Conversation
	selfID     string
	selectedFn func() (int, int)
}

// NewConversationList creates the conversation table.
func NewConversationList() *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBorder(true).SetTitle(" Conversations ")

	cl := &ConversationList{Table: table}
	cl.selectedFn = table.GetSelection
	return cl
}

// Update refreshes the list with a store snapshot.
func (cl *ConversationList) Update(convs []store.Conversation, selfID string) {
	cl.convs = convs
	cl.selfID = selfID
	cl.Clear()

	cl.SetCell(0, 0, tview.NewTableCell(" With").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	cl.SetCell(0, 1, tview.NewTableCell(" Last Message").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	cl.SetCell(0, 2, tview.NewTableCell(" Time").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))

	for i, conv := range convs {
		row := i + 1
		name := conv.Title(selfID)
		if tag := roleTag(&conv, selfID); tag != "" {
			name = fmt.Sprintf("%s [%s]", name, tag)
		}
		if conv.UnreadCount > 0 {
			name = fmt.Sprintf("* %s (%d)", name, conv.UnreadCount)
		}

		preview := ""
		if conv.LastMessage != nil {
			preview = conv.LastMessage.Body
		}

		cl.SetCell(row, 0, tview.NewTableCell(" "+name).SetMaxWidth(34).SetExpansion(1))
		cl.SetCell(row, 1, tview.NewTableCell(" "+preview).SetMaxWidth(40).SetExpansion(2))
		cl.SetCell(row, 2, tview.NewTableCell(" "+formatTimestamp(conv.LastActivity)).SetMaxWidth(12))
	}
}

// SelectedConversation returns the id of the highlighted conversation.
func (cl *ConversationList) SelectedConversation() string {
	row, _ := cl.selectedFn()
	idx := row - 1 // account for header
	if idx >= 0 && idx < len(cl.convs) {
		return cl.convs[idx].ID
	}
	return ""
}

// roleTag returns the role of the first participant other than the
// local user, which is the useful marker for direct conversations.
func roleTag(conv *store.Conversation, selfID string) string {
	for _, p := range conv.Participants {
		if p.ID != selfID {
			return p.Role
		}
	}
	return ""
}

func formatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms)
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
