// Package tui is the visible message-center widget. It renders only
// from store snapshots and mutates only through store operations.
package tui

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/intransparency/msgcenter/internal/bus"
	"github.com/intransparency/msgcenter/internal/channel"
	"github.com/intransparency/msgcenter/internal/status"
	"github.com/intransparency/msgcenter/internal/store"
	"github.com/intransparency/msgcenter/internal/tui/keys"
	"github.com/intransparency/msgcenter/internal/tui/model"
	"github.com/intransparency/msgcenter/internal/tui/views"
	"github.com/rivo/tview"
)

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	pages    *tview.Pages
	store    *store.Store
	channel  *channel.Channel
	bus      *bus.Bus
	registry *keys.Registry
	flash    model.Flash

	statusBar  *views.StatusBar
	convList   *views.ConversationList
	threadView *views.ThreadView
	composer   *views.Composer

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(st *store.Store, ch *channel.Channel, b *bus.Bus, userName string) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:        tview.NewApplication(),
		pages:      tview.NewPages(),
		store:      st,
		channel:    ch,
		bus:        b,
		registry:   keys.NewRegistry(),
		statusBar:  views.NewStatusBar(),
		convList:   views.NewConversationList(),
		threadView: views.NewThreadView(),
		composer:   views.NewComposer(),
		ctx:        ctx,
		cancel:     cancel,
	}

	a.statusBar.SetUser(userName)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("quit", &keys.Action{
		Rune: 'q', Key: tcell.KeyRune,
		Description: "q:quit", Visible: true,
		Handler: func() { a.app.Stop() },
	})
	a.registry.AddView("thread", "retry", &keys.Action{
		Rune: 'r', Key: tcell.KeyRune,
		Description: "r:retry failed", Visible: true,
		Handler: func() { a.retryLastFailed() },
	})
}

func (a *App) setupCallbacks() {
	a.convList.SetSelectedFunc(func(row, col int) {
		id := a.convList.SelectedConversation()
		if id != "" {
			a.openConversation(id)
		}
	})

	a.composer.SetOnSend(func(text string) {
		active := a.store.ActiveID()
		if active == "" {
			return
		}
		if !a.store.ComposeAndSend(active, text) {
			a.flash.Set("Cannot send an empty message", 3*time.Second)
		}
		a.threadView.Update(a.store.Messages(active))
		a.statusBar.SetFlash(a.flash.Get())
	})
}

func (a *App) setupLayout() {
	threadFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.threadView, 0, 1, false).
		AddItem(a.composer, 1, 0, false)

	a.pages.AddPage("conversations", a.convList, true, true)
	a.pages.AddPage("thread", threadFlex, true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		currentPage, _ := a.pages.GetFrontPage()

		if event.Key() == tcell.KeyEscape && currentPage == "thread" {
			a.pages.SwitchToPage("conversations")
			a.app.SetFocus(a.convList)
			return nil
		}

		// Let text input widgets handle all keys normally.
		focused := a.app.GetFocus()
		if _, ok := focused.(*tview.InputField); ok {
			return event
		}

		// 'i' focuses the composer (only when not already in an input field).
		if currentPage == "thread" && event.Key() == tcell.KeyRune && event.Rune() == 'i' {
			a.app.SetFocus(a.composer.InputField)
			return nil
		}

		if a.registry.HandleEvent(currentPage, event) {
			return nil
		}

		return event
	})
}

func (a *App) openConversation(id string) {
	a.store.SelectConversation(id)

	title := id
	if conv, ok := a.store.Conversation(id); ok {
		title = conv.Title(a.store.SelfID())
	}
	a.threadView.SetConversationTitle(title)
	a.threadView.Update(a.store.Messages(id))
	a.pages.SwitchToPage("thread")
	a.app.SetFocus(a.threadView)
}

// retryLastFailed re-sends the most recent failed message in the
// active thread.
func (a *App) retryLastFailed() {
	active := a.store.ActiveID()
	if active == "" {
		return
	}
	msgs := a.store.Messages(active)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].FromMe && msgs[i].Delivery == store.DeliveryFailed {
			if a.store.RetryMessage(active, msgs[i].ID) {
				a.flash.Set("Retrying message", 3*time.Second)
			}
			a.threadView.Update(a.store.Messages(active))
			a.statusBar.SetFlash(a.flash.Get())
			return
		}
	}
}

// Run starts the TUI application and its refresh loop.
func (a *App) Run() error {
	a.statusBar.SetConnState(a.channel.State(), 0)
	go a.watchEvents()
	err := a.app.Run()
	a.cancel()
	return err
}

// Stop tears the application down.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// watchEvents re-renders on store and channel events. The views never
// cache state of their own; every redraw starts from a fresh snapshot.
func (a *App) watchEvents() {
	sub := a.bus.Subscribe("", 128)
	defer sub.Cancel()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt := <-sub.C:
			a.app.QueueUpdateDraw(func() { a.redraw(evt) })
		case <-ticker.C:
			a.app.QueueUpdateDraw(func() {
				a.statusBar.SetFlash(a.flash.Get())
				a.statusBar.SetUnread(a.store.TotalUnread())
			})
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *App) redraw(evt bus.Event) {
	switch evt.Kind {
	case bus.KindStatusChanged:
		if change, ok := evt.Payload.(status.StatusChange); ok {
			a.statusBar.SetConnState(change.To, change.Attempts)
		}
	case bus.KindStoreUpdated, bus.KindUnreadIncrease, bus.KindSendFailed:
		a.convList.Update(a.store.Conversations(), a.store.SelfID())
		if active := a.store.ActiveID(); active != "" {
			a.threadView.Update(a.store.Messages(active))
		}
		a.statusBar.SetUnread(a.store.TotalUnread())
	}
	a.statusBar.SetFlash(a.flash.Get())
}
