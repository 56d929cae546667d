// Package app composes the sync client with fx.
package app

import (
	"context"

	"github.com/intransparency/msgcenter/internal/bus"
	"github.com/intransparency/msgcenter/internal/channel"
	"github.com/intransparency/msgcenter/internal/config"
	"github.com/intransparency/msgcenter/internal/logging"
	"github.com/intransparency/msgcenter/internal/notify"
	"github.com/intransparency/msgcenter/internal/session"
	"github.com/intransparency/msgcenter/internal/status"
	"github.com/intransparency/msgcenter/internal/store"
	"github.com/intransparency/msgcenter/internal/tui"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved configuration passed to the fx module.
type Params struct {
	Config   *config.Config
	Identity session.Identity
	Notifier notify.Notifier // optional; nil disables notifications
}

// Module returns the fx module composing all providers and lifecycle
// hooks of the message-center client.
func Module(p Params) fx.Option {
	return fx.Module("msgcenter",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideChannel,
			provideStore,
			provideBridge,
			provideTUI,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	if err := session.EnsureDirs(); err != nil {
		return nil, err
	}
	return logging.New(session.LogPath(), p.Identity.UserID)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideChannel(p Params, machine *status.Machine, logger *zap.Logger) *channel.Channel {
	policy := channel.Policy{
		InitialInterval: p.Config.Backoff.Initial(),
		MaxInterval:     p.Config.Backoff.Max(),
		GiveUpAfter:     p.Config.Backoff.GiveUp(),
	}
	return channel.New(p.Config.Server.Endpoint(), channel.DialWebSocket, machine, policy, logger)
}

func provideStore(p Params, ch *channel.Channel, b *bus.Bus, logger *zap.Logger) *store.Store {
	return store.New(p.Identity, ch, b, logger)
}

func provideBridge(p Params, b *bus.Bus, logger *zap.Logger) *notify.Bridge {
	return notify.NewBridge(b, p.Notifier, logger)
}

func provideTUI(p Params, st *store.Store, ch *channel.Channel, b *bus.Bus) *tui.App {
	return tui.NewApp(st, ch, b, p.Identity.Name)
}

func registerLifecycle(lc fx.Lifecycle, ch *channel.Channel, st *store.Store, bridge *notify.Bridge, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// The store is the channel's only consumer; registering
			// before Connect guarantees no frame is dropped.
			ch.OnFrame(st.HandleFrame)
			ch.OnOpen(st.HandleOpen)

			bridge.Start(context.Background())
			ch.Connect()

			logger.Info("client started")
			return nil
		},
		OnStop: func(_ context.Context) error {
			bridge.Stop()
			ch.Close()
			logger.Info("client stopped")
			return nil
		},
	})
}
