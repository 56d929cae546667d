package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/intransparency/msgcenter/internal/app"
	"github.com/intransparency/msgcenter/internal/config"
	"github.com/intransparency/msgcenter/internal/session"
	"github.com/intransparency/msgcenter/internal/tui"
	"go.uber.org/fx"
)

func main() {
	userFlag := flag.String("user", "", "user id (overrides config)")
	nameFlag := flag.String("name", "", "display name (overrides config)")
	roleFlag := flag.String("role", "", "role: student, recruiter, university or admin")
	localFlag := flag.Bool("local", false, "connect to the local development server")
	flag.Parse()

	cfg, err := config.Load(session.ConfigPath())
	if err != nil {
		cfg = config.Default()
	}
	if *localFlag {
		cfg.Server.UseLocal = true
	}

	identity := session.Resolve(*userFlag, *nameFlag, *roleFlag, cfg)
	if err := identity.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var ui *tui.App
	fxApp := fx.New(
		app.Module(app.Params{Config: cfg, Identity: identity}),
		fx.Populate(&ui),
		fx.NopLogger,
	)

	ctx := context.Background()
	if err := fxApp.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	runErr := ui.Run()

	if err := fxApp.Stop(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		os.Exit(1)
	}
}
