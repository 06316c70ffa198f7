package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/cardsections/internal/ctl"
	"github.com/okian/cardsections/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store warnings go to stderr so command output stays parseable.
	if err := logger.InitWith(os.Stderr, logger.FormatText); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	_ = logger.SetLevelString("warn")

	if err := ctl.NewApp().RunContext(ctx, os.Args); err != nil {
		os.Stderr.WriteString("sectionctl: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
