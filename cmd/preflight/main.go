package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/JaimeStill/preflight/cmd/preflight/cmd"
)

// set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cmd.SetVersion(version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()

	if err != nil {
		os.Exit(1)
	}
}
