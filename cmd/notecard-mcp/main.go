package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/Bucknalla/notecard-mcp/cmd/notecard-mcp/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.NewRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
