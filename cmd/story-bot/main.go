package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"jordanella.com/offer-story-go/cmd/story-bot/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	commands.ExecuteContext(ctx)
}
