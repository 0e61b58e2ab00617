package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pricelens/backend/cmd/scraper/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.ExecuteContext(ctx)
}

func init() {
	// Logs go to stderr so stdout carries only results
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stderr)
}
