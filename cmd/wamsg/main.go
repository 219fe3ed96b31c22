package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wamsg/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, "wamsg:", cli.ErrorMessage(err))
		os.Exit(1)
	}
}
