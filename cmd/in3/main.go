package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/in3-cli/in3cli/cmd/in3/commands"
	"github.com/in3-cli/in3cli/internal/account"
)

// Version is the current version of in3
// This must match the git tag when creating releases
const Version = "v0.3.0"

func main() {
	commands.SetVersion(Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Execute(ctx)
	interrupted := ctx.Err() != nil
	stop()

	if err == nil {
		return
	}
	if interrupted || errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr)
		os.Exit(130)
	}

	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	if help := account.HelpFor(err); help != "" {
		fmt.Fprintf(os.Stderr, "\n%s\n", help)
	}
	os.Exit(1)
}
