package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/yaklabco/kiln/cmd/kiln"
	"github.com/yaklabco/kiln/pkg/exit"
)

func main() {
	os.Exit(actualMain())
}

func actualMain() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := kiln.NewRootCmd(ctx)

	// fang prints the error; only the exit status is left to decide.
	return exit.Status(kiln.ExecuteWithFang(ctx, rootCmd))
}
