// Package main provides the entry point for the trimsilence command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/maauso/trimsilence/internal/cli"
)

func main() {
	// A stop signal lets the current file finish; remaining files are skipped.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
