// Package main allows running trimsilence from the module root with go run.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/maauso/trimsilence/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
