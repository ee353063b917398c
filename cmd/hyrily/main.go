// Command hyrily runs interview practice sessions from the terminal.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hyrily/hyrily/internal/app"
)

func main() {
	// Interrupt cancels a running interview; the session then reports as cancelled.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	code := app.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
