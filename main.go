package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/easyapply-cli/cmd"
	"github.com/xkilldash9x/easyapply-cli/internal/observability"
)

func main() {
	// Ctrl+C mid-run cancels the search loop; durable records are already
	// on disk, so a clean exit is all that is needed.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
