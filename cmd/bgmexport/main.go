package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bgmexport/internal/services"
	"bgmexport/internal/workflow"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "interrupted; rerun the same command to resume from the cache")
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
			if hint := exitHint(err); hint != "" {
				fmt.Fprintln(os.Stderr, "Hint:", hint)
			}
		}
		stop()
		os.Exit(1)
	}
}

func exitHint(err error) string {
	if workflow.IsNoToken(err) {
		return "create a token at https://next.bgm.tv/demo/access-token"
	}
	return services.ExitHint(err)
}
