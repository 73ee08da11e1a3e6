package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		fatalf("%v", err)
	}
}

func fatalf(msg string, args ...any) {
	slog.Error(fmt.Sprintf(msg, args...))
	os.Exit(1)
}
