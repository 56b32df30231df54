package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"muniresults/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cc := &commandContext{}
	cmd := newRootCommand(cc)
	if err := cmd.ExecuteContext(ctx); err != nil {
		logger := cc.logger
		if logger == nil {
			// configuration failed before the configured logger existed
			logger, _ = logging.New(logging.Options{})
		}
		reportError(logger, err)
		_ = logger.Sync()
		stop()
		os.Exit(1)
	}
}

// reportError logs the error that ended the command. Cancellation is logged as a warning.
func reportError(logger *zap.Logger, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if errors.Is(err, context.Canceled) {
		logger.Warn("run cancelled", zap.Error(err))
		return
	}
	logger.Error("command failed", zap.Error(err))
}
