package util

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/small-frappuccino/storeops/pkg/log"
)

// WaitForInterrupt blocks until SIGINT or SIGTERM is received.
func WaitForInterrupt() {
	waitForInterruptContext(context.Background(), nil)
}

// WaitForInterruptWithCallback blocks until an interrupt signal is received,
// then executes callback before returning.
func WaitForInterruptWithCallback(callback func()) {
	waitForInterruptContext(context.Background(), callback)
}

// waitForInterruptContext allows tests to cancel without real OS signals.
func waitForInterruptContext(parent context.Context, callback func()) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.ApplicationLogger().Info("Received interrupt; shutting down")

	if callback != nil {
		callback()
	}
}
