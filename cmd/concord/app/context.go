package app

import (
	"context"
	"os/signal"
	"syscall"
)

// ContextWithSignals creates a context that is cancelled on SIGINT or
// SIGTERM. The engine checks for cancellation between contacts, so an
// interrupted pass stops at the next contact boundary with the store
// consistent.
func ContextWithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// Context is ContextWithSignals over context.Background.
func Context() (context.Context, context.CancelFunc) {
	return ContextWithSignals(context.Background())
}
