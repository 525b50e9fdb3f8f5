package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
)

// Per-transaction defaults. The timeout is deliberately short: every
// transactional write in this service touches a handful of documents
// (a counter bump, an existence check plus a set), so anything slower
// points at the backend, not the workload.
const (
	defaultTxAttempts = 5
	defaultTxTimeout  = 10 * time.Second
)

// TxFunc runs inside a Firestore transaction. Reads issued through tx
// must come before writes, per the Firestore client contract.
type TxFunc func(ctx context.Context, tx *firestore.Transaction) error

// TxOption adjusts retry and deadline behaviour for a single call.
type TxOption func(*txSettings)

type txSettings struct {
	attempts int
	timeout  time.Duration
}

func resolveTxSettings(opts []TxOption) txSettings {
	settings := txSettings{
		attempts: defaultTxAttempts,
		timeout:  defaultTxTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}
	return settings
}

// WithTxAttempts caps how often the client retries on contention.
// Non-positive values keep the default.
func WithTxAttempts(attempts int) TxOption {
	return func(s *txSettings) {
		if attempts > 0 {
			s.attempts = attempts
		}
	}
}

// WithTxTimeout bounds the whole transaction including retries.
// Non-positive values keep the default.
func WithTxTimeout(timeout time.Duration) TxOption {
	return func(s *txSettings) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// RunTransaction executes fn transactionally on client and maps the
// outcome through WrapError so repositories can categorise it. A caller
// deadline tighter than the configured timeout wins.
func RunTransaction(ctx context.Context, client *firestore.Client, fn TxFunc, opts ...TxOption) error {
	if client == nil {
		return WrapError("transaction", errors.New("firestore: client is nil"))
	}
	if fn == nil {
		return WrapError("transaction", errors.New("firestore: transaction function is nil"))
	}

	settings := resolveTxSettings(opts)
	txCtx, release := boundContext(ctx, settings.timeout)
	defer release()

	err := client.RunTransaction(txCtx, fn, firestore.MaxAttempts(settings.attempts))
	return WrapError("transaction", err)
}

// boundContext applies timeout unless the parent already expires sooner.
func boundContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= timeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
