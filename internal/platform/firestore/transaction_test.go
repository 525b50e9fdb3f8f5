package firestore

import (
	"context"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
)

func TestRunTransactionRejectsMissingInputs(t *testing.T) {
	ctx := context.Background()

	err := RunTransaction(ctx, nil, func(context.Context, *firestore.Transaction) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "client is nil") {
		t.Fatalf("expected nil client error got %v", err)
	}
}

func TestResolveTxSettings(t *testing.T) {
	settings := resolveTxSettings(nil)
	if settings.attempts != defaultTxAttempts || settings.timeout != defaultTxTimeout {
		t.Fatalf("unexpected defaults %+v", settings)
	}

	settings = resolveTxSettings([]TxOption{WithTxAttempts(2), WithTxTimeout(time.Second), nil})
	if settings.attempts != 2 || settings.timeout != time.Second {
		t.Fatalf("options not applied: %+v", settings)
	}

	settings = resolveTxSettings([]TxOption{WithTxAttempts(0), WithTxTimeout(-time.Second)})
	if settings.attempts != defaultTxAttempts || settings.timeout != defaultTxTimeout {
		t.Fatalf("non-positive values must keep defaults, got %+v", settings)
	}
}

func TestBoundContextKeepsTighterParentDeadline(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	bound, release := boundContext(parent, time.Minute)
	defer release()
	if bound != parent {
		t.Fatalf("tighter parent deadline must win")
	}

	bound, release = boundContext(context.Background(), time.Minute)
	defer release()
	deadline, ok := bound.Deadline()
	if !ok || time.Until(deadline) > time.Minute {
		t.Fatalf("expected a bounded context, deadline=%v ok=%v", deadline, ok)
	}

	bound, release = boundContext(parent, 0)
	defer release()
	if bound != parent {
		t.Fatalf("zero timeout must pass the parent through")
	}
}
