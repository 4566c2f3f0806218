package exchange

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"gorm.io/gorm"

	"exchange_go/internal/domain"
	"exchange_go/internal/infra"
	"exchange_go/internal/infra/storage"
)

// idleExchange opens a store but does not start the writer.
func idleExchange(t *testing.T, cfg *infra.Config) *Exchange {
	store, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store, slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
}

func TestSubmit_WaitsBeyondAdmissionTimeout(t *testing.T) {
	// A job that runs longer than the admission timeout still returns
	// its real outcome: the deadline only guards admission, so TIMEOUT
	// can never mask a committed write.
	cfg := testConfig(t)
	cfg.Engine.SubmitTimeoutMS = 50
	ex := idleExchange(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ex.Run(ctx)

	supplied, err := ex.SupplyPosition(context.Background(), 8001, "USD", dec(42))
	if err != nil {
		t.Fatalf("SupplyPosition failed: %v", err)
	}
	if len(supplied.Positions) != 1 {
		t.Fatalf("affected = %+v, want one position user", supplied)
	}

	affected, err := ex.submit(context.Background(), "slow_write", 8001, func(tx *gorm.DB) (*Affected, error) {
		time.Sleep(150 * time.Millisecond)
		return &Affected{Base: "USD"}, nil
	})
	if err != nil {
		t.Fatalf("slow write failed: %v", err)
	}
	if affected == nil || affected.Base != "USD" {
		t.Errorf("affected = %+v, want base USD", affected)
	}
}

func TestSubmit_QueueFullTimesOut(t *testing.T) {
	// No writer draining and the queue already holds a job: admission
	// cannot proceed and the deadline yields TIMEOUT with nothing done.
	cfg := testConfig(t)
	cfg.Engine.QueueSize = 1
	cfg.Engine.SubmitTimeoutMS = 50
	ex := idleExchange(t, cfg)

	ex.jobs <- job{name: "held", reply: make(chan jobResult, 1)}

	_, err := ex.SupplyPosition(context.Background(), 101, "USD", dec(1))
	if domain.CodeOf(err) != domain.CodeTimeout {
		t.Fatalf("code = %v, want TIMEOUT", domain.CodeOf(err))
	}
}

func TestSubmit_CancelledAwaitingResult(t *testing.T) {
	// Once enqueued, giving up on the wait is not a timeout: the job may
	// still run, so the caller gets UNKNOWN marking the ambiguity.
	cfg := testConfig(t)
	ex := idleExchange(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := ex.submit(ctx, "orphan", 101, func(tx *gorm.DB) (*Affected, error) {
		return nil, nil
	})
	if domain.CodeOf(err) != domain.CodeUnknown {
		t.Fatalf("code = %v, want UNKNOWN", domain.CodeOf(err))
	}
}
