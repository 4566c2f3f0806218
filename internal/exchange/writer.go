package exchange

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"exchange_go/internal/domain"
)

// job is one queued write. Its run function executes inside a database
// transaction on the writer goroutine; the outcome comes back on reply.
type job struct {
	name   string
	userID int64
	run    func(tx *gorm.DB) (*Affected, error)
	reply  chan jobResult
}

type jobResult struct {
	affected *Affected
	err      error
}

// Run drains the write queue until ctx is cancelled. It MUST run in a
// single goroutine: every state-changing operation is serialized here,
// which is what lets the pipelines read-modify-write without row races.
func (e *Exchange) Run(ctx context.Context) {
	e.log.Info("exchange writer started", slog.Int("queue_size", cap(e.jobs)))

	for {
		select {
		case <-ctx.Done():
			e.log.Info("exchange writer stopping")
			return
		case j := <-e.jobs:
			e.process(ctx, j)
		}
	}
}

func (e *Exchange) process(ctx context.Context, j job) {
	log := e.log.With(slog.String("op", j.name), slog.Int64("user", j.userID))
	log.Debug("write running")

	var affected *Affected
	err := e.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		affected, err = e.runGuarded(j, tx)
		return err
	})

	if err != nil {
		log.Warn("write rolled back",
			slog.String("code", domain.CodeOf(err).String()),
			slog.String("error", err.Error()))
	} else {
		log.Info("write committed")
	}

	// reply is buffered, so a submitter that already gave up on this
	// job never blocks the writer.
	j.reply <- jobResult{affected: affected, err: err}
}

// runGuarded turns a panicking pipeline into a rolled-back job instead
// of taking the writer down with it.
func (e *Exchange) runGuarded(j job, tx *gorm.DB) (affected *Affected, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("write panicked", slog.String("op", j.name), slog.Any("panic", r))
			affected = nil
			err = domain.Errorf(domain.CodeUnknown, "internal failure in %s: %v", j.name, r)
		}
	}()
	return j.run(tx)
}

// submit queues one write and waits for its outcome. The admission
// deadline covers only the queue wait: TIMEOUT therefore always means
// nothing was enqueued and nothing happened. Once the job is in the
// queue the caller blocks for the result, however long it takes —
// context cancellation during that wait comes back as UNKNOWN, because
// the job keeps running and its outcome is genuinely ambiguous.
func (e *Exchange) submit(ctx context.Context, name string, userID int64, run func(tx *gorm.DB) (*Affected, error)) (*Affected, error) {
	j := job{name: name, userID: userID, run: run, reply: make(chan jobResult, 1)}

	timer := time.NewTimer(e.submitTimeout)
	defer timer.Stop()

	log := e.log.With(slog.String("op", name), slog.Int64("user", userID))

	select {
	case e.jobs <- j:
		log.Debug("write queued")
	case <-ctx.Done():
		return nil, domain.WrapError(domain.CodeTimeout, ctx.Err())
	case <-timer.C:
		log.Warn("write timed out", slog.String("phase", "queue"))
		return nil, domain.Errorf(domain.CodeTimeout, "%s: write queue full for %s", name, e.submitTimeout)
	}

	select {
	case res := <-j.reply:
		return res.affected, res.err
	case <-ctx.Done():
		log.Warn("write abandoned while awaiting result", slog.Any("cause", ctx.Err()))
		return nil, domain.Errorf(domain.CodeUnknown,
			"%s: abandoned while awaiting result (%v); the write may still commit", name, ctx.Err())
	}
}
