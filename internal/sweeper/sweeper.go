// Package sweeper runs the periodic time-based transitions: overdue
// detection, due-soon reminders and stale-notification cleanup.
package sweeper

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/FCHEHIDI/Library-Management-System/internal/borrowing"
	"github.com/FCHEHIDI/Library-Management-System/internal/notify"
)

// Sweeper drives the batch transitions on a fixed interval. Every pass
// is safe to run concurrently with live borrow/return traffic: each
// transition locks its own record and re-checks under the lock.
type Sweeper struct {
	borrowings    borrowing.Service
	notifications notify.Service
	interval      time.Duration
	tracer        trace.Tracer
}

// New creates a sweeper. A non-positive interval defaults to one hour.
func New(borrowings borrowing.Service, notifications notify.Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		borrowings:    borrowings,
		notifications: notifications,
		interval:      interval,
		tracer:        otel.Tracer("library/sweeper"),
	}
}

// Run sweeps immediately, then on every tick until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass of all batch transitions. A failing step is
// logged and does not stop the remaining steps.
func (s *Sweeper) Sweep(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "sweeper.sweep")
	defer span.End()

	if n, err := s.borrowings.DetectOverdue(ctx); err != nil {
		log.Printf("sweeper: overdue detection failed: %v", err)
	} else if n > 0 {
		log.Printf("sweeper: marked %d borrowings overdue", n)
	}

	if n, err := s.borrowings.SendDueSoonReminders(ctx); err != nil {
		log.Printf("sweeper: due-soon reminders failed: %v", err)
	} else if n > 0 {
		log.Printf("sweeper: sent %d due-soon reminders", n)
	}

	if n, err := s.notifications.ClearOld(ctx); err != nil {
		log.Printf("sweeper: notification cleanup failed: %v", err)
	} else if n > 0 {
		log.Printf("sweeper: cleared %d stale notifications", n)
	}
}
