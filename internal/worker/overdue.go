package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

// OverdueWorker fails scheduled trips whose start time has passed without
// the captain ever starting them. The transition is status-only; settlement
// of auto-failed trips is a policy decision that currently stays manual.
type OverdueWorker struct {
	interval     time.Duration
	tripRepo     repository.ScheduledTripRepository
	progressRepo repository.TripProgressRepository

	running int32
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewOverdueWorker creates a new OverdueWorker.
func NewOverdueWorker(
	interval time.Duration,
	tripRepo repository.ScheduledTripRepository,
	progressRepo repository.TripProgressRepository,
) *OverdueWorker {
	return &OverdueWorker{
		interval:     interval,
		tripRepo:     tripRepo,
		progressRepo: progressRepo,
		stop:         make(chan struct{}),
	}
}

// Start launches the polling loop.
func (w *OverdueWorker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		log.Printf("Overdue worker started (interval %s)", w.interval)
		for {
			select {
			case <-w.stop:
				return
			case <-ticker.C:
				w.runTick()
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight tick to finish.
func (w *OverdueWorker) Stop() {
	close(w.stop)
	w.wg.Wait()
	log.Printf("Overdue worker stopped")
}

func (w *OverdueWorker) runTick() {
	if !atomic.CompareAndSwapInt32(&w.running, 0, 1) {
		log.Printf("Overdue worker tick skipped: previous tick still running")
		return
	}
	defer atomic.StoreInt32(&w.running, 0)

	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	if err := w.Tick(ctx); err != nil {
		log.Printf("ERROR: overdue worker tick failed: %v", err)
	}
}

// Tick runs one sweep over all scheduled trips.
func (w *OverdueWorker) Tick(ctx context.Context) error {
	trips, err := w.tripRepo.ListByStatus(ctx, domain.TripStatusScheduled)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, trip := range trips {
		if !now.After(trip.ScheduledTime) {
			continue
		}

		progress, err := w.progressRepo.GetByTripID(ctx, trip.ID)
		if err != nil {
			log.Printf("ERROR: progress lookup failed for trip %s: %v", trip.ID, err)
			continue
		}
		if progress != nil && !progress.StartedAt.IsZero() {
			// Started but still marked SCHEDULED. Leave it alone rather than
			// failing a trip that is actually running.
			log.Printf("WARN: trip %s has progress but is still SCHEDULED, skipping", trip.ID)
			continue
		}

		err = w.tripRepo.UpdateStatusFrom(ctx, trip.ID, domain.TripStatusScheduled, domain.TripStatusFailed)
		if err != nil {
			if errors.Is(err, repository.ErrStateConflict) {
				// Someone else transitioned it between the list and the write.
				continue
			}
			log.Printf("ERROR: failed to mark trip %s overdue: %v", trip.ID, err)
			continue
		}
		log.Printf("Trip %s marked FAILED: scheduled for %s, never started",
			trip.ID, trip.ScheduledTime.Format(time.RFC3339))
	}

	return nil
}
