package worker

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"fleet/internal/domain"
	fleetredis "fleet/internal/redis"
	"fleet/internal/repository"
	"fleet/internal/service"
)

// ActivationWorker periodically scans scheduled trips and notifies captains
// whose trips have become startable. Notification is at-most-once per dedup
// window; the approving audit row written by the evaluator suppresses
// repeats on later ticks.
type ActivationWorker struct {
	interval      time.Duration
	tripRepo      repository.ScheduledTripRepository
	captainRepo   repository.CaptainRepository
	locationStore fleetredis.LocationStoreInterface
	cacheStore    fleetredis.CacheStoreInterface
	activation    *service.ActivationService
	notifier      *service.NotificationService

	running int32
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewActivationWorker creates a new ActivationWorker.
func NewActivationWorker(
	interval time.Duration,
	tripRepo repository.ScheduledTripRepository,
	captainRepo repository.CaptainRepository,
	locationStore fleetredis.LocationStoreInterface,
	cacheStore fleetredis.CacheStoreInterface,
	activation *service.ActivationService,
	notifier *service.NotificationService,
) *ActivationWorker {
	return &ActivationWorker{
		interval:      interval,
		tripRepo:      tripRepo,
		captainRepo:   captainRepo,
		locationStore: locationStore,
		cacheStore:    cacheStore,
		activation:    activation,
		notifier:      notifier,
		stop:          make(chan struct{}),
	}
}

// Start launches the polling loop.
func (w *ActivationWorker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		log.Printf("Activation worker started (interval %s)", w.interval)
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
func (w *ActivationWorker) Stop() {
	close(w.stop)
	w.wg.Wait()
	log.Printf("Activation worker stopped")
}

// runTick guards against re-entrant ticks: a tick still in flight when the
// ticker fires again causes the new tick to be skipped, not queued.
func (w *ActivationWorker) runTick() {
	if !atomic.CompareAndSwapInt32(&w.running, 0, 1) {
		log.Printf("Activation worker tick skipped: previous tick still running")
		return
	}
	defer atomic.StoreInt32(&w.running, 0)

	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	if err := w.Tick(ctx); err != nil {
		log.Printf("ERROR: activation worker tick failed: %v", err)
	}
}

// Tick runs one scan over all scheduled trips.
func (w *ActivationWorker) Tick(ctx context.Context) error {
	trips, err := w.tripRepo.ListByStatus(ctx, domain.TripStatusScheduled)
	if err != nil {
		return err
	}

	candidates := make([]*domain.ScheduledTrip, 0, len(trips))
	captainIDs := make([]string, 0, len(trips))
	seen := make(map[string]bool)
	for _, trip := range trips {
		if len(trip.Points) == 0 || trip.AssignedCaptainID == "" {
			continue
		}
		candidates = append(candidates, trip)
		if !seen[trip.AssignedCaptainID] {
			seen[trip.AssignedCaptainID] = true
			captainIDs = append(captainIDs, trip.AssignedCaptainID)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	captains := w.loadCaptains(ctx, captainIDs)

	for _, trip := range candidates {
		w.evaluateTrip(ctx, trip, captains[trip.AssignedCaptainID])
	}

	return nil
}

// evaluateTrip handles one trip; errors are logged so a bad trip cannot
// abort the rest of the tick.
func (w *ActivationWorker) evaluateTrip(ctx context.Context, trip *domain.ScheduledTrip, captain *domain.Captain) {
	if captain == nil || !captain.IsOnline() {
		return
	}

	loc, err := w.locationStore.GetLocation(ctx, captain.ID)
	if err != nil {
		log.Printf("ERROR: location lookup failed for captain %s: %v", captain.ID, err)
		return
	}
	if loc == nil {
		// Captain has never pinged; nothing to evaluate against.
		return
	}

	// Dedup is checked before evaluating so the fresh audit row cannot
	// suppress its own notification.
	recent, err := w.activation.WasRecentlyActivatable(ctx, trip.ID)
	if err != nil {
		log.Printf("ERROR: notification dedup check failed for trip %s: %v", trip.ID, err)
		recent = true
	}

	result := w.activation.CheckActivation(ctx, trip.ID, loc.Lat, loc.Lng)
	if !result.CanActivate || recent {
		return
	}

	if err := w.notifier.NotifyTripReady(ctx, captain, trip); err != nil {
		// Best effort: the next approving tick after the dedup window
		// retries naturally.
		log.Printf("ERROR: trip-ready notification failed for trip %s: %v", trip.ID, err)
		return
	}
	log.Printf("Notified captain %s: trip %s ready to start", captain.ID, trip.ID)
}

// loadCaptains resolves captain profiles through the cache, falling back to
// the database for misses and back-filling the cache in one batch.
func (w *ActivationWorker) loadCaptains(ctx context.Context, ids []string) map[string]*domain.Captain {
	result := make(map[string]*domain.Captain, len(ids))

	cached, missing, err := w.cacheStore.GetCaptainsBatch(ctx, ids)
	if err != nil {
		log.Printf("ERROR: captain cache batch read failed: %v", err)
		missing = ids
	}
	for id, c := range cached {
		result[id] = &domain.Captain{
			ID:        c.ID,
			Name:      c.Name,
			Phone:     c.Phone,
			Status:    domain.CaptainStatus(c.Status),
			PushToken: c.PushToken,
		}
	}

	var fill []*fleetredis.CachedCaptain
	for _, id := range missing {
		captain, err := w.captainRepo.GetByID(ctx, id)
		if err != nil {
			log.Printf("ERROR: captain lookup failed for %s: %v", id, err)
			continue
		}
		result[id] = captain
		fill = append(fill, &fleetredis.CachedCaptain{
			ID:        captain.ID,
			Name:      captain.Name,
			Phone:     captain.Phone,
			Status:    string(captain.Status),
			PushToken: captain.PushToken,
		})
	}
	if len(fill) > 0 {
		if err := w.cacheStore.SetCaptainsBatch(ctx, fill); err != nil {
			log.Printf("ERROR: captain cache batch write failed: %v", err)
		}
	}

	return result
}
