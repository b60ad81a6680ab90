package tests

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"fleet/internal/domain"
	"fleet/internal/redis"
	"fleet/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK SCHEDULED TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockScheduledTripRepository is a mock implementation of ScheduledTripRepository.
type MockScheduledTripRepository struct {
	mu    sync.RWMutex
	trips map[string]*domain.ScheduledTrip

	// Counters for verification
	CreateCallCount           int32
	UpdateStatusFromCallCount int32
	MarkPointReachedCallCount int32

	// Error injection
	CreateError           error
	UpdateStatusFromError error
	UpdateFinancialsError error
}

// NewMockScheduledTripRepository creates a new mock trip repository.
func NewMockScheduledTripRepository() *MockScheduledTripRepository {
	return &MockScheduledTripRepository{
		trips: make(map[string]*domain.ScheduledTrip),
	}
}

// AddTrip adds a trip to the mock repository.
func (m *MockScheduledTripRepository) AddTrip(trip *domain.ScheduledTrip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
}

// copyTrip returns a deep copy so callers cannot mutate stored state.
func copyTrip(trip *domain.ScheduledTrip) *domain.ScheduledTrip {
	c := *trip
	c.Points = make([]*domain.TripPoint, 0, len(trip.Points))
	for _, p := range trip.Points {
		pc := *p
		c.Points = append(c.Points, &pc)
	}
	sort.Slice(c.Points, func(i, j int) bool { return c.Points[i].Order < c.Points[j].Order })
	return &c
}

func (m *MockScheduledTripRepository) Create(ctx context.Context, trip *domain.ScheduledTrip) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = copyTrip(trip)
	return nil
}

func (m *MockScheduledTripRepository) GetByID(ctx context.Context, id string) (*domain.ScheduledTrip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyTrip(trip), nil
}

func (m *MockScheduledTripRepository) ListByStatus(ctx context.Context, status domain.TripStatus) ([]*domain.ScheduledTrip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.ScheduledTrip
	for _, t := range m.trips {
		if t.Status == status {
			result = append(result, copyTrip(t))
		}
	}
	return result, nil
}

func (m *MockScheduledTripRepository) ListByCaptainAndStatus(ctx context.Context, captainID string, status domain.TripStatus) ([]*domain.ScheduledTrip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.ScheduledTrip
	for _, t := range m.trips {
		if t.AssignedCaptainID == captainID && t.Status == status {
			result = append(result, copyTrip(t))
		}
	}
	return result, nil
}

func (m *MockScheduledTripRepository) UpdateStatusFrom(ctx context.Context, id string, from, to domain.TripStatus) error {
	atomic.AddInt32(&m.UpdateStatusFromCallCount, 1)
	if m.UpdateStatusFromError != nil {
		return m.UpdateStatusFromError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[id]
	if !ok {
		return repository.ErrNotFound
	}
	if trip.Status != from {
		return repository.ErrStateConflict
	}
	trip.Status = to
	return nil
}

func (m *MockScheduledTripRepository) MarkEmergencyEnded(ctx context.Context, id string, to domain.TripStatus, at time.Time, by string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[id]
	if !ok {
		return repository.ErrNotFound
	}
	if trip.Status != domain.TripStatusActive {
		return repository.ErrStateConflict
	}
	trip.Status = to
	trip.EmergencyTerminatedAt = at
	trip.EmergencyTerminatedBy = by
	return nil
}

func (m *MockScheduledTripRepository) UpdateDetails(ctx context.Context, trip *domain.ScheduledTrip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.trips[trip.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Name = trip.Name
	stored.TripDate = trip.TripDate
	stored.ScheduledTime = trip.ScheduledTime
	stored.TripType = trip.TripType
	stored.Price = trip.Price
	stored.AssignedCaptainID = trip.AssignedCaptainID
	stored.CompanyID = trip.CompanyID
	return nil
}

func (m *MockScheduledTripRepository) ReplacePoints(ctx context.Context, tripID string, points []*domain.TripPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok {
		return repository.ErrNotFound
	}
	trip.Points = make([]*domain.TripPoint, 0, len(points))
	for _, p := range points {
		pc := *p
		trip.Points = append(trip.Points, &pc)
	}
	return nil
}

func (m *MockScheduledTripRepository) MarkPointReached(ctx context.Context, pointID string, at time.Time) error {
	atomic.AddInt32(&m.MarkPointReachedCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, trip := range m.trips {
		for _, p := range trip.Points {
			if p.ID == pointID {
				// First write wins, matching the conditional UPDATE.
				if p.ReachedAt.IsZero() {
					p.ReachedAt = at
				}
				return nil
			}
		}
	}
	return repository.ErrNotFound
}

func (m *MockScheduledTripRepository) UpdateFinancials(ctx context.Context, id string, rule domain.FinanceRule, net float64, status domain.FinancialStatus, appliedAt time.Time) error {
	if m.UpdateFinancialsError != nil {
		return m.UpdateFinancialsError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[id]
	if !ok {
		return repository.ErrNotFound
	}
	trip.FinancialRule = rule
	trip.NetAmount = net
	trip.FinancialStatus = status
	trip.FinancialAppliedAt = appliedAt
	return nil
}

func (m *MockScheduledTripRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.trips, id)
	return nil
}

// GetTrip returns a trip for test assertions.
func (m *MockScheduledTripRepository) GetTrip(id string) *domain.ScheduledTrip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil
	}
	return copyTrip(trip)
}

// CountTrips returns the number of trips.
func (m *MockScheduledTripRepository) CountTrips() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trips)
}

// ──────────────────────────────────────────────
// MOCK TRIP PROGRESS REPOSITORY
// ──────────────────────────────────────────────

// MockTripProgressRepository is a mock implementation of TripProgressRepository.
type MockTripProgressRepository struct {
	mu       sync.RWMutex
	progress map[string]*domain.TripProgress

	// Counters
	UpsertCallCount int32
	UpdateCallCount int32

	// Error injection
	UpsertError error
}

// NewMockTripProgressRepository creates a new mock progress repository.
func NewMockTripProgressRepository() *MockTripProgressRepository {
	return &MockTripProgressRepository{
		progress: make(map[string]*domain.TripProgress),
	}
}

// AddProgress adds a progress row to the mock repository.
func (m *MockTripProgressRepository) AddProgress(p *domain.TripProgress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress[p.TripID] = p
}

func (m *MockTripProgressRepository) Upsert(ctx context.Context, progress *domain.TripProgress) error {
	atomic.AddInt32(&m.UpsertCallCount, 1)
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *progress
	m.progress[progress.TripID] = &c
	return nil
}

func (m *MockTripProgressRepository) GetByTripID(ctx context.Context, tripID string) (*domain.TripProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.progress[tripID]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (m *MockTripProgressRepository) Update(ctx context.Context, progress *domain.TripProgress) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.progress[progress.TripID]; !ok {
		return repository.ErrNotFound
	}
	c := *progress
	m.progress[progress.TripID] = &c
	return nil
}

func (m *MockTripProgressRepository) UpdateLastLocation(ctx context.Context, tripID string, lat, lng float64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.progress[tripID]
	if !ok {
		return repository.ErrNotFound
	}
	p.LastLatitude = lat
	p.LastLongitude = lng
	p.LastLocationUpdate = at
	return nil
}

// GetProgress returns a progress row for assertions.
func (m *MockTripProgressRepository) GetProgress(tripID string) *domain.TripProgress {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.progress[tripID]
	if !ok {
		return nil
	}
	c := *p
	return &c
}

// ──────────────────────────────────────────────
// MOCK CAPTAIN REPOSITORY
// ──────────────────────────────────────────────

// MockCaptainRepository is a mock implementation of CaptainRepository.
type MockCaptainRepository struct {
	mu       sync.RWMutex
	captains map[string]*domain.Captain

	// Counters
	CreateCallCount            int32
	ApplyBalanceDeltaCallCount int32

	// Error injection
	CreateError            error
	ApplyBalanceDeltaError error
}

// NewMockCaptainRepository creates a new mock captain repository.
func NewMockCaptainRepository() *MockCaptainRepository {
	return &MockCaptainRepository{
		captains: make(map[string]*domain.Captain),
	}
}

// AddCaptain adds a captain to the mock repository.
func (m *MockCaptainRepository) AddCaptain(captain *domain.Captain) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captains[captain.ID] = captain
}

func (m *MockCaptainRepository) Create(ctx context.Context, captain *domain.Captain) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *captain
	m.captains[captain.ID] = &c
	return nil
}

func (m *MockCaptainRepository) GetByID(ctx context.Context, id string) (*domain.Captain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	captain, ok := m.captains[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *captain
	return &c, nil
}

func (m *MockCaptainRepository) GetByPhone(ctx context.Context, phone string) (*domain.Captain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, captain := range m.captains {
		if captain.Phone == phone {
			c := *captain
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockCaptainRepository) GetAll(ctx context.Context) ([]*domain.Captain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Captain, 0, len(m.captains))
	for _, captain := range m.captains {
		c := *captain
		result = append(result, &c)
	}
	return result, nil
}

func (m *MockCaptainRepository) UpdateStatus(ctx context.Context, id string, status domain.CaptainStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	captain, ok := m.captains[id]
	if !ok {
		return repository.ErrNotFound
	}
	captain.Status = status
	return nil
}

func (m *MockCaptainRepository) ApplyBalanceDelta(ctx context.Context, id string, delta float64) error {
	atomic.AddInt32(&m.ApplyBalanceDeltaCallCount, 1)
	if m.ApplyBalanceDeltaError != nil {
		return m.ApplyBalanceDeltaError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	captain, ok := m.captains[id]
	if !ok {
		return repository.ErrNotFound
	}
	captain.TotalEarning += delta
	captain.ScheduledTripBalance += delta
	return nil
}

// GetCaptain returns a captain for test assertions.
func (m *MockCaptainRepository) GetCaptain(id string) *domain.Captain {
	m.mu.RLock()
	defer m.mu.RUnlock()
	captain, ok := m.captains[id]
	if !ok {
		return nil
	}
	c := *captain
	return &c
}

// ──────────────────────────────────────────────
// MOCK LEDGER REPOSITORY
// ──────────────────────────────────────────────

// MockLedgerRepository is a mock implementation of LedgerRepository.
type MockLedgerRepository struct {
	mu      sync.RWMutex
	ledgers map[string]*domain.TripLedger // keyed by trip ID

	// Counters
	UpsertCallCount int32

	// Error injection
	UpsertError error
}

// NewMockLedgerRepository creates a new mock ledger repository.
func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{
		ledgers: make(map[string]*domain.TripLedger),
	}
}

func (m *MockLedgerRepository) GetByTripID(ctx context.Context, tripID string) (*domain.TripLedger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ledger, ok := m.ledgers[tripID]
	if !ok {
		return nil, nil
	}
	c := *ledger
	return &c, nil
}

func (m *MockLedgerRepository) Upsert(ctx context.Context, ledger *domain.TripLedger) error {
	atomic.AddInt32(&m.UpsertCallCount, 1)
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *ledger
	m.ledgers[ledger.TripID] = &c
	return nil
}

func (m *MockLedgerRepository) ListByCaptainID(ctx context.Context, captainID string) ([]*domain.TripLedger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.TripLedger
	for _, ledger := range m.ledgers {
		if ledger.CaptainID == captainID {
			c := *ledger
			result = append(result, &c)
		}
	}
	return result, nil
}

// GetLedger returns a ledger row for assertions.
func (m *MockLedgerRepository) GetLedger(tripID string) *domain.TripLedger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ledger, ok := m.ledgers[tripID]
	if !ok {
		return nil
	}
	c := *ledger
	return &c
}

// CountLedgers returns the number of ledger rows.
func (m *MockLedgerRepository) CountLedgers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ledgers)
}

// ──────────────────────────────────────────────
// MOCK ACTIVATION CHECK REPOSITORY
// ──────────────────────────────────────────────

// MockActivationCheckRepository is a mock implementation of ActivationCheckRepository.
type MockActivationCheckRepository struct {
	mu     sync.RWMutex
	checks []*domain.ActivationCheck

	// Counters
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockActivationCheckRepository creates a new mock activation check repository.
func NewMockActivationCheckRepository() *MockActivationCheckRepository {
	return &MockActivationCheckRepository{}
}

func (m *MockActivationCheckRepository) Create(ctx context.Context, check *domain.ActivationCheck) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *check
	m.checks = append(m.checks, &c)
	return nil
}

func (m *MockActivationCheckRepository) HasActivatedSince(ctx context.Context, tripID string, since time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, check := range m.checks {
		if check.TripID == tripID && check.Activated && !check.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockActivationCheckRepository) ListByTripID(ctx context.Context, tripID string) ([]*domain.ActivationCheck, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.ActivationCheck
	for _, check := range m.checks {
		if check.TripID == tripID {
			c := *check
			result = append(result, &c)
		}
	}
	return result, nil
}

// CountChecks returns the number of audit rows for a trip.
func (m *MockActivationCheckRepository) CountChecks(tripID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, check := range m.checks {
		if check.TripID == tripID {
			count++
		}
	}
	return count
}

// LastCheck returns the most recently created audit row for a trip.
func (m *MockActivationCheckRepository) LastCheck(tripID string) *domain.ActivationCheck {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.checks) - 1; i >= 0; i-- {
		if m.checks[i].TripID == tripID {
			c := *m.checks[i]
			return &c
		}
	}
	return nil
}

// ──────────────────────────────────────────────
// MOCK EMERGENCY USAGE REPOSITORY
// ──────────────────────────────────────────────

// MockEmergencyUsageRepository is a mock implementation of EmergencyUsageRepository.
type MockEmergencyUsageRepository struct {
	mu     sync.RWMutex
	usages []*domain.EmergencyUsage

	// Counters
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockEmergencyUsageRepository creates a new mock emergency usage repository.
func NewMockEmergencyUsageRepository() *MockEmergencyUsageRepository {
	return &MockEmergencyUsageRepository{}
}

// AddUsage adds a usage row for test setup.
func (m *MockEmergencyUsageRepository) AddUsage(usage *domain.EmergencyUsage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usages = append(m.usages, usage)
}

func (m *MockEmergencyUsageRepository) Create(ctx context.Context, usage *domain.EmergencyUsage) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *usage
	m.usages = append(m.usages, &c)
	return nil
}

func (m *MockEmergencyUsageRepository) UsedBetween(ctx context.Context, captainID string, from, to time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, usage := range m.usages {
		if usage.CaptainID == captainID && !usage.UsedAt.Before(from) && usage.UsedAt.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

// CountUsages returns the number of usage rows.
func (m *MockEmergencyUsageRepository) CountUsages() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.usages)
}

// ──────────────────────────────────────────────
// MOCK TX MANAGER
// ──────────────────────────────────────────────

// MockTxManager is a mock implementation of repository.TxManager. It hands
// out the same mock repositories as the non-transactional path, so writes
// are immediately visible; Commit and Rollback only count calls.
type MockTxManager struct {
	TripRepo     *MockScheduledTripRepository
	ProgressRepo *MockTripProgressRepository
	CaptainRepo  *MockCaptainRepository
	LedgerRepo   *MockLedgerRepository
	UsageRepo    *MockEmergencyUsageRepository

	// Counters
	BeginCallCount    int32
	CommitCallCount   int32
	RollbackCallCount int32

	// Error injection
	BeginError  error
	CommitError error
}

// NewMockTxManager creates a mock transaction manager over the given mocks.
func NewMockTxManager(
	tripRepo *MockScheduledTripRepository,
	progressRepo *MockTripProgressRepository,
	captainRepo *MockCaptainRepository,
	ledgerRepo *MockLedgerRepository,
	usageRepo *MockEmergencyUsageRepository,
) *MockTxManager {
	return &MockTxManager{
		TripRepo:     tripRepo,
		ProgressRepo: progressRepo,
		CaptainRepo:  captainRepo,
		LedgerRepo:   ledgerRepo,
		UsageRepo:    usageRepo,
	}
}

func (m *MockTxManager) Begin(ctx context.Context) (repository.Tx, error) {
	atomic.AddInt32(&m.BeginCallCount, 1)
	if m.BeginError != nil {
		return nil, m.BeginError
	}
	return &mockTx{manager: m}, nil
}

type mockTx struct {
	manager *MockTxManager
}

func (t *mockTx) Trips() repository.ScheduledTripRepository       { return t.manager.TripRepo }
func (t *mockTx) Progress() repository.TripProgressRepository     { return t.manager.ProgressRepo }
func (t *mockTx) Captains() repository.CaptainRepository          { return t.manager.CaptainRepo }
func (t *mockTx) Ledgers() repository.LedgerRepository            { return t.manager.LedgerRepo }
func (t *mockTx) EmergencyUsages() repository.EmergencyUsageRepository {
	return t.manager.UsageRepo
}

func (t *mockTx) Commit() error {
	atomic.AddInt32(&t.manager.CommitCallCount, 1)
	return t.manager.CommitError
}

func (t *mockTx) Rollback() error {
	atomic.AddInt32(&t.manager.RollbackCallCount, 1)
	return nil
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStoreInterface.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations map[string]*redis.CaptainLocation

	// Counters
	UpdateLocationCallCount int32

	// Error injection
	UpdateLocationError error
	GetLocationError    error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make(map[string]*redis.CaptainLocation),
	}
}

// SetLocation seeds a captain location for test setup.
func (m *MockLocationStore) SetLocation(captainID string, lat, lng float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[captainID] = &redis.CaptainLocation{CaptainID: captainID, Lat: lat, Lng: lng}
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, captainID string, lat, lng float64) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	if m.UpdateLocationError != nil {
		return m.UpdateLocationError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[captainID] = &redis.CaptainLocation{CaptainID: captainID, Lat: lat, Lng: lng}
	return nil
}

func (m *MockLocationStore) GetLocation(ctx context.Context, captainID string) (*redis.CaptainLocation, error) {
	if m.GetLocationError != nil {
		return nil, m.GetLocationError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	loc, ok := m.locations[captainID]
	if !ok {
		return nil, nil
	}
	c := *loc
	return &c, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, captainID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, captainID)
	return nil
}

// HasLocation checks whether a captain has a stored location.
func (m *MockLocationStore) HasLocation(captainID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.locations[captainID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquireEmergencyLock(ctx context.Context, captainID, day string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:emergency:" + captainID + ":" + day
	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseEmergencyLock(ctx context.Context, captainID, day string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, "lock:emergency:"+captainID+":"+day)
	return nil
}

// IsLocked checks whether the captain's day lock is held.
func (m *MockLockStore) IsLocked(captainID, day string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks["lock:emergency:"+captainID+":"+day]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is a mock implementation of CacheStoreInterface.
type MockCacheStore struct {
	mu       sync.RWMutex
	captains map[string]*redis.CachedCaptain

	// Counters
	GetCallCount int32
	SetCallCount int32
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		captains: make(map[string]*redis.CachedCaptain),
	}
}

func (m *MockCacheStore) GetCaptain(ctx context.Context, captainID string) (*redis.CachedCaptain, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	captain, ok := m.captains[captainID]
	if !ok {
		return nil, nil
	}
	c := *captain
	return &c, nil
}

func (m *MockCacheStore) SetCaptain(ctx context.Context, captain *redis.CachedCaptain) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *captain
	m.captains[captain.ID] = &c
	return nil
}

func (m *MockCacheStore) InvalidateCaptain(ctx context.Context, captainID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.captains, captainID)
	return nil
}

func (m *MockCacheStore) GetCaptainsBatch(ctx context.Context, captainIDs []string) (map[string]*redis.CachedCaptain, []string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]*redis.CachedCaptain)
	var missing []string
	for _, id := range captainIDs {
		if captain, ok := m.captains[id]; ok {
			c := *captain
			result[id] = &c
		} else {
			missing = append(missing, id)
		}
	}
	return result, missing, nil
}

func (m *MockCacheStore) SetCaptainsBatch(ctx context.Context, captains []*redis.CachedCaptain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, captain := range captains {
		c := *captain
		m.captains[captain.ID] = &c
	}
	return nil
}

// ──────────────────────────────────────────────
// MOCK PUSH SENDER
// ──────────────────────────────────────────────

// SentPush records one delivered notification.
type SentPush struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// MockPushSender is a mock implementation of PushSender.
type MockPushSender struct {
	mu   sync.Mutex
	sent []SentPush

	// Counters
	SendCallCount int32

	// Error injection
	SendError error
}

// NewMockPushSender creates a new mock push sender.
func NewMockPushSender() *MockPushSender {
	return &MockPushSender{}
}

func (m *MockPushSender) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	atomic.AddInt32(&m.SendCallCount, 1)
	if m.SendError != nil {
		return m.SendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentPush{Token: token, Title: title, Body: body, Data: data})
	return nil
}

// Sent returns the notifications delivered so far.
func (m *MockPushSender) Sent() []SentPush {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]SentPush, len(m.sent))
	copy(result, m.sent)
	return result
}

// CountSent returns the number of delivered notifications.
func (m *MockPushSender) CountSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
