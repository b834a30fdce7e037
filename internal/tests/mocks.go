package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jerrymcma/rideglad-sub000/internal/domain"
	"github.com/jerrymcma/rideglad-sub000/internal/redis"
	"github.com/jerrymcma/rideglad-sub000/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is a mock implementation of TripRepository. State
// transitions keep the conditional-update semantics of the real
// repository: they only land when the trip is in the expected state,
// under a single mutex, so race tests observe exactly one winner.
type MockTripRepository struct {
	mu    sync.RWMutex
	trips map[string]*domain.Trip

	// Counters for verification
	CreateCallCount int32
	MatchCallCount  int32
	CancelCallCount int32

	// Error injection
	CreateError error
	MatchError  error
	GetError    error
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{
		trips: make(map[string]*domain.Trip),
	}
}

// AddTrip adds a trip to the mock repository (for test setup).
func (m *MockTripRepository) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
}

func (m *MockTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Mirror of the partial unique index: one non-terminal trip per rider.
	for _, t := range m.trips {
		if t.RiderID == trip.RiderID && !t.Status.IsTerminal() {
			return repository.ErrDuplicate
		}
	}
	copy := *trip
	m.trips[trip.ID] = &copy
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *trip
	return &copy, nil
}

func (m *MockTripRepository) GetActiveByRiderID(ctx context.Context, riderID string) (*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.trips {
		if t.RiderID == riderID && !t.Status.IsTerminal() {
			copy := *t
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockTripRepository) GetActiveByDriverID(ctx context.Context, driverID string) ([]*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Trip
	for _, t := range m.trips {
		if t.DriverID == driverID && !t.Status.IsTerminal() {
			copy := *t
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockTripRepository) Match(ctx context.Context, tripID, driverID, vehicleID string, at time.Time) (bool, error) {
	atomic.AddInt32(&m.MatchCallCount, 1)
	if m.MatchError != nil {
		return false, m.MatchError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok || trip.Status != domain.TripStatusRequested {
		return false, nil
	}
	trip.Status = domain.TripStatusMatched
	trip.DriverID = driverID
	trip.VehicleID = vehicleID
	trip.MatchedAt = at
	return true, nil
}

func (m *MockTripRepository) MarkPickup(ctx context.Context, tripID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok || trip.Status != domain.TripStatusMatched {
		return false, nil
	}
	trip.Status = domain.TripStatusPickup
	return true, nil
}

func (m *MockTripRepository) MarkInProgress(ctx context.Context, tripID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok || trip.Status != domain.TripStatusPickup {
		return false, nil
	}
	trip.Status = domain.TripStatusInProgress
	trip.StartedAt = at
	return true, nil
}

func (m *MockTripRepository) MarkCompleted(ctx context.Context, tripID string, finalPrice float64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok || trip.Status != domain.TripStatusInProgress {
		return false, nil
	}
	trip.Status = domain.TripStatusCompleted
	trip.FinalPrice = finalPrice
	trip.CompletedAt = at
	return true, nil
}

func (m *MockTripRepository) CancelIfRequested(ctx context.Context, tripID string, reason domain.CancelReason, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok || trip.Status != domain.TripStatusRequested {
		return false, nil
	}
	trip.Status = domain.TripStatusCancelled
	trip.CancelReason = reason
	trip.CancelledAt = at
	return true, nil
}

func (m *MockTripRepository) Cancel(ctx context.Context, tripID string, reason domain.CancelReason, at time.Time) (bool, error) {
	atomic.AddInt32(&m.CancelCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok {
		return false, nil
	}
	switch trip.Status {
	case domain.TripStatusRequested, domain.TripStatusMatched, domain.TripStatusPickup:
		trip.Status = domain.TripStatusCancelled
		trip.CancelReason = reason
		trip.CancelledAt = at
		return true, nil
	}
	return false, nil
}

func (m *MockTripRepository) ForceCancel(ctx context.Context, tripID string, reason domain.CancelReason, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok || trip.Status.IsTerminal() {
		return false, nil
	}
	trip.Status = domain.TripStatusCancelled
	trip.CancelReason = reason
	trip.CancelledAt = at
	return true, nil
}

func (m *MockTripRepository) CancelStaleRequested(ctx context.Context, cutoff time.Time, reason domain.CancelReason) ([]*domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var cancelled []*domain.Trip
	for _, t := range m.trips {
		if t.Status == domain.TripStatusRequested && t.RequestedAt.Before(cutoff) {
			t.Status = domain.TripStatusCancelled
			t.CancelReason = reason
			t.CancelledAt = time.Now()
			copy := *t
			cancelled = append(cancelled, &copy)
		}
	}
	return cancelled, nil
}

// GetTrip returns the trip by ID (for test assertions).
func (m *MockTripRepository) GetTrip(id string) *domain.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil
	}
	copy := *trip
	return &copy
}

// CountTrips returns the number of trips.
func (m *MockTripRepository) CountTrips() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trips)
}

// ──────────────────────────────────────────────
// MOCK PLAN REPOSITORY
// ──────────────────────────────────────────────

// MockPlanRepository is a mock implementation of PlanRepository.
type MockPlanRepository struct {
	mu    sync.RWMutex
	plans map[string]*domain.PricingPlan

	// Error injection
	GetError error
}

// NewMockPlanRepository creates a new mock plan repository.
func NewMockPlanRepository() *MockPlanRepository {
	return &MockPlanRepository{
		plans: make(map[string]*domain.PricingPlan),
	}
}

// AddPlan adds a plan to the mock repository.
func (m *MockPlanRepository) AddPlan(plan *domain.PricingPlan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[plan.Name] = plan
}

func (m *MockPlanRepository) Upsert(ctx context.Context, plan *domain.PricingPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *plan
	m.plans[plan.Name] = &copy
	return nil
}

func (m *MockPlanRepository) GetByName(ctx context.Context, name string) (*domain.PricingPlan, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	plan, ok := m.plans[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *plan
	return &copy, nil
}

func (m *MockPlanRepository) ListActive(ctx context.Context) ([]*domain.PricingPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.PricingPlan
	for _, p := range m.plans {
		if p.Active {
			copy := *p
			result = append(result, &copy)
		}
	}
	return result, nil
}

// CountPlans returns the number of plans.
func (m *MockPlanRepository) CountPlans() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.plans)
}

// ──────────────────────────────────────────────
// MOCK PROMO REPOSITORY
// ──────────────────────────────────────────────

// MockPromoRepository is a mock implementation of PromoRepository. The
// usage increment keeps the real repository's conditional semantics so
// exhaustion races resolve to exactly one winner.
type MockPromoRepository struct {
	mu     sync.RWMutex
	promos map[string]*domain.PromoCode
	uses   map[string]map[string]int // code -> userID -> count

	// Counters
	IncrementCallCount int32

	// Error injection
	IncrementError error
}

// NewMockPromoRepository creates a new mock promo repository.
func NewMockPromoRepository() *MockPromoRepository {
	return &MockPromoRepository{
		promos: make(map[string]*domain.PromoCode),
		uses:   make(map[string]map[string]int),
	}
}

// AddPromo adds a promo code to the mock repository.
func (m *MockPromoRepository) AddPromo(promo *domain.PromoCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promos[promo.Code] = promo
}

func (m *MockPromoRepository) Create(ctx context.Context, promo *domain.PromoCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.promos[promo.Code]; ok {
		return repository.ErrDuplicate
	}
	copy := *promo
	m.promos[promo.Code] = &copy
	return nil
}

func (m *MockPromoRepository) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	promo, ok := m.promos[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *promo
	return &copy, nil
}

func (m *MockPromoRepository) CountUsesByUser(ctx context.Context, code, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uses[code][userID], nil
}

func (m *MockPromoRepository) IncrementUsage(ctx context.Context, code string) (bool, error) {
	atomic.AddInt32(&m.IncrementCallCount, 1)
	if m.IncrementError != nil {
		return false, m.IncrementError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	promo, ok := m.promos[code]
	if !ok {
		return false, nil
	}
	if promo.UsageLimit > 0 && promo.UsageCount >= promo.UsageLimit {
		return false, nil
	}
	promo.UsageCount++
	return true, nil
}

func (m *MockPromoRepository) RecordUse(ctx context.Context, code, userID, tripID string, discount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uses[code] == nil {
		m.uses[code] = make(map[string]int)
	}
	m.uses[code][userID]++
	return nil
}

// UsageCount returns the recorded usage count of a code.
func (m *MockPromoRepository) UsageCount(code string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	promo, ok := m.promos[code]
	if !ok {
		return 0
	}
	return promo.UsageCount
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	// Counters
	UpdateStatusCallCount int32

	// Error injection
	UpdateStatusError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[string]*domain.Driver),
	}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

func (m *MockDriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *driver
	m.drivers[driver.ID] = &copy
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *driver
	return &copy, nil
}

func (m *MockDriverRepository) UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	if m.UpdateStatusError != nil {
		return m.UpdateStatusError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Status = status
	return nil
}

// GetDriver returns driver for test assertions.
func (m *MockDriverRepository) GetDriver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[id]
}

// ──────────────────────────────────────────────
// MOCK VEHICLE REPOSITORY
// ──────────────────────────────────────────────

// MockVehicleRepository is a mock implementation of VehicleRepository.
type MockVehicleRepository struct {
	mu       sync.RWMutex
	vehicles map[string]*domain.Vehicle
}

// NewMockVehicleRepository creates a new mock vehicle repository.
func NewMockVehicleRepository() *MockVehicleRepository {
	return &MockVehicleRepository{
		vehicles: make(map[string]*domain.Vehicle),
	}
}

func (m *MockVehicleRepository) Create(ctx context.Context, vehicle *domain.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *vehicle
	m.vehicles[vehicle.ID] = &copy
	return nil
}

func (m *MockVehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vehicle, ok := m.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *vehicle
	return &copy, nil
}

func (m *MockVehicleRepository) GetByDriverID(ctx context.Context, driverID string) ([]*domain.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Vehicle
	for _, v := range m.vehicles {
		if v.DriverID == driverID {
			copy := *v
			result = append(result, &copy)
		}
	}
	return result, nil
}

// CountVehicles returns the number of vehicles.
func (m *MockVehicleRepository) CountVehicles() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vehicles)
}

// ──────────────────────────────────────────────
// MOCK RATING REPOSITORY
// ──────────────────────────────────────────────

// MockRatingRepository is a mock implementation of RatingRepository.
type MockRatingRepository struct {
	mu      sync.RWMutex
	ratings []*domain.Rating

	// Error injection
	CreateError error
}

// NewMockRatingRepository creates a new mock rating repository.
func NewMockRatingRepository() *MockRatingRepository {
	return &MockRatingRepository{}
}

func (m *MockRatingRepository) Create(ctx context.Context, rating *domain.Rating) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.ratings {
		if r.TripID == rating.TripID && r.FromUserID == rating.FromUserID {
			return repository.ErrDuplicate
		}
	}
	copy := *rating
	m.ratings = append(m.ratings, &copy)
	return nil
}

func (m *MockRatingRepository) GetByTripID(ctx context.Context, tripID string) ([]*domain.Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Rating
	for _, r := range m.ratings {
		if r.TripID == tripID {
			copy := *r
			result = append(result, &copy)
		}
	}
	return result, nil
}

// CountRatings returns the number of ratings.
func (m *MockRatingRepository) CountRatings() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ratings)
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStoreInterface.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations []redis.DriverLocation

	// Counters
	UpdateLocationCallCount int32

	// Error injection
	UpdateLocationError    error
	FindNearbyDriversError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make([]redis.DriverLocation, 0),
	}
}

// AddDriverLocation adds a driver location to the mock store.
func (m *MockLocationStore) AddDriverLocation(loc redis.DriverLocation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = append(m.locations, loc)
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	if m.UpdateLocationError != nil {
		return m.UpdateLocationError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.DriverID == driverID {
			m.locations[i].Lat = lat
			m.locations[i].Lng = lng
			return nil
		}
	}
	m.locations = append(m.locations, redis.DriverLocation{
		DriverID: driverID,
		Lat:      lat,
		Lng:      lng,
	})
	return nil
}

func (m *MockLocationStore) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]redis.DriverLocation, error) {
	if m.FindNearbyDriversError != nil {
		return nil, m.FindNearbyDriversError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	// The mock does no geo filtering; every driver is nearby.
	result := make([]redis.DriverLocation, len(m.locations))
	copy(result, m.locations)
	return result, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.DriverID == driverID {
			m.locations = append(m.locations[:i], m.locations[i+1:]...)
			return nil
		}
	}
	return nil
}

// HasLocation checks if a driver location exists.
func (m *MockLocationStore) HasLocation(driverID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, loc := range m.locations {
		if loc.DriverID == driverID {
			return true
		}
	}
	return false
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu     sync.Mutex
	expiry time.Time

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
	return &MockLockStore{}
}

func (m *MockLockStore) AcquireSweepLock(ctx context.Context, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if time.Now().Before(m.expiry) {
		return false, nil // Lock still held.
	}
	m.expiry = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseSweepLock(ctx context.Context) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expiry = time.Time{}
	return nil
}

// ──────────────────────────────────────────────
// MOCK NOTIFIER
// ──────────────────────────────────────────────

// NotifiedCancel records one cancellation notification.
type NotifiedCancel struct {
	RiderID string
	TripID  string
	Reason  domain.CancelReason
}

// MockNotifier is a mock implementation of MatchingNotifier that
// records every notification for assertions.
type MockNotifier struct {
	mu sync.Mutex

	NewTripCount   int32
	MatchedCount   int32
	CancelledCount int32

	cancels []NotifiedCancel
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) NotifyNewTrip(ctx context.Context, trip *domain.Trip) {
	atomic.AddInt32(&m.NewTripCount, 1)
}

func (m *MockNotifier) NotifyMatched(ctx context.Context, riderID, tripID, driverID string) {
	atomic.AddInt32(&m.MatchedCount, 1)
}

func (m *MockNotifier) NotifyCancelled(ctx context.Context, riderID, tripID string, reason domain.CancelReason) {
	atomic.AddInt32(&m.CancelledCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancels = append(m.cancels, NotifiedCancel{RiderID: riderID, TripID: tripID, Reason: reason})
}

// Cancels returns the recorded cancellation notifications.
func (m *MockNotifier) Cancels() []NotifiedCancel {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]NotifiedCancel, len(m.cancels))
	copy(result, m.cancels)
	return result
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBDown  = errors.New("mock: database unavailable")
	ErrMockTimeout = errors.New("mock: operation timeout")
)
