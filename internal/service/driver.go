package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/jerrymcma/rideglad-sub000/internal/domain"
	"github.com/jerrymcma/rideglad-sub000/internal/redis"
	"github.com/jerrymcma/rideglad-sub000/internal/repository"
)

// DriverService handles driver presence: registration, location updates
// into the geo index, and the online/offline status flips. Going
// offline is the one presence change with lifecycle consequences; the
// trip service force-cancels the driver's active trips.
type DriverService struct {
	driverRepo    repository.DriverRepository
	vehicleRepo   repository.VehicleRepository
	locationStore redis.LocationStoreInterface
	tripService   *TripService
}

// NewDriverService creates a new DriverService.
func NewDriverService(
	driverRepo repository.DriverRepository,
	vehicleRepo repository.VehicleRepository,
	locationStore redis.LocationStoreInterface,
	tripService *TripService,
) *DriverService {
	return &DriverService{
		driverRepo:    driverRepo,
		vehicleRepo:   vehicleRepo,
		locationStore: locationStore,
		tripService:   tripService,
	}
}

// RegisterDriverRequest contains the parameters for registering a
// driver together with their vehicle.
type RegisterDriverRequest struct {
	Name         string
	Phone        string
	VehicleMake  string
	VehicleModel string
	VehiclePlate string
	VehicleType  string
}

// Register creates a driver with their vehicle, starting offline.
func (s *DriverService) Register(ctx context.Context, req RegisterDriverRequest) (*domain.Driver, *domain.Vehicle, error) {
	if req.Name == "" || req.Phone == "" {
		return nil, nil, ErrInvalidDriverID
	}

	driver := &domain.Driver{
		ID:     uuid.New().String(),
		Name:   req.Name,
		Phone:  req.Phone,
		Status: domain.DriverStatusOffline,
	}
	if err := s.driverRepo.Create(ctx, driver); err != nil {
		return nil, nil, err
	}

	vehicle := &domain.Vehicle{
		ID:       uuid.New().String(),
		DriverID: driver.ID,
		Make:     req.VehicleMake,
		Model:    req.VehicleModel,
		Plate:    req.VehiclePlate,
		Type:     req.VehicleType,
	}
	if err := s.vehicleRepo.Create(ctx, vehicle); err != nil {
		return nil, nil, err
	}

	return driver, vehicle, nil
}

// UpdateLocation records the driver's position in the geo index.
func (s *DriverService) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	if !isValidLatitude(lat) || !isValidLongitude(lng) {
		return ErrInvalidPickupLocation
	}
	return s.locationStore.UpdateLocation(ctx, driverID, lat, lng)
}

// GoOnline marks the driver available for matching.
func (s *DriverService) GoOnline(ctx context.Context, driverID string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	return s.driverRepo.UpdateStatus(ctx, driverID, domain.DriverStatusOnline)
}

// GoOffline marks the driver unavailable, drops them from the geo
// index, and force-cancels any trips they were matched to.
func (s *DriverService) GoOffline(ctx context.Context, driverID string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}

	if err := s.driverRepo.UpdateStatus(ctx, driverID, domain.DriverStatusOffline); err != nil {
		return err
	}

	if s.locationStore != nil {
		_ = s.locationStore.RemoveLocation(ctx, driverID)
	}

	if s.tripService != nil {
		return s.tripService.CancelForDriverOffline(ctx, driverID)
	}
	return nil
}

// GetDriver retrieves a driver by ID.
func (s *DriverService) GetDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.driverRepo.GetByID(ctx, driverID)
}
