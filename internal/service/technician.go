package service

import (
	"context"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// TechnicianService handles technician profile and presence operations.
type TechnicianService struct {
	technicianRepo repository.TechnicianRepository
	cache          *redis.CacheStore
	locations      redis.LocationStoreInterface
}

// NewTechnicianService creates a new TechnicianService. cache and locations
// may be nil; presence tracking then falls back to the store alone.
func NewTechnicianService(
	technicianRepo repository.TechnicianRepository,
	cache *redis.CacheStore,
	locations redis.LocationStoreInterface,
) *TechnicianService {
	return &TechnicianService{
		technicianRepo: technicianRepo,
		cache:          cache,
		locations:      locations,
	}
}

// Profile returns the technician's profile, creating it on first reference.
// The cache serves repeat lookups within its TTL window.
func (s *TechnicianService) Profile(ctx context.Context, technicianID string) (*domain.Technician, error) {
	if technicianID == "" {
		return nil, ErrInvalidTechnicianID
	}

	tech, err := s.technicianRepo.GetOrCreate(ctx, technicianID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.SetTechnician(ctx, &redis.CachedTechnician{
			UserID:        tech.UserID,
			Name:          tech.Name,
			Phone:         tech.Phone,
			IsOnline:      tech.IsOnline,
			CanAcceptJobs: tech.CanAcceptJobs,
			Balance:       tech.Wallet.Balance,
			CommissionDue: tech.Wallet.CommissionDue,
		})
	}

	return tech, nil
}

// UpdateProfileRequest contains the parameters for editing a profile.
type UpdateProfileRequest struct {
	TechnicianID string
	Name         string
	Phone        string
}

// UpdateProfile sets the technician's name and phone.
func (s *TechnicianService) UpdateProfile(ctx context.Context, req UpdateProfileRequest) error {
	if req.TechnicianID == "" {
		return ErrInvalidTechnicianID
	}

	if _, err := s.technicianRepo.GetOrCreate(ctx, req.TechnicianID); err != nil {
		return err
	}
	if err := s.technicianRepo.UpdateProfile(ctx, req.TechnicianID, req.Name, req.Phone); err != nil {
		return err
	}

	s.invalidate(ctx, req.TechnicianID)
	return nil
}

// GoOnline marks the technician available for dispatch.
func (s *TechnicianService) GoOnline(ctx context.Context, technicianID string) error {
	return s.setOnline(ctx, technicianID, true)
}

// GoOffline removes the technician from dispatch and drops their geo entry.
func (s *TechnicianService) GoOffline(ctx context.Context, technicianID string) error {
	if err := s.setOnline(ctx, technicianID, false); err != nil {
		return err
	}
	if s.locations != nil {
		_ = s.locations.RemoveLocation(ctx, technicianID)
	}
	return nil
}

func (s *TechnicianService) setOnline(ctx context.Context, technicianID string, online bool) error {
	if technicianID == "" {
		return ErrInvalidTechnicianID
	}

	if _, err := s.technicianRepo.GetOrCreate(ctx, technicianID); err != nil {
		return err
	}
	if err := s.technicianRepo.SetOnline(ctx, technicianID, online); err != nil {
		return err
	}

	if s.cache != nil {
		if online {
			_ = s.cache.AddOnlineTechnician(ctx, technicianID)
		} else {
			_ = s.cache.RemoveOnlineTechnician(ctx, technicianID)
		}
		_ = s.cache.InvalidateTechnician(ctx, technicianID)
	}
	return nil
}

// UpdateLocationRequest contains the parameters for a profile location update.
type UpdateLocationRequest struct {
	TechnicianID string
	Lat          float64
	Lng          float64
	Address      string
}

// UpdateLocation stores the technician's last known position. This is the
// durable profile location used for nearby lookups, distinct from the
// per-job live feed.
func (s *TechnicianService) UpdateLocation(ctx context.Context, req UpdateLocationRequest) error {
	if req.TechnicianID == "" {
		return ErrInvalidTechnicianID
	}
	if !isValidLatitude(req.Lat) || !isValidLongitude(req.Lng) {
		return ErrInvalidPickupLocation
	}

	if err := s.technicianRepo.UpdateLocation(ctx, req.TechnicianID, req.Lat, req.Lng, req.Address, time.Now()); err != nil {
		return err
	}

	if s.locations != nil {
		_ = s.locations.UpdateLocation(ctx, req.TechnicianID, req.Lat, req.Lng)
	}
	return nil
}

// FindNearby returns online technicians within radiusKm of the point.
func (s *TechnicianService) FindNearby(ctx context.Context, lat, lng, radiusKm float64) ([]redis.TechnicianLocation, error) {
	if !isValidLatitude(lat) || !isValidLongitude(lng) {
		return nil, ErrInvalidPickupLocation
	}
	if s.locations == nil {
		return nil, nil
	}
	return s.locations.FindNearbyTechnicians(ctx, lat, lng, radiusKm)
}

// List returns all technician profiles.
func (s *TechnicianService) List(ctx context.Context) ([]*domain.Technician, error) {
	return s.technicianRepo.GetAll(ctx)
}

// ResetDailyStats zeroes today's earnings for every technician. Run once a
// day by the scheduler in main.
func (s *TechnicianService) ResetDailyStats(ctx context.Context) error {
	return s.technicianRepo.ResetDailyStats(ctx)
}

func (s *TechnicianService) invalidate(ctx context.Context, technicianID string) {
	if s.cache != nil {
		_ = s.cache.InvalidateTechnician(ctx, technicianID)
	}
}
