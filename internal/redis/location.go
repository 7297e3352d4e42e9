package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const technicianLocationKey = "technicians:locations"

// TechnicianLocation represents a technician's profile position.
type TechnicianLocation struct {
	TechnicianID string
	Lat          float64
	Lng          float64
}

// LocationStore handles technician profile location operations in Redis.
// This is the durable "last known position" index, not the per-job live feed.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation stores a technician's location using GEOADD.
func (s *LocationStore) UpdateLocation(ctx context.Context, technicianID string, lat, lng float64) error {
	return s.client.GeoAdd(ctx, technicianLocationKey, &redis.GeoLocation{
		Name:      technicianID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// FindNearbyTechnicians returns technician positions within the given radius
// (in kilometers), nearest first.
func (s *LocationStore) FindNearbyTechnicians(ctx context.Context, lat, lng, radiusKm float64) ([]TechnicianLocation, error) {
	results, err := s.client.GeoRadius(ctx, technicianLocationKey, lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	locations := make([]TechnicianLocation, 0, len(results))
	for _, r := range results {
		locations = append(locations, TechnicianLocation{
			TechnicianID: r.Name,
			Lat:          r.Latitude,
			Lng:          r.Longitude,
		})
	}

	return locations, nil
}

// RemoveLocation removes a technician's location from the geo index.
func (s *LocationStore) RemoveLocation(ctx context.Context, technicianID string) error {
	return s.client.ZRem(ctx, technicianLocationKey, technicianID).Err()
}
