package tests

import (
	"context"
	"sync"
	"testing"

	"dispatch/internal/service"
)

func newTechnicianService() (*service.TechnicianService, *MockTechnicianRepository) {
	repo := NewMockTechnicianRepository()
	return service.NewTechnicianService(repo, nil, nil), repo
}

func TestTechnicianProfile_CreatedOnFirstReference(t *testing.T) {
	svc, repo := newTechnicianService()
	ctx := context.Background()

	tech, err := svc.Profile(ctx, "tech-1")
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if tech.UserID != "tech-1" {
		t.Errorf("expected user ID tech-1, got %s", tech.UserID)
	}
	if !tech.CanAcceptJobs {
		t.Error("new technician should be allowed to accept jobs")
	}

	// Second lookup returns the same profile, not a new one.
	if _, err := svc.Profile(ctx, "tech-1"); err != nil {
		t.Fatalf("second Profile failed: %v", err)
	}
	if repo.CountTechnicians() != 1 {
		t.Errorf("expected 1 technician, got %d", repo.CountTechnicians())
	}

	if _, err := svc.Profile(ctx, ""); err != service.ErrInvalidTechnicianID {
		t.Errorf("expected ErrInvalidTechnicianID, got %v", err)
	}
}

func TestTechnicianProfile_ConcurrentFirstReference(t *testing.T) {
	svc, repo := newTechnicianService()
	ctx := context.Background()

	const callers = 20
	var wg sync.WaitGroup
	errs := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Profile(ctx, "tech-1"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Profile failed: %v", err)
	}
	// Every caller lands on the same row; first touch creates exactly one.
	if repo.CountTechnicians() != 1 {
		t.Errorf("expected 1 technician after concurrent first touch, got %d", repo.CountTechnicians())
	}
}

func TestTechnicianUpdateProfile(t *testing.T) {
	svc, repo := newTechnicianService()
	ctx := context.Background()

	err := svc.UpdateProfile(ctx, service.UpdateProfileRequest{
		TechnicianID: "tech-1",
		Name:         "Asha",
		Phone:        "9876543210",
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}

	tech := repo.GetTechnician("tech-1")
	if tech.Name != "Asha" || tech.Phone != "9876543210" {
		t.Errorf("profile not updated: name=%q phone=%q", tech.Name, tech.Phone)
	}
}

func TestTechnicianPresence(t *testing.T) {
	svc, repo := newTechnicianService()
	ctx := context.Background()

	if err := svc.GoOnline(ctx, "tech-1"); err != nil {
		t.Fatalf("GoOnline failed: %v", err)
	}
	if !repo.GetTechnician("tech-1").IsOnline {
		t.Error("technician should be online")
	}

	if err := svc.GoOffline(ctx, "tech-1"); err != nil {
		t.Fatalf("GoOffline failed: %v", err)
	}
	if repo.GetTechnician("tech-1").IsOnline {
		t.Error("technician should be offline")
	}

	if err := svc.GoOnline(ctx, ""); err != service.ErrInvalidTechnicianID {
		t.Errorf("expected ErrInvalidTechnicianID, got %v", err)
	}
}

func TestTechnicianUpdateLocation(t *testing.T) {
	svc, repo := newTechnicianService()
	ctx := context.Background()

	err := svc.UpdateLocation(ctx, service.UpdateLocationRequest{
		TechnicianID: "tech-1",
		Lat:          12.9716,
		Lng:          77.5946,
		Address:      "MG Road",
	})
	// Profile must exist before a location update lands.
	if err == nil {
		t.Fatal("expected error updating location for unknown technician")
	}

	if _, err := svc.Profile(ctx, "tech-1"); err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if err := svc.UpdateLocation(ctx, service.UpdateLocationRequest{
		TechnicianID: "tech-1",
		Lat:          12.9716,
		Lng:          77.5946,
		Address:      "MG Road",
	}); err != nil {
		t.Fatalf("UpdateLocation failed: %v", err)
	}

	tech := repo.GetTechnician("tech-1")
	if tech.Lat != 12.9716 || tech.Lng != 77.5946 {
		t.Errorf("location not stored: lat=%.4f lng=%.4f", tech.Lat, tech.Lng)
	}
	if tech.LocationUpdatedAt.IsZero() {
		t.Error("expected location timestamp")
	}

	// Out-of-range coordinates are rejected.
	err = svc.UpdateLocation(ctx, service.UpdateLocationRequest{
		TechnicianID: "tech-1",
		Lat:          95,
		Lng:          77.5946,
	})
	if err != service.ErrInvalidPickupLocation {
		t.Errorf("expected ErrInvalidPickupLocation, got %v", err)
	}
}

func TestResetDailyStats(t *testing.T) {
	svc, repo := newTechnicianService()
	ctx := context.Background()

	svc.Profile(ctx, "tech-1")
	repo.GetTechnician("tech-1").Stats.TodayEarnings = 850
	repo.GetTechnician("tech-1").Stats.TotalJobs = 12

	if err := svc.ResetDailyStats(ctx); err != nil {
		t.Fatalf("ResetDailyStats failed: %v", err)
	}

	tech := repo.GetTechnician("tech-1")
	if tech.Stats.TodayEarnings != 0 {
		t.Errorf("today earnings should be zeroed, got %.2f", tech.Stats.TodayEarnings)
	}
	if tech.Stats.TotalJobs != 12 {
		t.Errorf("lifetime counters should survive the reset, got %d", tech.Stats.TotalJobs)
	}
}

func TestCustomerRegister(t *testing.T) {
	repo := NewMockCustomerRepository()
	svc := service.NewCustomerService(repo)
	ctx := context.Background()

	customer, err := svc.Register(ctx, service.RegisterCustomerRequest{Name: "Ravi", Phone: "9000000001"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if customer.ID == "" {
		t.Error("expected generated customer ID")
	}

	// Duplicate phone is rejected.
	_, err = svc.Register(ctx, service.RegisterCustomerRequest{Name: "Other", Phone: "9000000001"})
	if err != service.ErrCustomerExists {
		t.Errorf("expected ErrCustomerExists, got %v", err)
	}

	_, err = svc.Register(ctx, service.RegisterCustomerRequest{Name: "NoPhone"})
	if err != service.ErrInvalidPhone {
		t.Errorf("expected ErrInvalidPhone, got %v", err)
	}

	got, err := svc.Get(ctx, customer.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Phone != "9000000001" {
		t.Errorf("unexpected customer: %+v", got)
	}
}
