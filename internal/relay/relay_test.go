package relay

import (
	"sync"
	"testing"
	"time"
)

func TestRelay_SetAndGet(t *testing.T) {
	t.Parallel()

	r := New(Options{})

	err := r.Set("job-1", Sample{
		Lat:             20.0,
		Lng:             85.0,
		Bearing:         90,
		Speed:           12.5,
		ClientTimestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	s, ok := r.Get("job-1")
	if !ok {
		t.Fatal("expected sample to be found")
	}
	if s.JobID != "job-1" {
		t.Errorf("expected job ID job-1, got %s", s.JobID)
	}
	if s.Lat != 20.0 || s.Lng != 85.0 {
		t.Errorf("unexpected coordinates: (%v, %v)", s.Lat, s.Lng)
	}
	if s.ServerReceivedAt.IsZero() {
		t.Error("expected ServerReceivedAt to be stamped")
	}
}

func TestRelay_StaleWriteRejected(t *testing.T) {
	t.Parallel()

	r := New(Options{StaleThreshold: 30 * time.Second})

	err := r.Set("job-1", Sample{
		Lat:             20.0,
		Lng:             85.0,
		ClientTimestamp: time.Now().Add(-31 * time.Second),
	})
	if err != ErrStaleSample {
		t.Fatalf("expected ErrStaleSample, got: %v", err)
	}

	if _, ok := r.Get("job-1"); ok {
		t.Error("stale sample must not be stored")
	}
}

func TestRelay_OverwriteKeepsLatest(t *testing.T) {
	t.Parallel()

	r := New(Options{})

	for i, lat := range []float64{10.0, 11.0, 12.0} {
		err := r.Set("job-1", Sample{Lat: lat, Lng: float64(i), ClientTimestamp: time.Now()})
		if err != nil {
			t.Fatalf("set %d: %v", i, err)
		}
	}

	s, ok := r.Get("job-1")
	if !ok {
		t.Fatal("expected sample")
	}
	if s.Lat != 12.0 {
		t.Errorf("expected latest sample (lat=12.0), got lat=%v", s.Lat)
	}
	if r.Len() != 1 {
		t.Errorf("expected exactly one stored sample, got %d", r.Len())
	}
}

func TestRelay_ReadTimeStaleness(t *testing.T) {
	t.Parallel()

	r := New(Options{StaleThreshold: 30 * time.Second})

	base := time.Now()
	r.now = func() time.Time { return base }

	if err := r.Set("job-1", Sample{Lat: 1, Lng: 2, ClientTimestamp: base}); err != nil {
		t.Fatalf("set: %v", err)
	}

	// Age the stored sample past the threshold without a refresh.
	r.now = func() time.Time { return base.Add(31 * time.Second) }

	if _, ok := r.Get("job-1"); ok {
		t.Error("aged sample must be unreadable before the sweep runs")
	}

	// Lazy eviction on read.
	if r.Len() != 0 {
		t.Errorf("expected lazy eviction, got %d samples", r.Len())
	}
}

func TestRelay_SweepEvictsAgedEntries(t *testing.T) {
	t.Parallel()

	r := New(Options{StaleThreshold: 30 * time.Second})

	base := time.Now()
	r.now = func() time.Time { return base }

	if err := r.Set("job-old", Sample{ClientTimestamp: base}); err != nil {
		t.Fatalf("set: %v", err)
	}

	r.now = func() time.Time { return base.Add(20 * time.Second) }
	if err := r.Set("job-fresh", Sample{ClientTimestamp: base.Add(20 * time.Second)}); err != nil {
		t.Fatalf("set: %v", err)
	}

	r.now = func() time.Time { return base.Add(35 * time.Second) }
	r.Sweep()

	if _, ok := r.Get("job-old"); ok {
		t.Error("expected job-old to be swept")
	}
	if _, ok := r.Get("job-fresh"); !ok {
		t.Error("expected job-fresh to survive the sweep")
	}
}

func TestRelay_Remove(t *testing.T) {
	t.Parallel()

	r := New(Options{})

	if err := r.Set("job-1", Sample{ClientTimestamp: time.Now()}); err != nil {
		t.Fatalf("set: %v", err)
	}

	r.Remove("job-1")

	if _, ok := r.Get("job-1"); ok {
		t.Error("expected sample to be removed")
	}
}

func TestRelay_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	r := New(Options{SweepInterval: time.Millisecond})
	r.Start()
	defer r.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = r.Set("job-1", Sample{Lat: float64(j), ClientTimestamp: time.Now()})
				r.Get("job-1")
			}
		}()
	}
	wg.Wait()

	if _, ok := r.Get("job-1"); !ok {
		t.Error("expected a fresh sample to remain readable")
	}
}
