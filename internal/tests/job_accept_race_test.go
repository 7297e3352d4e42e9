package tests

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

func TestAcceptRace_SingleWinner(t *testing.T) {
	f := newJobFixture()
	ctx := context.Background()

	job, err := f.svc.Request(ctx, postpaidRequest())
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	const contenders = 20

	var wg sync.WaitGroup
	results := make([]error, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.Accept(ctx, service.AcceptJobRequest{
				JobID:        job.ID,
				TechnicianID: fmt.Sprintf("tech-%d", i),
			})
		}(i)
	}
	wg.Wait()

	winners, losers := 0, 0
	for _, err := range results {
		switch err {
		case nil:
			winners++
		case service.ErrJobUnavailable:
			losers++
		default:
			t.Errorf("unexpected error from contender: %v", err)
		}
	}

	if winners != 1 {
		t.Errorf("expected exactly 1 winner, got %d", winners)
	}
	if losers != contenders-1 {
		t.Errorf("expected %d losers, got %d", contenders-1, losers)
	}

	stored := f.jobs.GetJob(job.ID)
	if stored.Status != domain.JobStatusAccepted {
		t.Errorf("expected status ACCEPTED, got %s", stored.Status)
	}
	if stored.TechnicianID == "" {
		t.Error("winner's technician ID not recorded")
	}
}

func TestAcceptRace_IdempotentReaccept(t *testing.T) {
	f := newJobFixture()
	ctx := context.Background()

	job, _ := f.svc.Request(ctx, postpaidRequest())

	first, err := f.svc.Accept(ctx, service.AcceptJobRequest{JobID: job.ID, TechnicianID: "tech-1"})
	if err != nil {
		t.Fatalf("first accept failed: %v", err)
	}

	// The winner retrying (e.g. after a timeout) succeeds and keeps the
	// original OTP.
	second, err := f.svc.Accept(ctx, service.AcceptJobRequest{JobID: job.ID, TechnicianID: "tech-1"})
	if err != nil {
		t.Fatalf("re-accept by winner failed: %v", err)
	}
	if second.ArrivalOTP != first.ArrivalOTP {
		t.Errorf("re-accept changed the arrival OTP: %q -> %q", first.ArrivalOTP, second.ArrivalOTP)
	}

	// Anyone else is turned away.
	_, err = f.svc.Accept(ctx, service.AcceptJobRequest{JobID: job.ID, TechnicianID: "tech-2"})
	if err != service.ErrJobUnavailable {
		t.Errorf("expected ErrJobUnavailable for loser, got %v", err)
	}
}

func TestAccept_UnknownJob(t *testing.T) {
	f := newJobFixture()
	ctx := context.Background()

	_, err := f.svc.Accept(ctx, service.AcceptJobRequest{JobID: "no-such-job", TechnicianID: "tech-1"})
	if err == nil || err == service.ErrJobUnavailable {
		t.Errorf("expected not-found error for unknown job, got %v", err)
	}
}

func TestAccept_BlockedTechnician(t *testing.T) {
	f := newJobFixture()
	ctx := context.Background()

	f.technicians.AddTechnician(&domain.Technician{
		UserID:        "tech-blocked",
		CanAcceptJobs: false,
	})

	job, _ := f.svc.Request(ctx, postpaidRequest())

	_, err := f.svc.Accept(ctx, service.AcceptJobRequest{JobID: job.ID, TechnicianID: "tech-blocked"})
	if err != service.ErrTechnicianNotPermitted {
		t.Errorf("expected ErrTechnicianNotPermitted, got %v", err)
	}

	if stored := f.jobs.GetJob(job.ID); stored.Status != domain.JobStatusRequested {
		t.Errorf("job should remain REQUESTED, got %s", stored.Status)
	}
}
