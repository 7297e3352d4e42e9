package tests

import (
	"context"
	"testing"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

func TestRequestJob_Validation(t *testing.T) {
	f := newJobFixture()
	ctx := context.Background()

	cases := []struct {
		name    string
		mutate  func(*service.RequestJobRequest)
		wantErr error
	}{
		{
			name:    "missing customer",
			mutate:  func(r *service.RequestJobRequest) { r.CustomerID = "" },
			wantErr: service.ErrInvalidCustomerID,
		},
		{
			name:    "missing service type",
			mutate:  func(r *service.RequestJobRequest) { r.ServiceType = "" },
			wantErr: service.ErrInvalidServiceType,
		},
		{
			name:    "latitude out of range",
			mutate:  func(r *service.RequestJobRequest) { r.PickupLat = 91 },
			wantErr: service.ErrInvalidPickupLocation,
		},
		{
			name:    "longitude out of range",
			mutate:  func(r *service.RequestJobRequest) { r.PickupLng = -181 },
			wantErr: service.ErrInvalidPickupLocation,
		},
		{
			name:    "zero price",
			mutate:  func(r *service.RequestJobRequest) { r.Price = 0 },
			wantErr: service.ErrInvalidPrice,
		},
		{
			name:    "negative price",
			mutate:  func(r *service.RequestJobRequest) { r.Price = -50 },
			wantErr: service.ErrInvalidPrice,
		},
		{
			name:    "cash on delivery disabled",
			mutate:  func(r *service.RequestJobRequest) { r.PaymentMethod = domain.PaymentMethodCOD },
			wantErr: service.ErrCODDisabled,
		},
		{
			name:    "unknown payment method",
			mutate:  func(r *service.RequestJobRequest) { r.PaymentMethod = "BARTER" },
			wantErr: service.ErrInvalidPaymentMethod,
		},
		{
			name:    "unknown payment timing",
			mutate:  func(r *service.RequestJobRequest) { r.PaymentTiming = "SOMEDAY" },
			wantErr: service.ErrInvalidPaymentMethod,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := postpaidRequest()
			tc.mutate(&req)

			_, err := f.svc.Request(ctx, req)
			if err != tc.wantErr {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	if count := f.jobs.CreateCallCount; count != 0 {
		t.Errorf("no jobs should have been created, got %d creates", count)
	}
}

func TestRequestJob_Defaults(t *testing.T) {
	f := newJobFixture()
	ctx := context.Background()

	job, err := f.svc.Request(ctx, postpaidRequest())
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if job.PaymentMethod != domain.PaymentMethodOnline {
		t.Errorf("expected default ONLINE method, got %s", job.PaymentMethod)
	}
	if job.PaymentTiming != domain.PaymentTimingPostpaid {
		t.Errorf("expected default POSTPAID timing, got %s", job.PaymentTiming)
	}
	if job.PaymentStatus != domain.PaymentStatusUnpaid {
		t.Errorf("expected UNPAID status, got %s", job.PaymentStatus)
	}
	if job.ID == "" {
		t.Error("expected generated job ID")
	}
}

func TestCompleteJob_OTPFormat(t *testing.T) {
	f := newJobFixture()
	ctx := context.Background()

	job, _ := f.svc.Request(ctx, postpaidRequest())
	accepted, _ := f.svc.Accept(ctx, service.AcceptJobRequest{JobID: job.ID, TechnicianID: "tech-1"})
	f.svc.VerifyArrival(ctx, service.VerifyArrivalRequest{JobID: job.ID, TechnicianID: "tech-1", OTP: accepted.ArrivalOTP})
	f.svc.StartService(ctx, service.StartServiceRequest{JobID: job.ID, TechnicianID: "tech-1"})
	f.svc.EndService(ctx, service.EndServiceRequest{JobID: job.ID, TechnicianID: "tech-1"})
	f.svc.PaymentSuccess(ctx, job.ID)

	cases := []struct {
		name string
		otp  string
	}{
		{"too short", "1234"},
		{"too long", "123456"},
		{"non numeric", "12a45"},
		{"empty", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Complete(ctx, service.CompleteJobRequest{
				JobID: job.ID, TechnicianID: "tech-1", OTP: tc.otp,
			})
			if err != service.ErrMalformedOTP {
				t.Errorf("expected ErrMalformedOTP, got %v", err)
			}
		})
	}
}

func TestJobService_EmptyIDs(t *testing.T) {
	f := newJobFixture()
	ctx := context.Background()

	if _, err := f.svc.Accept(ctx, service.AcceptJobRequest{TechnicianID: "tech-1"}); err != service.ErrInvalidJobID {
		t.Errorf("expected ErrInvalidJobID, got %v", err)
	}
	if _, err := f.svc.Accept(ctx, service.AcceptJobRequest{JobID: "job-1"}); err != service.ErrInvalidTechnicianID {
		t.Errorf("expected ErrInvalidTechnicianID, got %v", err)
	}
	if _, err := f.svc.GetJob(ctx, ""); err != service.ErrInvalidJobID {
		t.Errorf("expected ErrInvalidJobID, got %v", err)
	}
	if _, err := f.svc.PaymentSuccess(ctx, ""); err != service.ErrInvalidJobID {
		t.Errorf("expected ErrInvalidJobID, got %v", err)
	}
	if _, err := f.svc.ActiveJobs(ctx, ""); err != service.ErrInvalidTechnicianID {
		t.Errorf("expected ErrInvalidTechnicianID, got %v", err)
	}
}
