package inmemory

import (
	"context"
	"testing"

	"github.com/dlarionov/payment-recon/internal/jobs"
)

func TestStore_SaveAndGet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	job := &jobs.ReconcileExportJob{
		JobID:     "job-1",
		ExportURI: "gs://bucket/exports/a.csv",
		Status:    jobs.JobStatusPending,
	}
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	got, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.ExportURI != job.ExportURI {
		t.Errorf("ExportURI = %q, want %q", got.ExportURI, job.ExportURI)
	}

	// The store hands out copies.
	got.Status = jobs.JobStatusFailed
	again, _ := store.GetJob(ctx, "job-1")
	if again.Status != jobs.JobStatusPending {
		t.Errorf("store copy mutated: Status = %q", again.Status)
	}
}

func TestStore_SaveRequiresID(t *testing.T) {
	store := NewStore()
	if err := store.SaveJob(context.Background(), &jobs.ReconcileExportJob{}); err == nil {
		t.Fatal("expected error for job without ID")
	}
}

func TestStore_GetMissing(t *testing.T) {
	store := NewStore()
	if _, err := store.GetJob(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown job")
	}
}

func TestStore_ListJobs(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	seed := []*jobs.ReconcileExportJob{
		{JobID: "j1", ExportURI: "gs://b/a.csv", Status: jobs.JobStatusPending},
		{JobID: "j2", ExportURI: "gs://b/a.csv", Status: jobs.JobStatusCompleted},
		{JobID: "j3", ExportURI: "gs://b/b.csv", Status: jobs.JobStatusCompleted},
	}
	for _, j := range seed {
		if err := store.SaveJob(ctx, j); err != nil {
			t.Fatalf("SaveJob(%s) failed: %v", j.JobID, err)
		}
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   int
	}{
		{"no filter", jobs.JobFilter{}, 3},
		{"by export URI", jobs.JobFilter{ExportURI: "gs://b/a.csv"}, 2},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusCompleted}, 2},
		{"by both", jobs.JobFilter{ExportURI: "gs://b/b.csv", Status: jobs.JobStatusCompleted}, 1},
		{"limit", jobs.JobFilter{Limit: 2}, 2},
		{"offset past end", jobs.JobFilter{Offset: 5}, 0},
		{"no match", jobs.JobFilter{ExportURI: "gs://elsewhere"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListJobs failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d jobs, want %d", len(got), tt.want)
			}
		})
	}
}

func TestStore_UpdateJobStatus(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	job := &jobs.ReconcileExportJob{JobID: "j1", Status: jobs.JobStatusRunning}
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	if err := store.UpdateJobStatus(ctx, "j1", jobs.JobStatusFailed, "boom"); err != nil {
		t.Fatalf("UpdateJobStatus failed: %v", err)
	}
	got, _ := store.GetJob(ctx, "j1")
	if got.Status != jobs.JobStatusFailed || got.Error != "boom" {
		t.Errorf("job after update: %+v", got)
	}

	if err := store.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, ""); err == nil {
		t.Fatal("expected error for unknown job")
	}
}
