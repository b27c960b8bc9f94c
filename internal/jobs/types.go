package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeReconcileExport represents a bank-export reconciliation job.
	JobTypeReconcileExport JobType = "reconcile_export"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ReconcileExportJob represents a job to reconcile one bank export from GCS.
// The job only parses and matches; committing payment-state changes always
// stays behind the operator's explicit confirmation.
type ReconcileExportJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// ExportURI is the GCS URI of the export file to reconcile.
	ExportURI string `json:"export_uri"`

	// ReconRunID is the ID of the reconciliation run, once started.
	ReconRunID string `json:"recon_run_id,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ReconcileExportJob) GetID() string        { return j.JobID }
func (j *ReconcileExportJob) GetType() JobType     { return JobTypeReconcileExport }
func (j *ReconcileExportJob) GetStatus() JobStatus { return j.Status }

// Publisher defines the interface for publishing jobs to a queue.
// The abstraction allows different queue implementations (in-memory, Cloud
// Tasks, Pub/Sub).
type Publisher interface {
	PublishReconcileExport(ctx context.Context, job *ReconcileExportJob) error
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue. The handler function is
	// called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error means the job failed and may
// be retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore stores and retrieves job status, so operators can see what
// happened to an export after handing it off.
type JobStore interface {
	SaveJob(ctx context.Context, job *ReconcileExportJob) error
	GetJob(ctx context.Context, jobID string) (*ReconcileExportJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ReconcileExportJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// ExportURI filters jobs by export file.
	ExportURI string

	// Status filters jobs by status.
	Status JobStatus

	Limit  int
	Offset int
}
