package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dlarionov/payment-recon/internal/camt"
	"github.com/dlarionov/payment-recon/internal/exportfile"
	infra "github.com/dlarionov/payment-recon/internal/infra/bigquery"
	"github.com/dlarionov/payment-recon/internal/jobs"
	"github.com/dlarionov/payment-recon/internal/jobs/inmemory"
	"github.com/dlarionov/payment-recon/internal/logger"
	"github.com/dlarionov/payment-recon/internal/pipeline"
)

func main() {
	flag.Parse()

	log := logger.New()

	// In production the queue would be Cloud Tasks or Pub/Sub; the in-memory
	// queue serves single-instance deployments, fed from the command line.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	log.Info().Msg("Starting reconciliation worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := infra.NewParticipantStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create participant store")
	}
	defer store.Close()

	storage := exportfile.NewGCSStorageService()
	recorder := pipeline.NewBigQueryRunRecorder()
	layout := camt.DefaultLayout()
	markers := camt.DefaultMarkers()

	handler := func(ctx context.Context, job jobs.Job) error {
		reconJob, ok := job.(*jobs.ReconcileExportJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", reconJob.JobID).
			Str("export_uri", reconJob.ExportURI).
			Msg("Processing reconciliation job")

		state, err := pipeline.Reconcile(ctx, reconJob.ExportURI, storage, store, recorder, layout, markers)
		if state != nil {
			reconJob.ReconRunID = state.ReconRunID
		}
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", reconJob.JobID).
				Str("export_uri", reconJob.ExportURI).
				Msg("Reconciliation run failed")
			return err
		}

		log.Info().
			Str("job_id", reconJob.JobID).
			Str("recon_run_id", state.ReconRunID).
			Int("matched", len(state.Result.Matched)).
			Int("unmatched", len(state.Result.Unmatched)).
			Int("conflicts", len(state.Result.Conflicts)).
			Msg("Reconciliation run completed; result awaits operator review")

		return nil
	}

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	// Every positional argument is an export URI to enqueue.
	for _, uri := range flag.Args() {
		job := &jobs.ReconcileExportJob{ExportURI: uri}
		if err := jobQueue.PublishReconcileExport(ctx, job); err != nil {
			log.Error().Err(err).Str("export_uri", uri).Msg("Failed to enqueue export")
			continue
		}
		log.Info().Str("job_id", job.JobID).Str("export_uri", uri).Msg("Export enqueued")
	}

	log.Info().Msg("Worker started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker exited")
}
