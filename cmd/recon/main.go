package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dlarionov/payment-recon/internal/camt"
	"github.com/dlarionov/payment-recon/internal/domain"
	"github.com/dlarionov/payment-recon/internal/exportfile"
	infra "github.com/dlarionov/payment-recon/internal/infra/bigquery"
	"github.com/dlarionov/payment-recon/internal/logger"
	"github.com/dlarionov/payment-recon/internal/match"
	"github.com/dlarionov/payment-recon/internal/reconcile"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runReconcile(log)
	case "upload":
		runUpload(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Payment Reconciliation CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  recon <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  run       Parse a bank export, match it against participants, optionally commit")
	fmt.Println("  upload    Upload an export file to GCS")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'recon <command> -h' for more information on a command.")
}

func runReconcile(log zerolog.Logger) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	file := fs.String("file", "", "Path to a local export file")
	gcsURI := fs.String("gcs-uri", "", "GCS URI of the export (alternative to -file)")
	charset := fs.String("charset", "latin1", "Export charset: latin1 or utf8")
	commit := fs.Bool("commit", false, "Propose and commit payment-state changes after matching")
	yes := fs.Bool("yes", false, "Skip the interactive confirmation before committing")
	markPaid := fs.String("mark-paid", "", "Comma-separated participant IDs to mark paid manually")
	markUnpaid := fs.String("mark-unpaid", "", "Comma-separated participant IDs to revert to unpaid")
	fs.Parse(os.Args[2:])

	if (*file == "") == (*gcsURI == "") {
		fmt.Fprintln(os.Stderr, "Exactly one of -file or -gcs-uri is required")
		os.Exit(1)
	}

	ctx := logger.WithContext(context.Background(), log)

	raw, sourceURI, err := readExport(ctx, *file, *gcsURI)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read export")
	}

	text := raw
	if *charset == "latin1" {
		text, err = camt.DecodeLatin1(raw)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to decode export")
		}
	}

	txs, parseErrs, err := camt.ParseExport(bytes.NewReader(text), camt.DefaultLayout(), camt.DefaultMarkers())
	if err != nil {
		log.Fatal().Err(err).Str("export", sourceURI).Msg("Export is unreadable")
	}

	if len(parseErrs) > 0 {
		fmt.Printf("Export rejected: %d row error(s). Fix the export and run again.\n", len(parseErrs))
		for _, pe := range parseErrs {
			fmt.Printf("  %s\n", pe)
		}
		os.Exit(1)
	}

	store, err := infra.NewParticipantStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create participant store")
	}
	defer store.Close()

	ids, err := store.ListKnownIdentifiers(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list participant identifiers")
	}

	result := match.Match(txs, ids, match.SubstringFinder{})
	printResult(txs, result)

	if !*commit {
		return
	}

	manual := parseSelections(*markPaid, *markUnpaid)

	session := reconcile.NewSession(store, log)
	if err := session.Propose(ctx, result, manual); err != nil {
		log.Fatal().Err(err).Msg("Failed to stage proposals")
	}

	proposedPaid := session.ProposedPaid()
	proposedUnpaid := session.ProposedUnpaid()
	if len(proposedPaid) == 0 && len(proposedUnpaid) == 0 {
		fmt.Println("\nNo changes to payment state detected.")
		if err := session.Discard(); err != nil {
			log.Fatal().Err(err).Msg("Failed to discard session")
		}
		return
	}

	fmt.Printf("\nProposed changes (session %s):\n", session.ID())
	for _, id := range proposedPaid {
		fmt.Printf("  mark paid:   %s\n", id)
	}
	for _, id := range proposedUnpaid {
		fmt.Printf("  mark unpaid: %s\n", id)
	}

	if !*yes && !confirm() {
		if err := session.Discard(); err != nil {
			log.Fatal().Err(err).Msg("Failed to discard session")
		}
		fmt.Println("Discarded. No changes written.")
		return
	}

	today := civil.DateOf(time.Now())
	report, err := session.Commit(ctx, today)
	if err != nil {
		log.Fatal().Err(err).Msg("Commit failed")
	}

	if err := store.RecordCommit(ctx, commitLogRows(session.ID(), report)); err != nil {
		log.Error().Err(err).Msg("Failed to append commit log")
	}

	fmt.Printf("\nCommitted: %d marked paid, %d reverted, %d failed\n",
		len(report.Paid), len(report.Unpaid), len(report.Failed))
	for _, f := range report.Failed {
		fmt.Printf("  FAILED %s: %v\n", f.Participant, f.Err)
	}
	if len(report.Failed) > 0 {
		// Failed writes are retried by simply re-running reconciliation.
		os.Exit(1)
	}
}

func readExport(ctx context.Context, file, gcsURI string) ([]byte, string, error) {
	if file != "" {
		raw, err := os.ReadFile(file)
		return raw, file, err
	}
	storage := exportfile.NewGCSStorageService()
	raw, err := storage.Fetch(ctx, gcsURI)
	return raw, gcsURI, err
}

func printResult(txs []camt.Transaction, result match.Result) {
	fmt.Printf("Parsed %d transaction(s): %d matched, %d unmatched, %d conflict(s)\n",
		len(txs), len(result.Matched), len(result.Unmatched), len(result.Conflicts))

	if len(result.Matched) > 0 {
		fmt.Println("\nMatched:")
		for _, pair := range result.Matched {
			fmt.Printf("  %s <- %s\n", pair.Participant, pair.Transaction)
		}
	}
	if len(result.Unmatched) > 0 {
		fmt.Println("\nUnmatched (no identifier found; resolve manually):")
		for _, tx := range result.Unmatched {
			fmt.Printf("  %s\n", tx)
		}
	}
	if len(result.Conflicts) > 0 {
		fmt.Println("\nConflicts (manual resolution required):")
		for _, c := range result.Conflicts {
			switch c.Kind {
			case match.ConflictMultiIdentifier:
				fmt.Printf("  transaction contains %d identifiers %v: %s\n",
					len(c.Participants), c.Participants, c.Transactions[0])
			case match.ConflictDuplicateIdentifier:
				fmt.Printf("  identifier %s appears in %d transactions:\n", c.Participants[0], len(c.Transactions))
				for _, tx := range c.Transactions {
					fmt.Printf("    %s\n", tx)
				}
			}
		}
	} else {
		fmt.Println("\nNo conflicts: the batch is clean.")
	}
}

func parseSelections(markPaid, markUnpaid string) []reconcile.ManualSelection {
	var selections []reconcile.ManualSelection
	for _, raw := range splitIDs(markPaid) {
		selections = append(selections, reconcile.ManualSelection{
			Participant: domain.ParticipantID(raw),
			MarkPaid:    true,
		})
	}
	for _, raw := range splitIDs(markUnpaid) {
		selections = append(selections, reconcile.ManualSelection{
			Participant: domain.ParticipantID(raw),
			MarkPaid:    false,
		})
	}
	return selections
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func confirm() bool {
	fmt.Print("\nApply these changes? [y/N] ")
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func commitLogRows(sessionID string, report reconcile.Report) []*infra.CommitLogRow {
	now := time.Now()
	var rows []*infra.CommitLogRow
	for _, id := range report.Paid {
		rows = append(rows, &infra.CommitLogRow{
			SessionID:     sessionID,
			ParticipantID: string(id),
			Action:        "SET_PAID",
			Succeeded:     true,
			CommittedTS:   now,
		})
	}
	for _, id := range report.Unpaid {
		rows = append(rows, &infra.CommitLogRow{
			SessionID:     sessionID,
			ParticipantID: string(id),
			Action:        "SET_UNPAID",
			Succeeded:     true,
			CommittedTS:   now,
		})
	}
	for _, f := range report.Failed {
		action := "SET_UNPAID"
		if f.MarkPaid {
			action = "SET_PAID"
		}
		rows = append(rows, &infra.CommitLogRow{
			SessionID:     sessionID,
			ParticipantID: string(f.Participant),
			Action:        action,
			Succeeded:     false,
			ErrorMessage:  f.Err.Error(),
			CommittedTS:   now,
		})
	}
	return rows
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	file := fs.String("file", "", "Path to the local export file")
	bucket := fs.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket (or set GCS_BUCKET env)")
	object := fs.String("object", "", "Object name (defaults to exports/<date>/<filename>)")
	fs.Parse(os.Args[2:])

	if *file == "" || *bucket == "" {
		fmt.Fprintln(os.Stderr, "-file and -bucket are required")
		os.Exit(1)
	}

	objectName := *object
	if objectName == "" {
		objectName = fmt.Sprintf("exports/%s/%s", time.Now().Format("2006/01/02"), filepath.Base(*file))
	}

	ctx := context.Background()
	storage := exportfile.NewGCSStorageService()
	if err := storage.Upload(ctx, *bucket, objectName, *file); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded to gs://%s/%s\n", *bucket, objectName)
}
