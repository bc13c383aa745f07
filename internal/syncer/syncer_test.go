package syncer

import (
	"context"
	"testing"
	"time"

	"toki/internal/logging"
	"toki/internal/pm"
	"toki/internal/storage"
)

var day = time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Engine, *storage.DB, *pm.Fake) {
	t.Helper()

	db, err := storage.Open(t.TempDir(), logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	fake := pm.NewFake()
	return New(db, fake, logging.Discard()), db, fake
}

func confirmedBlock(t *testing.T, db *storage.DB, sourceRef, workItemID string) *storage.TimeBlock {
	t.Helper()

	block := &storage.TimeBlock{
		StartTime:         day,
		EndTime:           day.Add(90 * time.Minute),
		Description:       "Development on toki",
		Source:            storage.SourceAISuggested,
		SourceExternalRef: sourceRef,
	}
	if workItemID != "" {
		block.WorkItemIDs = []string{workItemID}
	}
	if err := db.SaveTimeBlock(block); err != nil {
		t.Fatal(err)
	}
	if err := db.ConfirmTimeBlock(block.ID); err != nil {
		t.Fatal(err)
	}
	return block
}

func TestSyncCreatesEntryAndLedgerRow(t *testing.T) {
	e, db, fake := setup(t)
	confirmedBlock(t, db, "TOKI-42", "item-1")

	report, err := e.Run(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Created != 1 || report.Skipped != 0 || report.Failed != 0 {
		t.Fatalf("report = %+v", report)
	}
	if len(fake.Entries) != 1 {
		t.Fatalf("pushed %d entries", len(fake.Entries))
	}
	if fake.Entries[0].DurationSeconds != 90*60 {
		t.Errorf("duration = %d", fake.Entries[0].DurationSeconds)
	}

	ledger, err := db.GetSyncedIssue("TOKI-42", "fake", "")
	if err != nil {
		t.Fatal(err)
	}
	if ledger == nil {
		t.Fatal("ledger row missing")
	}
}

func TestResyncIsIdempotent(t *testing.T) {
	e, db, fake := setup(t)

	// Two blocks referring to the same source issue
	confirmedBlock(t, db, "TOKI-42", "item-1")

	ctx := context.Background()
	first, err := e.Run(ctx, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if first.Created != 1 {
		t.Fatalf("first run = %+v", first)
	}

	confirmedBlock(t, db, "TOKI-42", "item-1")
	second, err := e.Run(ctx, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if second.Created != 0 || second.Skipped != 1 {
		t.Fatalf("second run = %+v", second)
	}
	if len(fake.Entries) != 1 {
		t.Errorf("PM received %d entries", len(fake.Entries))
	}

	ledger, err := db.ListSyncedIssues()
	if err != nil {
		t.Fatal(err)
	}
	if len(ledger) != 1 {
		t.Errorf("ledger rows = %d", len(ledger))
	}
}

func TestSameRunDedupesSharedSourceRef(t *testing.T) {
	e, db, fake := setup(t)
	confirmedBlock(t, db, "TOKI-42", "item-1")
	confirmedBlock(t, db, "TOKI-42", "item-1")

	report, err := e.Run(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Created != 1 || report.Skipped != 1 {
		t.Fatalf("report = %+v", report)
	}
	if len(fake.Entries) != 1 {
		t.Errorf("PM received %d entries", len(fake.Entries))
	}

	ledger, err := db.ListSyncedIssues()
	if err != nil {
		t.Fatal(err)
	}
	if len(ledger) != 1 {
		t.Errorf("ledger rows = %d", len(ledger))
	}
}

func TestForceBypassesLedger(t *testing.T) {
	e, db, fake := setup(t)
	confirmedBlock(t, db, "TOKI-42", "item-1")

	ctx := context.Background()
	if _, err := e.Run(ctx, Options{}); err != nil {
		t.Fatal(err)
	}

	confirmedBlock(t, db, "TOKI-42", "item-1")
	report, err := e.Run(ctx, Options{Force: true})
	if err != nil {
		t.Fatal(err)
	}
	if report.Created != 1 {
		t.Fatalf("report = %+v", report)
	}
	if len(fake.Entries) != 2 {
		t.Errorf("PM received %d entries", len(fake.Entries))
	}
}

func TestDryRunMutatesNothing(t *testing.T) {
	e, db, fake := setup(t)
	confirmedBlock(t, db, "TOKI-42", "item-1")

	report, err := e.Run(context.Background(), Options{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if report.Created != 1 {
		t.Fatalf("report = %+v", report)
	}
	if report.Outcomes[0].Kind != OutcomeWouldCreate {
		t.Errorf("outcome = %+v", report.Outcomes[0])
	}
	if len(fake.Entries) != 0 {
		t.Error("dry run pushed an entry")
	}

	blocks, err := db.GetConfirmedUnsyncedBlocks()
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 1 {
		t.Error("dry run consumed the block")
	}
}

func TestFailureKeepsBlockEligible(t *testing.T) {
	e, db, fake := setup(t)
	fake.FailIDs["item-1"] = true
	confirmedBlock(t, db, "TOKI-42", "item-1")

	ctx := context.Background()
	report, err := e.Run(ctx, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed != 1 || len(report.Errors) != 1 {
		t.Fatalf("report = %+v", report)
	}

	// The block stays confirmed and unsynced; a later run succeeds
	delete(fake.FailIDs, "item-1")
	report, err = e.Run(ctx, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Created != 1 {
		t.Fatalf("retry report = %+v", report)
	}
}

func TestUnconfirmedBlocksIgnored(t *testing.T) {
	e, db, fake := setup(t)

	if err := db.SaveTimeBlock(&storage.TimeBlock{
		StartTime:   day,
		EndTime:     day.Add(time.Hour),
		Description: "unconfirmed",
		Source:      storage.SourceAISuggested,
	}); err != nil {
		t.Fatal(err)
	}

	report, err := e.Run(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Outcomes) != 0 || len(fake.Entries) != 0 {
		t.Errorf("report = %+v", report)
	}
}
