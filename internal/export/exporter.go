package export

import (
	"context"
	"time"

	"github.com/hudmol/yale-accession-marc-export/config"
	"github.com/hudmol/yale-accession-marc-export/internal/marc"
	"github.com/hudmol/yale-accession-marc-export/internal/upload"
	"github.com/hudmol/yale-accession-marc-export/models"
)

// Exporter runs export rounds: one MARC file per vendor per round, delivered
// to the configured target, with the paid state committed per vendor.
type Exporter struct {
	store    Store
	uploader upload.Uploader
	notifier Notifier
	agents   marc.AgentMapper
	cfg      *config.Config

	// Overridable for tests.
	now   func() time.Time
	sleep func(context.Context, time.Duration)
}

func New(store Store, uploader upload.Uploader, notifier Notifier, cfg *config.Config) *Exporter {
	return &Exporter{
		store:    store,
		uploader: uploader,
		notifier: notifier,
		agents:   StandardAgentMapper{},
		cfg:      cfg,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// vendorBatch accumulates one vendor's payments and output stream for one
// round. The first error poisons the batch; later payments are not fed to it.
type vendorBatch struct {
	vendorCode string
	encoder    *marc.Encoder
	payments   []*models.PendingPayment
	err        error
}

// RunWithRetry runs rounds until one succeeds or the attempt budget is
// exhausted, sleeping the configured backoff between attempts. Payments
// committed by a partially-successful round drop out of the next round's
// eligible set, so retrying never double-pays.
func (e *Exporter) RunWithRetry(ctx context.Context) error {
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		result := e.RunOnce(e.now())

		if !result.Failed() {
			e.notify(result, "success")
			return nil
		}

		result.Report.Logf(0, "run round failed (attempt %d of %d): %v", attempt, e.cfg.MaxRetries, result.Err)

		if attempt == e.cfg.MaxRetries {
			result.Report.Logf(0, "Tried %d times. Giving up for the day.", e.cfg.MaxRetries)
			e.notify(result, "errored")
			return result.Err
		}

		e.notify(result, "errored")

		e.sleep(ctx, e.cfg.RetryBackoff)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return nil
}

func (e *Exporter) notify(result *RoundResult, status string) {
	if err := e.notifier.Notify(result.Report.String(), status, e.now()); err != nil {
		result.Report.Logf(0, "failed to deliver run report: %v", err)
	}
}

// RunOnce executes a single round for runDate and returns its explicit
// outcome. Per-vendor failures are captured, not raised: every vendor is
// attempted before the round is declared failed.
func (e *Exporter) RunOnce(runDate time.Time) *RoundResult {
	report := NewRoundReport(e.now())
	result := &RoundResult{Report: report}

	report.Banner("AccessionMarcExporter running round %s at %s", report.RunID, report.StartedAt.Format(time.RFC3339))
	report.Blank()

	pending, err := LoadPendingPayments(e.store, runDate, report)
	if err != nil {
		result.Err = err
		e.finishRound(result)
		return result
	}

	if pending.Empty() {
		report.Logf(0, "no pending payments for %s", runDate.Format("2006-01-02"))
		e.finishRound(result)
		return result
	}

	batches := make(map[string]*vendorBatch)
	var vendorOrder []string

	defer func() {
		for _, batch := range batches {
			if batch.encoder != nil {
				batch.encoder.Release()
			}
		}
	}()

	err = pending.Each(func(accession *models.ResolvedAccession, vendorCode string, payment *models.PendingPayment) error {
		batch, ok := batches[vendorCode]
		if !ok {
			batch = &vendorBatch{vendorCode: vendorCode}
			batch.encoder, batch.err = marc.NewEncoder(vendorCode, runDate, e.cfg.LocationCode, e.cfg.FileExtension, e.agents)
			batches[vendorCode] = batch
			vendorOrder = append(vendorOrder, vendorCode)
		}

		if batch.err != nil {
			// The batch is already poisoned; leave its remaining payments
			// unprocessed so the retry round picks them up.
			return nil
		}

		if err := batch.encoder.AddPayment(accession, payment); err != nil {
			batch.err = err
			report.Logf(1, "encoding failed for vendor %s: %v", vendorCode, err)
			return nil
		}

		batch.payments = append(batch.payments, payment)
		return nil
	})
	if err != nil {
		result.Err = err
		e.finishRound(result)
		return result
	}

	for _, vendorCode := range vendorOrder {
		batch := batches[vendorCode]
		outcome := e.deliverBatch(batch, runDate, report)
		result.Vendors = append(result.Vendors, outcome)

		if outcome.Err != nil && result.Err == nil {
			result.Err = outcome.Err
		}
	}

	e.finishRound(result)
	return result
}

// deliverBatch uploads one vendor's file and, only if delivery succeeded,
// commits the paid state for the whole batch.
func (e *Exporter) deliverBatch(batch *vendorBatch, runDate time.Time, report *RoundReport) VendorOutcome {
	outcome := VendorOutcome{
		VendorCode: batch.vendorCode,
		Payments:   len(batch.payments),
	}
	if batch.encoder != nil {
		outcome.Filename = batch.encoder.Filename()
	}

	if batch.err != nil {
		outcome.Err = batch.err
		return outcome
	}

	report.Logf(0, "processing %d payments for vendor %s", len(batch.payments), batch.vendorCode)

	handle, err := batch.encoder.OutputHandle()
	if err != nil {
		outcome.Err = err
		return outcome
	}

	report.Logf(1, "uploading file %s to %s", outcome.Filename, e.uploader.Name())
	if err := e.uploader.Upload(context.Background(), outcome.Filename, handle); err != nil {
		outcome.Err = err
		return outcome
	}

	if err := e.store.MarkPaymentsProcessed(batch.payments, runDate); err != nil {
		outcome.Err = err
		return outcome
	}

	return outcome
}

func (e *Exporter) finishRound(result *RoundResult) {
	result.Report.FinishedAt = e.now()
	result.Summarize()
	result.Report.Blank()
	result.Report.Banner("AccessionMarcExporter finished round at %s", result.Report.FinishedAt.Format(time.RFC3339))
}
