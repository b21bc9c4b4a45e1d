package export

import (
	"fmt"
	"time"

	"github.com/hudmol/yale-accession-marc-export/models"
)

// Accession lookups are batched so a big round doesn't hammer the database
// with one query per payment.
const accessionBatchSize = 25

// Oversize threshold for the composite fund code (target field width).
const maxFundCodeLength = 10

// PendingPayments is the set of payments eligible for one round, backed by a
// one-time query. Iteration is single-pass: a second Each call yields
// nothing. Callers wanting multiple passes must materialize the triples.
type PendingPayments struct {
	store    Store
	report   *RoundReport
	payments []*models.PendingPayment
	consumed bool
}

// LoadPendingPayments selects every payment eligible on runDate.
func LoadPendingPayments(store Store, runDate time.Time, report *RoundReport) (*PendingPayments, error) {
	payments, err := store.PaymentsToProcess(runDate)
	if err != nil {
		return nil, err
	}

	return &PendingPayments{
		store:    store,
		report:   report,
		payments: payments,
	}, nil
}

func (p *PendingPayments) Empty() bool {
	return len(p.payments) == 0
}

// Each walks the eligible payments as (accession, vendor code, payment)
// triples. Payments with zero or multiple candidate vendors are reported and
// never yielded; they stay unpaid and come back on the next round.
func (p *PendingPayments) Each(fn func(accession *models.ResolvedAccession, vendorCode string, payment *models.PendingPayment) error) error {
	if p.consumed {
		return nil
	}
	p.consumed = true

	accessionIDs := distinctAccessionIDs(p.payments)

	vendorCodes, err := p.store.VendorCodesForAccessions(accessionIDs)
	if err != nil {
		return err
	}

	for _, payment := range p.payments {
		if fundCode := payment.CompositeFundCode(); len(fundCode) > maxFundCodeLength {
			p.report.OversizedFundCodes++
			p.report.Logf(1, "WARNING: composite fund code is greater than %d characters: %s %s",
				maxFundCodeLength, fundCode, payment)
		}

		vendors := vendorCodes[payment.AccessionID]
		switch {
		case len(vendors) > 1:
			p.report.SkippedAmbiguousVendor++
			p.report.Logf(1, "ACTION REQUIRED: payment is associated with two or more vendors and will be skipped - vendors: %v, %s",
				vendors, payment)
		case len(vendors) == 0:
			p.report.SkippedMissingVendor++
			p.report.Logf(1, "ACTION REQUIRED: payment skipped as vendor code missing: %s", payment)
		default:
			payment.VendorCode = vendors[0]
		}
	}

	// Group payments by accession, then resolve accessions a batch at a
	// time so reference fields are loaded in bounded chunks.
	groups, order := groupByAccession(p.payments)

	for start := 0; start < len(order); start += accessionBatchSize {
		end := start + accessionBatchSize
		if end > len(order) {
			end = len(order)
		}
		batchIDs := order[start:end]

		resolved, err := p.store.ResolveAccessions(batchIDs)
		if err != nil {
			return err
		}

		for _, accessionID := range batchIDs {
			for _, payment := range groups[accessionID] {
				if payment.VendorCode == "" {
					continue
				}

				accession, ok := resolved[payment.AccessionID]
				if !ok {
					return fmt.Errorf("accession %d referenced by payment %d not found",
						payment.AccessionID, payment.PaymentID)
				}

				if err := fn(accession, payment.VendorCode, payment); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func distinctAccessionIDs(payments []*models.PendingPayment) []int64 {
	var ids []int64
	seen := make(map[int64]bool)
	for _, payment := range payments {
		if !seen[payment.AccessionID] {
			seen[payment.AccessionID] = true
			ids = append(ids, payment.AccessionID)
		}
	}
	return ids
}

func groupByAccession(payments []*models.PendingPayment) (map[int64][]*models.PendingPayment, []int64) {
	groups := make(map[int64][]*models.PendingPayment)
	var order []int64

	for _, payment := range payments {
		if _, ok := groups[payment.AccessionID]; !ok {
			order = append(order, payment.AccessionID)
		}
		groups[payment.AccessionID] = append(groups[payment.AccessionID], payment)
	}

	return groups, order
}
