// Package export drives the accession MARC export round: selecting pending
// payments, resolving vendors, encoding per-vendor files, delivering them and
// committing the paid state.
package export

import (
	"time"

	"github.com/hudmol/yale-accession-marc-export/models"
)

// Store is the data-access surface the export round needs from the host.
type Store interface {
	// PaymentsToProcess returns every payment with payment_date <= runDate,
	// ok_to_pay set and date_paid unset, coded attributes resolved.
	PaymentsToProcess(runDate time.Time) ([]*models.PendingPayment, error)

	// VendorCodesForAccessions returns, per accession id, the distinct vendor
	// codes of linked agents with role "source" and the vendor-designation
	// relator, across all agent subtypes.
	VendorCodesForAccessions(accessionIDs []int64) (map[int64][]string, error)

	// ResolveAccessions loads the given accessions with their reference
	// fields (dates, extents, linked agents) materialized.
	ResolveAccessions(accessionIDs []int64) (map[int64]*models.ResolvedAccession, error)

	// MarkPaymentsProcessed sets date_paid on the given payments and bumps
	// each parent accession's lock_version and system_mtime, atomically.
	MarkPaymentsProcessed(payments []*models.PendingPayment, runDate time.Time) error
}

// Notifier receives the run report once a round (or retry sequence) settles.
type Notifier interface {
	Notify(report string, status string, at time.Time) error
}
