package marc

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hudmol/yale-accession-marc-export/models"
)

// AgentMapper supplies the host's standard creator-agent mapping: one data
// field per creator agent, copied verbatim into the record.
type AgentMapper interface {
	CreatorFields(accession *models.ResolvedAccession) ([]DataField, error)
}

// EncodingError marks a payment whose record could not be built. It fails
// the owning vendor's batch without touching records already written.
type EncodingError struct {
	PaymentID int64
	Err       error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding payment %d: %v", e.PaymentID, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Encoder accumulates one vendor's records for one round into a spool file.
type Encoder struct {
	vendorCode   string
	runDate      time.Time
	locationCode string
	extension    string
	agents       AgentMapper

	file     *os.File
	count    int
	released bool
}

// NewEncoder opens a fresh spool file for a vendor.
func NewEncoder(vendorCode string, runDate time.Time, locationCode, extension string, agents AgentMapper) (*Encoder, error) {
	file, err := os.CreateTemp("", "AccessionMARCExport")
	if err != nil {
		return nil, fmt.Errorf("marc: creating spool file: %w", err)
	}

	return &Encoder{
		vendorCode:   vendorCode,
		runDate:      runDate,
		locationCode: locationCode,
		extension:    extension,
		agents:       agents,
		file:         file,
	}, nil
}

// Filename is "{vendor}-A-{yyyymmdd}.{ext}", e.g. BHOR-A-20200902.txt.
func (e *Encoder) Filename() string {
	return fmt.Sprintf("%s-A-%s.%s", e.vendorCode, e.runDate.Format("20060102"), e.extension)
}

// PaymentCount reports how many records have been written so far.
func (e *Encoder) PaymentCount() int { return e.count }

// AddPayment appends one record for the (accession, payment) pair.
// Consecutive records are separated by a single CRLF, none before the first.
// On error nothing is written, so earlier records stay intact.
func (e *Encoder) AddPayment(accession *models.ResolvedAccession, payment *models.PendingPayment) error {
	record, err := e.buildRecord(accession, payment)
	if err != nil {
		return &EncodingError{PaymentID: payment.PaymentID, Err: err}
	}

	encoded, err := record.Encode()
	if err != nil {
		return &EncodingError{PaymentID: payment.PaymentID, Err: err}
	}

	if e.count > 0 {
		if _, err := e.file.WriteString("\r\n"); err != nil {
			return &EncodingError{PaymentID: payment.PaymentID, Err: err}
		}
	}
	if _, err := e.file.Write(encoded); err != nil {
		return &EncodingError{PaymentID: payment.PaymentID, Err: err}
	}

	e.count++
	return nil
}

func (e *Encoder) buildRecord(accession *models.ResolvedAccession, payment *models.PendingPayment) (*Record, error) {
	record := &Record{}

	record.Append(e.titleField(accession))
	record.Append(NewDataField("980", "", "", Sub('b', payment.Amount.StringFixed(2))))

	locationSubs := []Subfield{Sub('b', e.locationCode)}
	if fundCode := payment.CompositeFundCode(); fundCode != "" {
		locationSubs = append(locationSubs, Sub('c', fundCode))
	}
	record.Append(NewDataField("981", "", "", locationSubs...))

	var invoiceSubs []Subfield
	if invoice := strings.TrimSpace(payment.InvoiceNumber); invoice != "" {
		invoiceSubs = append(invoiceSubs, Sub('a', invoice))
	}
	invoiceSubs = append(invoiceSubs, Sub('e', accession.FourPartID()))
	record.Append(NewDataField("982", "", "", invoiceSubs...))

	for _, extent := range accession.Extents {
		record.Append(extentField(extent))
	}

	appendNote(record, "506", accession.AccessRestrictionsNote)
	appendNote(record, "520", accession.ContentDescription)
	appendNote(record, "561", accession.Provenance)

	creatorFields, err := e.agents.CreatorFields(accession)
	if err != nil {
		return nil, err
	}
	for _, field := range creatorFields {
		record.Append(field)
	}

	return record, nil
}

// titleField renders 245: $a title, $f the joined single/inclusive dates,
// $g the remaining (bulk) dates.
func (e *Encoder) titleField(accession *models.ResolvedAccession) DataField {
	subfields := []Subfield{Sub('a', accession.Title)}

	var ranged, bulk []string
	for _, date := range accession.Dates {
		display := date.Display()
		if display == "" {
			continue
		}

		switch date.Type {
		case models.DateTypeSingle, models.DateTypeInclusive:
			ranged = append(ranged, display)
		default:
			bulk = append(bulk, display)
		}
	}

	if len(ranged) > 0 {
		subfields = append(subfields, Sub('f', strings.Join(ranged, ", ")))
	}
	if len(bulk) > 0 {
		subfields = append(subfields, Sub('g', fmt.Sprintf("(bulk: %s).", strings.Join(bulk, ", "))))
	}

	return NewDataField("245", "0", "", subfields...)
}

func extentField(extent models.ExtentStatement) DataField {
	description := extent.TypeLabel()
	if summary := strings.TrimSpace(extent.ContainerSummary); summary != "" {
		description = description + " " + parenthesized(summary)
	}

	return NewDataField("300", "", "",
		Sub('a', extent.Number),
		Sub('f', description))
}

// parenthesized wraps s in parentheses unless it already is, end to end.
func parenthesized(s string) string {
	if isFullyParenthesized(s) {
		return s
	}
	return "(" + s + ")"
}

func isFullyParenthesized(s string) bool {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return false
	}

	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && i < len(s)-1 {
			return false
		}
	}

	return depth == 0
}

func appendNote(record *Record, tag, note string) {
	if trimmed := strings.TrimSpace(note); trimmed != "" {
		record.Append(NewDataField(tag, "", "", Sub('a', trimmed)))
	}
}

// OutputHandle flushes the spool file and rewinds it for delivery.
func (e *Encoder) OutputHandle() (*os.File, error) {
	if err := e.file.Sync(); err != nil {
		return nil, fmt.Errorf("marc: flushing spool file: %w", err)
	}
	if _, err := e.file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("marc: rewinding spool file: %w", err)
	}
	return e.file, nil
}

// Release removes the spool file. Safe to call more than once.
func (e *Encoder) Release() {
	if e.released {
		return
	}
	e.released = true

	name := e.file.Name()
	e.file.Close()
	os.Remove(name)
}
