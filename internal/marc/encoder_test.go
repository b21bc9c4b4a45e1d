package marc

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hudmol/yale-accession-marc-export/models"
)

type stubAgents struct {
	fields []DataField
	err    error
}

func (s stubAgents) CreatorFields(*models.ResolvedAccession) ([]DataField, error) {
	return s.fields, s.err
}

var runDate = time.Date(2020, 9, 2, 0, 0, 0, 0, time.UTC)

func newTestEncoder(t *testing.T, agents AgentMapper) *Encoder {
	t.Helper()

	enc, err := NewEncoder("BHOR", runDate, "beints", "txt", agents)
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	t.Cleanup(enc.Release)

	return enc
}

func testAccession() *models.ResolvedAccession {
	return &models.ResolvedAccession{
		Accession: models.Accession{
			ID:         1,
			Title:      "Borrow Historical Society records",
			Identifier: `["2020", "M", "045", null]`,
		},
	}
}

func testPayment() *models.PendingPayment {
	return &models.PendingPayment{
		AccessionID:   1,
		PaymentID:     10,
		PaymentDate:   runDate,
		Amount:        decimal.RequireFromString("1234.5"),
		InvoiceNumber: "INV-77",
		FundCode:      "ABC",
		CostCenter:    "1234",
		SpendCategory: "XYZ99",
	}
}

func encoderOutput(t *testing.T, enc *Encoder) []byte {
	t.Helper()

	handle, err := enc.OutputHandle()
	if err != nil {
		t.Fatalf("OutputHandle failed: %v", err)
	}
	data, err := io.ReadAll(handle)
	if err != nil {
		t.Fatalf("reading output failed: %v", err)
	}

	return data
}

func fieldsByTag(fields []decodedField) map[string][]decodedField {
	result := make(map[string][]decodedField)
	for _, field := range fields {
		result[field.Tag] = append(result[field.Tag], field)
	}
	return result
}

func TestFilename(t *testing.T) {
	enc := newTestEncoder(t, stubAgents{})
	if got := enc.Filename(); got != "BHOR-A-20200902.txt" {
		t.Errorf("Filename() = %q, want %q", got, "BHOR-A-20200902.txt")
	}
}

func TestAddPaymentBaseFields(t *testing.T) {
	enc := newTestEncoder(t, stubAgents{})

	if err := enc.AddPayment(testAccession(), testPayment()); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}

	_, fields := decodeRecord(t, encoderOutput(t, enc))
	byTag := fieldsByTag(fields)

	if got := byTag["245"][0].Subfields; len(got) != 1 || got[0] != "aBorrow Historical Society records" {
		t.Errorf("245 subfields = %v", got)
	}
	if got := byTag["980"][0].Subfields; got[0] != "b1234.50" {
		t.Errorf("980 amount = %v, want fixed 2 decimals", got)
	}
	if got := byTag["981"][0].Subfields; got[0] != "bbeints" || got[1] != "cABC4Z99" {
		t.Errorf("981 subfields = %v", got)
	}
	if got := byTag["982"][0].Subfields; got[0] != "aINV-77" || got[1] != "e2020-M-045" {
		t.Errorf("982 subfields = %v", got)
	}
}

func TestAddPaymentOmitsEmptyConditionalSubfields(t *testing.T) {
	enc := newTestEncoder(t, stubAgents{})

	payment := testPayment()
	payment.InvoiceNumber = "   "
	payment.FundCode = "-/-"
	payment.CostCenter = "."
	payment.SpendCategory = "!!"

	if err := enc.AddPayment(testAccession(), payment); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}

	_, fields := decodeRecord(t, encoderOutput(t, enc))
	byTag := fieldsByTag(fields)

	if got := byTag["981"][0].Subfields; len(got) != 1 || got[0] != "bbeints" {
		t.Errorf("981 should only carry the location code, got %v", got)
	}
	if got := byTag["982"][0].Subfields; len(got) != 1 || got[0] != "e2020-M-045" {
		t.Errorf("982 should only carry the identifier, got %v", got)
	}
}

func TestAddPaymentDates(t *testing.T) {
	enc := newTestEncoder(t, stubAgents{})

	accession := testAccession()
	accession.Dates = []models.DateStatement{
		{Type: models.DateTypeInclusive, Begin: "1890", End: "1920"},
		{Type: models.DateTypeSingle, Expression: "circa 1900"},
		{Type: models.DateTypeBulk, Begin: "1900", End: "1910"},
	}

	if err := enc.AddPayment(accession, testPayment()); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}

	_, fields := decodeRecord(t, encoderOutput(t, enc))
	byTag := fieldsByTag(fields)

	got := byTag["245"][0].Subfields
	if len(got) != 3 {
		t.Fatalf("245 subfields = %v", got)
	}
	if got[1] != "f1890 - 1920, circa 1900" {
		t.Errorf("245$f = %q", got[1])
	}
	if got[2] != "g(bulk: 1900 - 1910)." {
		t.Errorf("245$g = %q", got[2])
	}
}

func TestAddPaymentExtents(t *testing.T) {
	enc := newTestEncoder(t, stubAgents{})

	accession := testAccession()
	accession.Extents = []models.ExtentStatement{
		{Number: "5", Type: "linear_feet", ContainerSummary: "5 boxes"},
		{Number: "2", Type: "volumes", ContainerSummary: "(2 bound volumes)"},
		{Number: "1", Type: "reels"},
	}

	if err := enc.AddPayment(accession, testPayment()); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}

	_, fields := decodeRecord(t, encoderOutput(t, enc))
	extents := fieldsByTag(fields)["300"]

	if len(extents) != 3 {
		t.Fatalf("expected 3 extent fields, got %d", len(extents))
	}
	if extents[0].Subfields[1] != "flinear feet (5 boxes)" {
		t.Errorf("300$f = %q", extents[0].Subfields[1])
	}
	if extents[1].Subfields[1] != "fvolumes (2 bound volumes)" {
		t.Errorf("already parenthesized summary double-wrapped: %q", extents[1].Subfields[1])
	}
	if extents[2].Subfields[1] != "freels" {
		t.Errorf("300$f without summary = %q", extents[2].Subfields[1])
	}
}

func TestAddPaymentNotes(t *testing.T) {
	enc := newTestEncoder(t, stubAgents{})

	accession := testAccession()
	accession.AccessRestrictionsNote = "Closed until 2030."
	accession.ContentDescription = "   "
	accession.Provenance = "Gift of the Borrow family."

	if err := enc.AddPayment(accession, testPayment()); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}

	_, fields := decodeRecord(t, encoderOutput(t, enc))
	byTag := fieldsByTag(fields)

	if got := byTag["506"]; len(got) != 1 || got[0].Subfields[0] != "aClosed until 2030." {
		t.Errorf("506 = %+v", got)
	}
	if got := byTag["520"]; len(got) != 0 {
		t.Errorf("blank content description still emitted: %+v", got)
	}
	if got := byTag["561"]; len(got) != 1 || got[0].Subfields[0] != "aGift of the Borrow family." {
		t.Errorf("561 = %+v", got)
	}
}

func TestAddPaymentCopiesCreatorFields(t *testing.T) {
	enc := newTestEncoder(t, stubAgents{
		fields: []DataField{
			NewDataField("100", "1", "", Sub('a', "Borrow, George"), Sub('e', "creator")),
		},
	})

	if err := enc.AddPayment(testAccession(), testPayment()); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}

	_, fields := decodeRecord(t, encoderOutput(t, enc))
	byTag := fieldsByTag(fields)

	got := byTag["100"]
	if len(got) != 1 || got[0].Indicators != "1 " {
		t.Fatalf("100 = %+v", got)
	}
	if got[0].Subfields[0] != "aBorrow, George" || got[0].Subfields[1] != "ecreator" {
		t.Errorf("100 subfields = %v", got[0].Subfields)
	}
}

func TestRecordsSeparatedBySingleBlankLine(t *testing.T) {
	enc := newTestEncoder(t, stubAgents{})

	if err := enc.AddPayment(testAccession(), testPayment()); err != nil {
		t.Fatalf("first AddPayment failed: %v", err)
	}
	if err := enc.AddPayment(testAccession(), testPayment()); err != nil {
		t.Fatalf("second AddPayment failed: %v", err)
	}

	data := encoderOutput(t, enc)

	if bytes.Count(data, []byte("\r\n")) != 1 {
		t.Errorf("expected exactly one record separator, found %d", bytes.Count(data, []byte("\r\n")))
	}
	if bytes.HasPrefix(data, []byte("\r\n")) {
		t.Error("separator written before the first record")
	}
	if bytes.HasSuffix(data, []byte("\r\n")) {
		t.Error("trailing separator after the last record")
	}
}

func TestAddPaymentFailureLeavesStreamIntact(t *testing.T) {
	failing := stubAgents{err: errors.New("mapping blew up")}
	enc := newTestEncoder(t, failing)

	// First payment goes through with a working mapper.
	enc.agents = stubAgents{}
	if err := enc.AddPayment(testAccession(), testPayment()); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}
	before := encoderOutput(t, enc)

	enc.agents = failing
	err := enc.AddPayment(testAccession(), testPayment())
	if err == nil {
		t.Fatal("expected an encoding error")
	}

	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("error type = %T, want *EncodingError", err)
	}
	if encErr.PaymentID != 10 {
		t.Errorf("EncodingError.PaymentID = %d, want 10", encErr.PaymentID)
	}

	after := encoderOutput(t, enc)
	if !bytes.Equal(before, after) {
		t.Error("failed payment modified the already-written stream")
	}
	if enc.PaymentCount() != 1 {
		t.Errorf("PaymentCount() = %d, want 1", enc.PaymentCount())
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	enc := newTestEncoder(t, stubAgents{})
	enc.Release()
	enc.Release()
}
