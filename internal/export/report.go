package export

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const bannerWidth = 80

// RoundReport collects the human-readable account of one round. It is passed
// down the call graph explicitly; there is no package-level buffer.
type RoundReport struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time

	SkippedMissingVendor   int
	SkippedAmbiguousVendor int
	OversizedFundCodes     int

	buf strings.Builder
}

func NewRoundReport(startedAt time.Time) *RoundReport {
	return &RoundReport{
		RunID:     uuid.New(),
		StartedAt: startedAt,
	}
}

// Logf appends a line at the given indent level and mirrors it to slog.
func (r *RoundReport) Logf(indent int, format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)

	r.buf.WriteString(strings.Repeat("  ", indent))
	r.buf.WriteString(line)
	r.buf.WriteString("\n")

	slog.Info("AccessionMarcExporter: " + line)
}

// Banner writes a message framed by star rules.
func (r *RoundReport) Banner(format string, args ...interface{}) {
	rule := strings.Repeat("*", bannerWidth)
	r.Logf(0, "%s", rule)
	r.Logf(0, format, args...)
	r.Logf(0, "%s", rule)
}

// Blank writes an empty spacer line without logging it.
func (r *RoundReport) Blank() {
	r.buf.WriteString("\n")
}

func (r *RoundReport) String() string {
	return r.buf.String()
}

// VendorOutcome records how one vendor's batch ended.
type VendorOutcome struct {
	VendorCode string
	Filename   string
	Payments   int
	Err        error
}

// RoundResult is the explicit outcome of one round. The retry driver
// inspects it instead of relying on a thrown error for control flow.
type RoundResult struct {
	Report  *RoundReport
	Vendors []VendorOutcome
	Err     error
}

func (r *RoundResult) Failed() bool { return r.Err != nil }

// Summarize appends the closing section: skip counts, per-vendor status
// and the overall verdict.
func (r *RoundResult) Summarize() {
	report := r.Report

	report.Blank()
	report.Logf(0, "Round summary:")
	report.Logf(1, "payments skipped, vendor missing: %d", report.SkippedMissingVendor)
	report.Logf(1, "payments skipped, vendor ambiguous: %d", report.SkippedAmbiguousVendor)
	report.Logf(1, "fund codes over field width: %d", report.OversizedFundCodes)

	for _, vendor := range r.Vendors {
		if vendor.Err != nil {
			report.Logf(1, "vendor %s: FAILED (%v)", vendor.VendorCode, vendor.Err)
		} else {
			report.Logf(1, "vendor %s: ok, %d payments in %s", vendor.VendorCode, vendor.Payments, vendor.Filename)
		}
	}

	if r.Err != nil {
		report.Logf(0, "Round status: errored (%v)", r.Err)
	} else {
		report.Logf(0, "Round status: success")
	}
}
