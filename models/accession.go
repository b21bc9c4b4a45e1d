package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Accession is the parent record a payment is billed against. Read-only to
// the exporter except for the lock_version/system_mtime bump on commit.
type Accession struct {
	ID                     int64     `json:"id" gorm:"primaryKey"`
	RepoID                 int64     `json:"repoId"`
	Identifier             string    `json:"identifier"`
	Title                  string    `json:"title"`
	AccessRestrictionsNote string    `json:"accessRestrictionsNote"`
	ContentDescription     string    `json:"contentDescription"`
	Provenance             string    `json:"provenance"`
	LockVersion            int64     `json:"lockVersion"`
	SystemMtime            time.Time `json:"systemMtime"`
}

func (Accession) TableName() string { return "accession" }

// FourPartID flattens the JSON-encoded identifier array ("id_0" .. "id_3")
// into the dash-joined form used in the 982$e subfield.
func (a *Accession) FourPartID() string {
	var parts []*string
	if err := json.Unmarshal([]byte(a.Identifier), &parts); err != nil {
		return strings.TrimSpace(a.Identifier)
	}

	present := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != nil && *part != "" {
			present = append(present, *part)
		}
	}

	return strings.Join(present, "-")
}

// AccessionDate is one date statement row linked to an accession.
type AccessionDate struct {
	ID          int64   `json:"id" gorm:"primaryKey"`
	AccessionID int64   `json:"accessionId"`
	DateTypeID  *int64  `json:"dateTypeId"`
	Expression  *string `json:"expression"`
	Begin       *string `json:"begin"`
	End         *string `json:"end"`
}

func (AccessionDate) TableName() string { return "date" }

// Extent is one extent statement row linked to an accession.
type Extent struct {
	ID               int64   `json:"id" gorm:"primaryKey"`
	AccessionID      int64   `json:"accessionId"`
	Number           string  `json:"number"`
	ExtentTypeID     *int64  `json:"extentTypeId"`
	ContainerSummary *string `json:"containerSummary"`
}

func (Extent) TableName() string { return "extent" }

// Date statement types with dedicated rendering in the 245 field.
const (
	DateTypeSingle    = "single"
	DateTypeInclusive = "inclusive"
	DateTypeBulk      = "bulk"
)

// DateStatement is a date row with its type resolved to an enumeration value.
type DateStatement struct {
	Type       string
	Expression string
	Begin      string
	End        string
}

// Display renders the statement: the free-text expression when present,
// otherwise the begin/end pair joined with " - ", dropping absent sides.
func (d DateStatement) Display() string {
	if expr := strings.TrimSpace(d.Expression); expr != "" {
		return expr
	}

	parts := make([]string, 0, 2)
	if begin := strings.TrimSpace(d.Begin); begin != "" {
		parts = append(parts, begin)
	}
	if end := strings.TrimSpace(d.End); end != "" {
		parts = append(parts, end)
	}

	return strings.Join(parts, " - ")
}

// ExtentStatement is an extent row with its type resolved.
type ExtentStatement struct {
	Number           string
	Type             string
	ContainerSummary string
}

// TypeLabel is the human-readable form of the extent type.
func (e ExtentStatement) TypeLabel() string {
	return strings.ReplaceAll(e.Type, "_", " ")
}

// ResolvedAccession is an accession with its reference fields materialized,
// as handed downstream to the record encoder.
type ResolvedAccession struct {
	Accession
	Dates   []DateStatement
	Extents []ExtentStatement
	Agents  []LinkedAgent
}
