// Package marc builds MARC transmission records for accession payments and
// frames them as ISO 2709 with a UTF-8 leader.
package marc

import (
	"bytes"
	"fmt"
	"sort"
)

const (
	subfieldDelimiter = 0x1f
	fieldTerminator   = 0x1e
	recordTerminator  = 0x1d

	leaderLength         = 24
	directoryEntryLength = 12

	maxRecordLength = 99999
	maxFieldLength  = 9999
)

// Subfield is a single coded value inside a data field.
type Subfield struct {
	Code  byte
	Value string
}

// Sub is shorthand for building a subfield.
func Sub(code byte, value string) Subfield {
	return Subfield{Code: code, Value: value}
}

// DataField is a variable field with two indicators and ordered subfields.
type DataField struct {
	Tag        string
	Indicator1 string
	Indicator2 string
	Subfields  []Subfield
}

// NewDataField builds a data field. Absent indicators default to blank.
func NewDataField(tag, ind1, ind2 string, subfields ...Subfield) DataField {
	return DataField{Tag: tag, Indicator1: ind1, Indicator2: ind2, Subfields: subfields}
}

func indicatorByte(ind string) byte {
	if ind == "" {
		return ' '
	}
	return ind[0]
}

// Record is one bibliographic record under construction.
type Record struct {
	Fields []DataField
}

// Append adds a field to the record.
func (r *Record) Append(field DataField) {
	r.Fields = append(r.Fields, field)
}

// Encode frames the record as ISO 2709: a 24-byte leader, a directory entry
// per field, then the field data. Fields are sorted by tag before the
// directory is built; ties keep insertion order.
func (r *Record) Encode() ([]byte, error) {
	fields := make([]DataField, len(r.Fields))
	copy(fields, r.Fields)
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Tag < fields[j].Tag
	})

	var directory bytes.Buffer
	var data bytes.Buffer

	for _, field := range fields {
		if len(field.Tag) != 3 {
			return nil, fmt.Errorf("marc: bad field tag %q", field.Tag)
		}

		start := data.Len()

		data.WriteByte(indicatorByte(field.Indicator1))
		data.WriteByte(indicatorByte(field.Indicator2))
		for _, sub := range field.Subfields {
			data.WriteByte(subfieldDelimiter)
			data.WriteByte(sub.Code)
			data.WriteString(sub.Value)
		}
		data.WriteByte(fieldTerminator)

		length := data.Len() - start
		if length > maxFieldLength {
			return nil, fmt.Errorf("marc: field %s exceeds %d bytes", field.Tag, maxFieldLength)
		}

		fmt.Fprintf(&directory, "%s%04d%05d", field.Tag, length, start)
	}

	baseAddress := leaderLength + directory.Len() + 1
	recordLength := baseAddress + data.Len() + 1
	if recordLength > maxRecordLength {
		return nil, fmt.Errorf("marc: record exceeds %d bytes", maxRecordLength)
	}

	var out bytes.Buffer
	out.Grow(recordLength)
	// Leader: status n, type a, level m, UTF-8 flag at position 9.
	fmt.Fprintf(&out, "%05dnam a22%05d   4500", recordLength, baseAddress)
	out.Write(directory.Bytes())
	out.WriteByte(fieldTerminator)
	out.Write(data.Bytes())
	out.WriteByte(recordTerminator)

	return out.Bytes(), nil
}
