package marc

import (
	"strconv"
	"strings"
	"testing"
)

type decodedField struct {
	Tag        string
	Indicators string
	Subfields  []string
}

// decodeRecord walks the ISO 2709 framing back into fields.
func decodeRecord(t *testing.T, data []byte) (string, []decodedField) {
	t.Helper()

	if len(data) < leaderLength {
		t.Fatalf("record shorter than a leader: %d bytes", len(data))
	}
	leader := string(data[:leaderLength])

	recordLength, err := strconv.Atoi(leader[:5])
	if err != nil {
		t.Fatalf("bad record length in leader %q: %v", leader, err)
	}
	if recordLength != len(data) {
		t.Fatalf("leader says %d bytes, record has %d", recordLength, len(data))
	}

	baseAddress, err := strconv.Atoi(leader[12:17])
	if err != nil {
		t.Fatalf("bad base address in leader %q: %v", leader, err)
	}

	if data[baseAddress-1] != fieldTerminator {
		t.Fatalf("directory not terminated at %d", baseAddress-1)
	}
	if data[len(data)-1] != recordTerminator {
		t.Fatal("record not terminated")
	}

	directory := data[leaderLength : baseAddress-1]
	if len(directory)%directoryEntryLength != 0 {
		t.Fatalf("directory length %d not a multiple of %d", len(directory), directoryEntryLength)
	}

	var fields []decodedField
	for i := 0; i < len(directory); i += directoryEntryLength {
		entry := string(directory[i : i+directoryEntryLength])
		tag := entry[:3]
		length, _ := strconv.Atoi(entry[3:7])
		start, _ := strconv.Atoi(entry[7:12])

		raw := data[baseAddress+start : baseAddress+start+length]
		if raw[len(raw)-1] != fieldTerminator {
			t.Fatalf("field %s not terminated", tag)
		}

		parts := strings.Split(string(raw[2:len(raw)-1]), string(rune(subfieldDelimiter)))
		fields = append(fields, decodedField{
			Tag:        tag,
			Indicators: string(raw[:2]),
			Subfields:  parts[1:],
		})
	}

	return leader, fields
}

func TestEncodeLeader(t *testing.T) {
	record := &Record{}
	record.Append(NewDataField("245", "0", "", Sub('a', "Papers")))

	data, err := record.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	leader, fields := decodeRecord(t, data)

	if leader[5:8] != "nam" {
		t.Errorf("leader status/type/level = %q, want %q", leader[5:8], "nam")
	}
	if leader[9] != 'a' {
		t.Errorf("leader position 9 = %q, want UTF-8 flag 'a'", leader[9])
	}
	if leader[10:12] != "22" {
		t.Errorf("leader positions 10-11 = %q, want %q", leader[10:12], "22")
	}
	if leader[20:] != "4500" {
		t.Errorf("leader tail = %q, want %q", leader[20:], "4500")
	}

	if len(fields) != 1 || fields[0].Tag != "245" {
		t.Fatalf("decoded fields = %+v", fields)
	}
	if fields[0].Indicators != "0 " {
		t.Errorf("indicators = %q, want %q", fields[0].Indicators, "0 ")
	}
	if len(fields[0].Subfields) != 1 || fields[0].Subfields[0] != "aPapers" {
		t.Errorf("subfields = %v", fields[0].Subfields)
	}
}

func TestEncodeSortsFieldsByTag(t *testing.T) {
	record := &Record{}
	record.Append(NewDataField("981", "", "", Sub('b', "beints")))
	record.Append(NewDataField("245", "0", "", Sub('a', "Papers")))
	record.Append(NewDataField("980", "", "", Sub('b', "10.00")))

	data, err := record.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	_, fields := decodeRecord(t, data)

	var tags []string
	for _, field := range fields {
		tags = append(tags, field.Tag)
	}

	want := []string{"245", "980", "981"}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("field order = %v, want %v", tags, want)
		}
	}
}

func TestEncodeSortIsStable(t *testing.T) {
	record := &Record{}
	record.Append(NewDataField("982", "", "", Sub('a', "first")))
	record.Append(NewDataField("982", "", "", Sub('a', "second")))

	data, err := record.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	_, fields := decodeRecord(t, data)
	if fields[0].Subfields[0] != "afirst" || fields[1].Subfields[0] != "asecond" {
		t.Errorf("equal tags reordered: %+v", fields)
	}
}

func TestEncodeRejectsBadTag(t *testing.T) {
	record := &Record{}
	record.Append(NewDataField("24", "", "", Sub('a', "x")))

	if _, err := record.Encode(); err == nil {
		t.Fatal("expected an error for a malformed tag")
	}
}
