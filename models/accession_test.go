package models

import "testing"

func TestFourPartID(t *testing.T) {
	cases := []struct {
		name       string
		identifier string
		want       string
	}{
		{"all four parts", `["2020", "M", "045", "B"]`, "2020-M-045-B"},
		{"null parts dropped", `["2020", null, "045", null]`, "2020-045"},
		{"empty parts dropped", `["2020", "", "045", ""]`, "2020-045"},
		{"not json", "RG.123", "RG.123"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := &Accession{Identifier: tc.identifier}
			if got := a.FourPartID(); got != tc.want {
				t.Errorf("FourPartID() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDateStatementDisplay(t *testing.T) {
	cases := []struct {
		name string
		date DateStatement
		want string
	}{
		{"expression wins", DateStatement{Expression: "circa 1900", Begin: "1899", End: "1901"}, "circa 1900"},
		{"begin and end", DateStatement{Begin: "1899", End: "1901"}, "1899 - 1901"},
		{"begin only", DateStatement{Begin: "1899"}, "1899"},
		{"end only", DateStatement{End: "1901"}, "1901"},
		{"blank expression falls through", DateStatement{Expression: "  ", Begin: "1899"}, "1899"},
		{"nothing", DateStatement{}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.date.Display(); got != tc.want {
				t.Errorf("Display() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtentTypeLabel(t *testing.T) {
	e := ExtentStatement{Type: "linear_feet"}
	if got := e.TypeLabel(); got != "linear feet" {
		t.Errorf("TypeLabel() = %q, want %q", got, "linear feet")
	}
}
