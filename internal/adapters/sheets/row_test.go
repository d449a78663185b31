package sheets

import "testing"

func TestParseRowCurrentLayout(t *testing.T) {
	raw := []interface{}{"5", "U3", "Carl", "G1", "2025-01-05", "2025-01-05 05:01:00", "2025-01-05 05:01:00 CST", "general"}
	row, ok := parseRow(raw)
	if !ok {
		t.Fatal("expected current-layout row to parse")
	}
	if row.DayNumber != 5 || row.UserID != "U3" || row.Community != "G1" {
		t.Fatalf("row = %+v", row)
	}
	if row.ObservationDate != "2025-01-05" || row.ChannelName != "general" {
		t.Fatalf("metadata = %+v", row)
	}
}

func TestParseRowCurrentLayoutNumericDay(t *testing.T) {
	// RAW-appended day cells can come back as numbers, not strings.
	raw := []interface{}{float64(9), "U1", "Ann", "G1", "2025-01-09", "", "", "general"}
	row, ok := parseRow(raw)
	if !ok || row.DayNumber != 9 {
		t.Fatalf("ok=%v row=%+v", ok, row)
	}
}

func TestParseRowLegacyLayout(t *testing.T) {
	raw := []interface{}{"2025-01-03", "U2", "Bob", "2025-01-03 06:12:00", "2025-01-03 06:12:00 CST", "G1", "general", "3"}
	row, ok := parseRow(raw)
	if !ok {
		t.Fatal("expected legacy-layout row to parse")
	}
	if row.DayNumber != 3 {
		t.Fatalf("day = %d, want 3", row.DayNumber)
	}
	if row.Community != "G1" || row.UserID != "U2" || row.ChannelName != "general" {
		t.Fatalf("row = %+v", row)
	}
	if row.ObservationDate != "2025-01-03" {
		t.Fatalf("observation date = %q", row.ObservationDate)
	}
}

func TestParseRowRejectsHeaderAndGarbage(t *testing.T) {
	cases := [][]interface{}{
		{"Day", "User", "Name", "Guild", "Date", "Reaction Time", "Zone Time", "Channel"},
		{"not-a-day", "U1"},
		{"400", "U1", "Ann", "G1"}, // day out of range
		{"2025-01-03", "U2", "Bob", "", "", "G1", "general", "nope"}, // legacy without day
		{},
	}
	for i, raw := range cases {
		if _, ok := parseRow(raw); ok {
			t.Fatalf("case %d: expected rejection for %v", i, raw)
		}
	}
}

func TestRowValuesRoundTrip(t *testing.T) {
	raw := []interface{}{"17", "U9", "Dee", "G2", "2025-01-17", "2025-01-17 05:00:00", "2025-01-17 05:00:00 CST", "bible-plan"}
	row, ok := parseRow(raw)
	if !ok {
		t.Fatal("parse failed")
	}
	out := rowValues(row)
	if len(out) != 8 {
		t.Fatalf("expected 8 columns, got %d", len(out))
	}
	if out[0] != 17 || out[1] != "U9" || out[3] != "G2" || out[7] != "bible-plan" {
		t.Fatalf("values = %v", out)
	}
}
