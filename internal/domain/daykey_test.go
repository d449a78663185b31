package domain

import "testing"

func TestExtractDayKey(t *testing.T) {
	cases := []struct {
		name        string
		description string
		day         int
		ok          bool
	}{
		{"plain marker", "📅 **Day 42** of the plan\n📖 **Genesis 1-3**", 42, true},
		{"case insensitive", "**day 7** reading", 7, true},
		{"first day", "**Day 1**", 1, true},
		{"leap plan upper bound", "**Day 366**", 366, true},
		{"out of range", "**Day 367**", 0, false},
		{"zero", "**Day 0**", 0, false},
		{"no marker", "Genesis 1-3, enjoy!", 0, false},
		{"unbolded", "Day 12 reading", 0, false},
		{"empty", "", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			day, ok := ExtractDayKey(tc.description)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if day != tc.day {
				t.Fatalf("day = %d, want %d", day, tc.day)
			}
		})
	}
}

func TestLedgerKeyString(t *testing.T) {
	key := LedgerKey{DayNumber: 3, UserID: "U1", Community: "G1"}
	if got := key.String(); got != "G1|3|U1" {
		t.Fatalf("key string = %q", got)
	}
}
