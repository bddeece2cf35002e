package normalize

import (
	"testing"

	"cloud.google.com/go/civil"
)

func TestParseDate(t *testing.T) {
	aug27 := civil.Date{Year: 2025, Month: 8, Day: 27}

	tests := []struct {
		raw    string
		want   civil.Date
		wantOK bool
	}{
		{"27-08-2025", aug27, true},
		{"27/08/2025", aug27, true},
		{"27.08.2025", aug27, true},
		{"27/08/25", aug27, true},
		{"27 agosto 2025", aug27, true},
		{"27 Agosto 2025", aug27, true},
		{"27 ago 2025", aug27, true},
		{"27 ago. 2025", aug27, true},
		{"27 de agosto de 2025", aug27, true},
		{"1 março 2024", civil.Date{Year: 2024, Month: 3, Day: 1}, true},
		{"1 marco 2024", civil.Date{Year: 2024, Month: 3, Day: 1}, true},
		{"Período: 5/9/2024", civil.Date{Year: 2024, Month: 9, Day: 5}, true},
		{"31-02-2025", civil.Date{}, false},
		{"32 agosto 2025", civil.Date{}, false},
		{"27 foo 2025", civil.Date{}, false},
		{"", civil.Date{}, false},
		{"sem data", civil.Date{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseDate(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseDayMonth(t *testing.T) {
	got, ok := ParseDayMonth("6 de agosto", 2024)
	if !ok || got != (civil.Date{Year: 2024, Month: 8, Day: 6}) {
		t.Errorf("ParseDayMonth with fallback = %v, %v", got, ok)
	}

	got, ok = ParseDayMonth("5 de setembro 2024", 1999)
	if !ok || got != (civil.Date{Year: 2024, Month: 9, Day: 5}) {
		t.Errorf("ParseDayMonth with explicit year = %v, %v", got, ok)
	}

	if _, ok := ParseDayMonth("6 de agosto", 0); ok {
		t.Error("ParseDayMonth without any year should fail")
	}
}

func TestMonthByName(t *testing.T) {
	for _, name := range []string{"Dezembro", "dez", "DEZ", "dezembro"} {
		if m, ok := MonthByName(name); !ok || m != 12 {
			t.Errorf("MonthByName(%q) = %v, %v", name, m, ok)
		}
	}
	if _, ok := MonthByName("xx"); ok {
		t.Error("MonthByName(xx) should fail")
	}
}

func TestDaysInclusive(t *testing.T) {
	from := civil.Date{Year: 2024, Month: 2, Day: 27}
	to := civil.Date{Year: 2024, Month: 3, Day: 1}
	if got := DaysInclusive(from, to); got != 4 {
		t.Errorf("DaysInclusive leap year = %d, want 4", got)
	}
	if got := DaysInclusive(to, from); got != 0 {
		t.Errorf("DaysInclusive reversed = %d, want 0", got)
	}
	if got := DaysInclusive(from, from); got != 1 {
		t.Errorf("DaysInclusive single day = %d, want 1", got)
	}
}
