package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

var (
	numericDate  = regexp.MustCompile(`(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4}|\d{2})\b`)
	longDate     = regexp.MustCompile(`(\d{1,2})\s+(?:de\s+)?([a-z]+)\.?\s+(?:de\s+)?(\d{4})`)
	dayMonthDate = regexp.MustCompile(`(\d{1,2})\s+de\s+([a-z]+)(?:\s+(?:de\s+)?(20\d{2}))?`)
)

var monthNames = map[string]time.Month{
	"janeiro": time.January, "jan": time.January,
	"fevereiro": time.February, "fev": time.February,
	"marco": time.March, "mar": time.March,
	"abril": time.April, "abr": time.April,
	"maio": time.May, "mai": time.May,
	"junho": time.June, "jun": time.June,
	"julho": time.July, "jul": time.July,
	"agosto": time.August, "ago": time.August,
	"setembro": time.September, "set": time.September,
	"outubro": time.October, "out": time.October,
	"novembro": time.November, "nov": time.November,
	"dezembro": time.December, "dez": time.December,
}

// MonthByName resolves a Portuguese month name, full or abbreviated,
// with or without accents.
func MonthByName(name string) (time.Month, bool) {
	key := Fold(strings.TrimSpace(name))
	if m, ok := monthNames[key]; ok {
		return m, true
	}
	if len(key) >= 3 {
		m, ok := monthNames[key[:3]]
		return m, ok
	}
	return 0, false
}

// ParseDate finds the first date in raw. It accepts dd-mm-yyyy, dd/mm/yyyy,
// dd.mm.yyyy, two-digit years (mapped to 20YY) and the long Portuguese form
// "27 agosto 2025". Impossible calendar dates are rejected.
func ParseDate(raw string) (civil.Date, bool) {
	s := Fold(raw)

	if m := numericDate.FindStringSubmatch(s); m != nil {
		year := m[3]
		if len(year) == 2 {
			year = "20" + year
		}
		return makeDate(m[1], monthNumber(m[2]), year)
	}

	for _, m := range longDate.FindAllStringSubmatch(s, -1) {
		month, ok := MonthByName(m[2])
		if !ok {
			continue
		}
		return makeDate(m[1], month, m[3])
	}

	return civil.Date{}, false
}

// ParseDayMonth parses "6 de agosto" or "5 de setembro 2024". When the year
// is missing, fallbackYear is used; a zero fallback yields ok == false.
func ParseDayMonth(raw string, fallbackYear int) (civil.Date, bool) {
	m := dayMonthDate.FindStringSubmatch(Fold(raw))
	if m == nil {
		return civil.Date{}, false
	}
	month, ok := MonthByName(m[2])
	if !ok {
		return civil.Date{}, false
	}
	year := m[3]
	if year == "" {
		if fallbackYear == 0 {
			return civil.Date{}, false
		}
		year = strconv.Itoa(fallbackYear)
	}
	return makeDate(m[1], month, year)
}

// DaysInclusive counts the calendar days of [from, to]; 0 when to < from.
func DaysInclusive(from, to civil.Date) int {
	if to.Before(from) {
		return 0
	}
	return to.DaysSince(from) + 1
}

func monthNumber(s string) time.Month {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return time.Month(n)
}

func makeDate(day string, month time.Month, year string) (civil.Date, bool) {
	d, err := strconv.Atoi(day)
	if err != nil {
		return civil.Date{}, false
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return civil.Date{}, false
	}
	date := civil.Date{Year: y, Month: month, Day: d}
	if !date.IsValid() {
		return civil.Date{}, false
	}
	return date, true
}
