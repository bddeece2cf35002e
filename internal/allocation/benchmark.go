package allocation

import (
	"math"
	"strings"

	"splitroom/internal/normalize"
	"splitroom/pkg/models"
)

// BenchmarkEntry is the average monthly figure for one household size.
type BenchmarkEntry struct {
	MonthlyConsumption float64
	MonthlyCost        float64
}

// CountryBenchmarks holds the averages for household sizes 1 to 4+.
type CountryBenchmarks struct {
	Code      string
	DataYear  int
	Sources   string
	Utilities map[models.UtilityType][4]BenchmarkEntry
}

// Portugal: kWh, m³ and kWh of gas per month, costs in euros.
var Portugal = CountryBenchmarks{
	Code:     "PT",
	DataYear: 2024,
	Sources:  "ERSE, ERSAR, INE (Portugal)",
	Utilities: map[models.UtilityType][4]BenchmarkEntry{
		models.UtilityElectricity: {{150, 35}, {250, 55}, {350, 75}, {450, 95}},
		models.UtilityWater:       {{4, 15}, {6, 22}, {8, 28}, {10, 35}},
		models.UtilityGas:         {{250, 30}, {450, 50}, {650, 70}, {850, 90}},
	},
}

var benchmarkOrder = []models.UtilityType{models.UtilityElectricity, models.UtilityWater, models.UtilityGas}

// Lookup returns the entry for a utility; sizes above 4 use the 4+ row.
func (c CountryBenchmarks) Lookup(utility models.UtilityType, householdSize int) (BenchmarkEntry, bool) {
	rows, ok := c.Utilities[utility]
	if !ok {
		return BenchmarkEntry{}, false
	}
	size := min(max(householdSize, 1), 4)
	return rows[size-1], true
}

// UtilityOf maps an expense to a benchmarked utility by id, then by icon
// or name.
func UtilityOf(e models.Expense) (models.UtilityType, bool) {
	switch e.ID {
	case models.UtilityElectricity, models.UtilityWater, models.UtilityGas:
		return e.ID, true
	}
	name := normalize.Fold(e.Name)
	switch {
	case strings.Contains(e.Icon, "⚡") || containsAny(name, "elec", "eletric", "luz"):
		return models.UtilityElectricity, true
	case strings.Contains(e.Icon, "💧") || strings.Contains(e.Icon, "🚰") || containsAny(name, "water", "agua"):
		return models.UtilityWater, true
	case strings.Contains(e.Icon, "🔥") || containsAny(name, "gas"):
		return models.UtilityGas, true
	}
	return "", false
}

// Benchmark compares the session against the Portuguese averages.
func Benchmark(s models.Session) *models.BenchmarkReport {
	return BenchmarkAgainst(Portugal, s)
}

// BenchmarkAgainst normalizes the session's utility totals to a 30-day
// month and compares them with c. It returns nil when the session has no
// benchmarked utility with a positive total.
func BenchmarkAgainst(c CountryBenchmarks, s models.Session) *models.BenchmarkReport {
	totals := make(map[models.UtilityType]models.Cents)
	for _, e := range s.Expenses {
		if e.Total <= 0 {
			continue
		}
		if t, ok := UtilityOf(e); ok {
			totals[t] += e.Total
		}
	}

	days := normalize.DaysInclusive(s.Start, s.End)
	if days == 0 {
		days = 30
	}
	factor := 30 / float64(days)
	household := max(1, len(s.Roommates))

	report := &models.BenchmarkReport{
		CountryCode:   c.Code,
		DataYear:      c.DataYear,
		Sources:       c.Sources,
		HouseholdSize: household,
	}
	var user, bench float64
	for _, t := range benchmarkOrder {
		if totals[t] <= 0 {
			continue
		}
		entry, ok := c.Lookup(t, household)
		if !ok {
			continue
		}
		monthly := totals[t].Float64() * factor
		user += monthly
		bench += entry.MonthlyCost

		report.TypesPresent = append(report.TypesPresent, t)
		report.Breakdown = append(report.Breakdown, models.BenchmarkLine{
			Type:             t,
			UserMonthly:      round2(monthly),
			BenchMonthly:     entry.MonthlyCost,
			BenchConsumption: entry.MonthlyConsumption,
			DiffPct:          round2(diffPct(monthly, entry.MonthlyCost)),
		})
	}
	if user == 0 || bench == 0 {
		return nil
	}

	report.UserMonthlyTotal = round2(user)
	report.BenchMonthlyTotal = round2(bench)
	report.DiffPct = round2(diffPct(user, bench))
	report.Score = EfficiencyScore(user, bench)
	return report
}

// EfficiencyScore maps user/bench to 0..100 where 50 is the national
// average and higher is cheaper.
func EfficiencyScore(user, bench float64) int {
	if bench == 0 {
		return 50
	}
	ratio := user / bench
	var score float64
	if ratio >= 1 {
		score = 50 - (ratio-1)*35
	} else {
		score = 50 + (1-ratio)*80
	}
	return int(math.Max(0, math.Min(100, math.Round(score))))
}

func diffPct(user, bench float64) float64 {
	if bench <= 0 {
		return 0
	}
	return (user - bench) / bench * 100
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
