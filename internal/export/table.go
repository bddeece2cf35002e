// Package export turns batch results and allocations into tables, written
// as XLSX workbooks or appended to Google Sheets.
package export

import (
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"splitroom/internal/bill"
	"splitroom/pkg/models"
)

// Table is one sheet: a header row and value rows. Amounts are euro
// float64 values so spreadsheets can sum them.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]any
}

var batchHeaders = []string{
	"File", "Status", "Utility", "Provider", "Parser",
	"Period start", "Period end", "Total", "Fixed", "Variable",
	"Fixed items", "OCR source", "AI applied", "Error", "Processed at",
}

// BatchTable has one row per analyzed file, in input order.
func BatchTable(name string, results []bill.BatchResult, processedAt time.Time) Table {
	t := Table{Name: name, Headers: batchHeaders, Rows: make([][]any, 0, len(results))}
	stamp := processedAt.Format("2006-01-02 15:04:05")

	for _, r := range results {
		if r.Result == nil {
			msg := "no result"
			if r.Error != nil {
				msg = r.Error.Error()
			}
			t.Rows = append(t.Rows, []any{
				r.Filename, r.Status, "", "", "", "", "", "", "", "", "", "", false, msg, stamp,
			})
			continue
		}

		b := r.Result.Bill
		ev := r.Result.Evidence
		var total, variable any = "", ""
		if b.TotalAmount != nil {
			total = b.TotalAmount.Float64()
			variable = (*b.TotalAmount - b.FixedTotal).Float64()
		}
		labels := make([]string, len(b.FixedItems))
		for i, it := range b.FixedItems {
			labels[i] = it.Label + " " + it.Amount.String()
		}

		t.Rows = append(t.Rows, []any{
			r.Filename,
			r.Status,
			string(b.UtilityType),
			b.Provider,
			ev.Parser,
			formatDate(b.PeriodStart),
			formatDate(b.PeriodEnd),
			total,
			b.FixedTotal.Float64(),
			variable,
			strings.Join(labels, "; "),
			ev.OCRSource,
			ev.AIApplied,
			"",
			stamp,
		})
	}
	return t
}

// AllocationTables returns the per-roommate summary followed by the
// per-expense windows.
func AllocationTables(a *models.Allocation) ([]Table, error) {
	if a == nil {
		return nil, errors.New("export: nil allocation")
	}

	summary := Table{Name: "Allocation", Headers: []string{"Roommate", "Label", "Days present", "Days away", "Points"}}
	for _, e := range a.Expenses {
		summary.Headers = append(summary.Headers, e.Name)
	}
	summary.Headers = append(summary.Headers, "Fixed", "Variable", "Total")

	for _, r := range a.Roommates {
		row := []any{r.Name, r.Label, r.DaysPresent, r.DaysAway, r.Points}
		for _, s := range r.Shares {
			row = append(row, s.Total.Float64())
		}
		row = append(row, r.Fixed.Float64(), r.Variable.Float64(), r.Total.Float64())
		summary.Rows = append(summary.Rows, row)
	}

	totals := []any{"Total", "", "", "", a.TotalPoints}
	for _, e := range a.Expenses {
		totals = append(totals, e.Total.Float64())
	}
	var fixed, variable models.Cents
	for _, e := range a.Expenses {
		fixed += e.Fixed
		variable += e.Variable
	}
	totals = append(totals, fixed.Float64(), variable.Float64(), a.GrandTotal.Float64())
	summary.Rows = append(summary.Rows, totals)

	expenses := Table{
		Name:    "Expenses",
		Headers: []string{"Expense", "From", "To", "Days", "Points", "Fixed", "Variable", "Total"},
	}
	for _, e := range a.Expenses {
		expenses.Rows = append(expenses.Rows, []any{
			e.Name,
			e.From.String(),
			e.To.String(),
			e.Days,
			e.TotalPoints,
			e.Fixed.Float64(),
			e.Variable.Float64(),
			e.Total.Float64(),
		})
	}

	tables := []Table{summary, expenses}
	if a.Benchmark != nil {
		tables = append(tables, benchmarkTable(a.Benchmark))
	}
	return tables, nil
}

func benchmarkTable(b *models.BenchmarkReport) Table {
	t := Table{
		Name:    "Benchmark",
		Headers: []string{"Utility", "Your monthly", "Average monthly", "Average consumption", "Difference %"},
	}
	for _, l := range b.Breakdown {
		t.Rows = append(t.Rows, []any{string(l.Type), l.UserMonthly, l.BenchMonthly, l.BenchConsumption, l.DiffPct})
	}
	t.Rows = append(t.Rows,
		[]any{"Total", b.UserMonthlyTotal, b.BenchMonthlyTotal, "", b.DiffPct},
		[]any{"Score", b.Score, "", "", ""},
	)
	return t
}

func formatDate(d *civil.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}
