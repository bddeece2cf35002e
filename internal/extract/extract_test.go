package extract

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"splitroom/pkg/models"
)

func cents(c models.Cents) *models.Cents { return &c }

func date(y, m, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

func assertTotal(t *testing.T, got *models.Cents, want *models.Cents) {
	t.Helper()
	switch {
	case got == nil && want == nil:
	case got == nil || want == nil:
		t.Errorf("total = %v, want %v", got, want)
	case *got != *want:
		t.Errorf("total = %s, want %s", *got, *want)
	}
}

func assertDate(t *testing.T, name string, got *civil.Date, want civil.Date) {
	t.Helper()
	if got == nil {
		t.Errorf("%s = nil, want %s", name, want)
		return
	}
	if *got != want {
		t.Errorf("%s = %s, want %s", name, *got, want)
	}
}

func TestNearestValue(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		kw     string
		total  *models.Cents
		opts   NearestOptions
		want   models.Cents
		wantOK bool
	}{
		{
			name: "closest wins",
			text: "termo fixo 3,20 outro 1,10", kw: "termo fixo",
			want: 320, wantOK: true,
		},
		{
			name: "total is skipped",
			text: "termo fixo 58,40 depois 4,10", kw: "termo fixo", total: cents(5840),
			want: 410, wantOK: true,
		},
		{
			name: "blacklisted kva rating",
			text: "potencia contratada 6,90 kva 30 dias 9,87", kw: "potencia contratada",
			opts: NearestOptions{Blacklist: kvaRatings},
			want: 987, wantOK: true,
		},
		{
			name: "bounds",
			text: "taxas 0,40 taxas 75,00 taxas 3,00", kw: "taxas",
			opts: NearestOptions{Max: 6000, Min: 200},
			want: 300, wantOK: true,
		},
		{
			name: "window limit",
			text: "cav " + strings.Repeat(".", 210) + " 2,85",
			kw:   "cav",
		},
		{
			name: "closest across occurrences",
			text: "cav xxxxxxxxxx 2,00 / cav 1,50", kw: "cav",
			want: 150, wantOK: true,
		},
		{
			name: "tie goes to first occurrence",
			text: "cav 2,00 cav 1,50", kw: "cav",
			want: 200, wantOK: true,
		},
		{
			name: "case insensitive keyword",
			text: "TERMO FIXO 5,00", kw: "termo fixo",
			want: 500, wantOK: true,
		},
		{name: "missing keyword", text: "nada 5,00", kw: "termo fixo"},
		{name: "empty keyword", text: "5,00", kw: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NearestValue(tt.text, tt.kw, tt.total, tt.opts)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("NearestValue() = %s, %v; want %s, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestGenericParser(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		total     *models.Cents
		start     *civil.Date
		end       *civil.Date
	}{
		{
			name:  "valor da fatura with thousands",
			text:  "VALOR DA FATURA: 1.234,56 €\nPeríodo de faturação: 27 ago 2025 até 26 out 2025\n",
			total: cents(123456),
			start: ptr(date(2025, 8, 27)),
			end:   ptr(date(2025, 10, 26)),
		},
		{
			name:  "valor a debitar",
			text:  "Valor a debitar na sua conta em 12/09/2025: 42,10 €\nPeríodo: 01/08/2025 a 31/08/2025",
			total: cents(4210),
			start: ptr(date(2025, 8, 1)),
			end:   ptr(date(2025, 8, 31)),
		},
		{
			name:  "first labeled total wins",
			text:  "Total a pagar 12,00 €\nQuanto tenho a pagar? 15,00 €",
			total: cents(1500),
		},
		{
			name:  "last euro amount fallback",
			text:  "Consumo 10,00 €\nIVA 2,30 €\nSaldo 12,30 €\nconsumos de 01-07-2025 a 31-07-2025",
			total: cents(1230),
			start: ptr(date(2025, 7, 1)),
			end:   ptr(date(2025, 7, 31)),
		},
		{
			name:  "start borrows the end year",
			text:  "Periodo de faturacao: 6 de agosto a 5 de setembro 2024\n",
			start: ptr(date(2024, 8, 6)),
			end:   ptr(date(2024, 9, 5)),
		},
		{name: "nothing", text: "texto sem valores"},
	}

	p := NewGenericParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := p.Parse(tt.text)
			assertTotal(t, f.Total, tt.total)
			if tt.start != nil {
				assertDate(t, "start", f.PeriodStart, *tt.start)
			} else if f.PeriodStart != nil {
				t.Errorf("start = %s, want nil", *f.PeriodStart)
			}
			if tt.end != nil {
				assertDate(t, "end", f.PeriodEnd, *tt.end)
			} else if f.PeriodEnd != nil {
				t.Errorf("end = %s, want nil", *f.PeriodEnd)
			}
			if len(f.FixedItems) != 0 {
				t.Errorf("generic parser found fixed items: %+v", f.FixedItems)
			}
		})
	}
}

func TestSUEletricidade(t *testing.T) {
	f := NewSUEletricidade().Parse(suBill)

	assertTotal(t, f.Total, cents(5840))
	assertDate(t, "start", f.PeriodStart, date(2025, 8, 1))
	assertDate(t, "end", f.PeriodEnd, date(2025, 8, 31))

	want := map[string]models.Cents{
		"Potência Contratada": 987,
		"Taxas e Impostos":    432,
		"CAV":                 285,
	}
	if len(f.FixedItems) != len(want) {
		t.Fatalf("items = %+v", f.FixedItems)
	}
	for _, it := range f.FixedItems {
		if want[it.Label] != it.Amount {
			t.Errorf("%s = %s, want %s", it.Label, it.Amount, want[it.Label])
		}
		if it.Net != it.Amount || it.VATRate != 0 {
			t.Errorf("%s: net %s vat %v, want gross-only item", it.Label, it.Net, it.VATRate)
		}
	}
	if f.FixedTotal() != 1704 {
		t.Errorf("FixedTotal() = %s, want 17.04", f.FixedTotal())
	}
}

func TestSUEletricidadeLongPeriod(t *testing.T) {
	f := NewSUEletricidade().Parse("Consumos de 27 Agosto 2025 até 26 Setembro 2025. Valor a pagar: 40,00")
	assertDate(t, "start", f.PeriodStart, date(2025, 8, 27))
	assertDate(t, "end", f.PeriodEnd, date(2025, 9, 26))
	assertTotal(t, f.Total, cents(4000))
}

func TestEDPComercialVATBases(t *testing.T) {
	f := NewEDPComercial().Parse(edpBillWithBases)

	assertTotal(t, f.Total, cents(2519))
	assertDate(t, "start", f.PeriodStart, date(2024, 8, 6))
	assertDate(t, "end", f.PeriodEnd, date(2024, 9, 5))

	if len(f.FixedItems) != 1 {
		t.Fatalf("items = %+v", f.FixedItems)
	}
	it := f.FixedItems[0]
	// 5,66 × 1,23 = 6,9618
	if it.Net != 566 || it.Amount != 696 || it.VATRate != VATStandard {
		t.Errorf("item = %+v", it)
	}
}

func TestEDPComercialLineScan(t *testing.T) {
	f := NewEDPComercial().Parse(edpBillLines)
	assertTotal(t, f.Total, cents(3000))

	want := []struct {
		net, gross models.Cents
		vat        float64
	}{
		{987, 1214, VATStandard},  // potência
		{-271, -333, VATStandard}, // discount
		{7, 9, VATStandard},       // DGEG
		{285, 302, VATReduced},    // CAV
	}
	if len(f.FixedItems) != len(want) {
		t.Fatalf("items = %+v", f.FixedItems)
	}
	for i, w := range want {
		it := f.FixedItems[i]
		if it.Net != w.net || it.Amount != w.gross || it.VATRate != w.vat {
			t.Errorf("item %d = %+v, want net %s gross %s vat %v", i, it, w.net, w.gross, w.vat)
		}
	}
	if f.FixedTotal() != 1192 {
		t.Errorf("FixedTotal() = %s, want 11.92", f.FixedTotal())
	}
}

func TestEDPMontanteFallback(t *testing.T) {
	f := NewEDPComercial().Parse("Débito direto\nMontante:\n 1.020,40 €")
	assertTotal(t, f.Total, cents(102040))
}

func TestRouter(t *testing.T) {
	r := DefaultRouter()

	t.Run("provider parser", func(t *testing.T) {
		bill, parser := r.Extract(edpBillWithBases, EDPComercialID)
		if parser != EDPComercialID || bill.Provider != EDPComercialID {
			t.Errorf("parser = %s, provider = %s", parser, bill.Provider)
		}
		if bill.FixedTotal != 696 || bill.UtilityType != models.UtilityUnknown {
			t.Errorf("bill = %+v", bill)
		}
	})

	t.Run("unknown provider uses generic", func(t *testing.T) {
		bill, parser := r.Extract("Total a pagar 10,00 €", models.ProviderUnknown)
		if parser != GenericID {
			t.Errorf("parser = %s, want GENERIC", parser)
		}
		assertTotal(t, bill.TotalAmount, cents(1000))
		if bill.FixedItems == nil || len(bill.FixedItems) != 0 {
			t.Errorf("FixedItems = %#v, want empty slice", bill.FixedItems)
		}
	})

	t.Run("gaps filled from generic", func(t *testing.T) {
		// EDP rules see no total label; the generic fallback does
		text := "EDP Comercial\nValor a debitar 31,50 €\nPeríodo: 01/08/2025 a 31/08/2025"
		bill, _ := r.Extract(text, EDPComercialID)
		assertTotal(t, bill.TotalAmount, cents(3150))
		assertDate(t, "start", bill.PeriodStart, date(2025, 8, 1))
	})

	t.Run("fixed above total is dropped", func(t *testing.T) {
		greedy := &RuleSet{
			Name:   "GREEDY",
			Totals: []TotalRule{{Name: "total", Pattern: regexp.MustCompile(`total (\d+,\d{2})`)}},
			Fixed: []FixedRule{{Custom: func(string, *models.Cents) []models.FixedItem {
				return []models.FixedItem{{Label: "x", Amount: 2001, Net: 2001}}
			}}},
		}
		bill, _ := NewRouter(greedy).Extract("total 20,00", "GREEDY")
		if len(bill.FixedItems) != 0 || bill.FixedTotal != 0 {
			t.Errorf("fixed = %+v / %s, want none", bill.FixedItems, bill.FixedTotal)
		}
	})

	t.Run("empty text never panics", func(t *testing.T) {
		for _, id := range []string{SUEletricidadeID, EDPComercialID, "GALP", ""} {
			bill, _ := r.Extract("", id)
			if bill.TotalAmount != nil || bill.PeriodStart != nil {
				t.Errorf("%s: bill = %+v", id, bill)
			}
		}
	})
}

func ptr[T any](v T) *T { return &v }
