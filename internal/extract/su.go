package extract

import (
	"regexp"

	"cloud.google.com/go/civil"

	"splitroom/internal/normalize"
	"splitroom/pkg/models"
)

// SUEletricidadeID is the provider ID of SU Eletricidade.
const SUEletricidadeID = "SU_ELETRICIDADE"

const suAmount = `[^0-9]{0,60}(\d{1,3}(?:[ .]\d{3})*(?:[.,]\d{2}))`

// kvaRatings are standard contracted power levels; they sit next to the
// power charge and look like money.
var kvaRatings = []models.Cents{345, 460, 575, 690, 1035, 1380, 1725, 2070}

var suLongPeriod = regexp.MustCompile(`(\d{1,2})\s+([a-z]+)\s+(\d{4})\s+(?:ate|a)\s+(\d{1,2})\s+([a-z]+)\s+(\d{4})`)

// NewSUEletricidade parses SU Eletricidade bills. The layout is OCR-hostile,
// so fixed charges are found by proximity to their labels.
func NewSUEletricidade() *RuleSet {
	return &RuleSet{
		Name: SUEletricidadeID,
		Prepare: func(s string) string {
			return normalize.CollapseSpace(normalize.Fold(s))
		},
		AcceptZeroTotal: true,
		Totals: []TotalRule{
			{Name: "valor a pagar", Pattern: regexp.MustCompile(`(?i)valor\s+a\s+pagar` + suAmount)},
			{Name: "total a pagar", Pattern: regexp.MustCompile(`(?i)total\s+a\s+pagar` + suAmount)},
			{Name: "valor da fatura", Pattern: regexp.MustCompile(`(?i)valor\s+da\s+fatura` + suAmount)},
			{Name: "valor a debitar", Pattern: regexp.MustCompile(`(?i)valor\s+a\s+debitar` + suAmount)},
			{Name: "importancia", Pattern: regexp.MustCompile(`(?i)importancia\s+` + suAmount)},
		},
		Periods: []PeriodRule{
			{
				Name:    "de a",
				Pattern: regexp.MustCompile(`(?i)de\s*(\d{2}-\d{2}-\d{4})\s*a\s*(\d{2}-\d{2}-\d{4})`),
				Dates:   datePair(1, 2),
			},
			{
				Name:    "long form",
				Pattern: suLongPeriod,
				Dates:   suLongDates,
			},
		},
		Fixed: []FixedRule{
			{Nearest: &NearestRule{
				Label:    "Potência Contratada",
				Keywords: []string{"potencia contratada"},
				Options:  NearestOptions{Max: 10000, Blacklist: kvaRatings},
			}},
			{Nearest: &NearestRule{
				Label:        "Taxas e Impostos",
				Keywords:     []string{"taxas e impostos", "total taxas"},
				Options:      NearestOptions{Max: 6000, Min: 200},
				ExcludeFound: []string{"Potência Contratada"},
			}},
			{Nearest: &NearestRule{
				Label:    "CAV",
				Keywords: []string{"jcav", " cav "},
				Options:  NearestOptions{Max: 3000},
			}},
			{Nearest: &NearestRule{
				Label:    "Tarifa de disponibilidade",
				Keywords: []string{"tarifa disponibilidade"},
				Options:  NearestOptions{Max: 5000},
			}},
			{Nearest: &NearestRule{
				Label:    "Saneamento fixo",
				Keywords: []string{"saneamento fixo"},
				Options:  NearestOptions{Max: 5000},
			}},
			{Nearest: &NearestRule{
				Label:    "Termo fixo",
				Keywords: []string{"termo fixo"},
				Options:  NearestOptions{Max: 5000},
			}},
		},
	}
}

func suLongDates(m []string) (*civil.Date, *civil.Date) {
	start, ok1 := normalize.ParseDate(m[1] + " " + m[2] + " " + m[3])
	end, ok2 := normalize.ParseDate(m[4] + " " + m[5] + " " + m[6])
	if !ok1 || !ok2 {
		return nil, nil
	}
	return &start, &end
}
