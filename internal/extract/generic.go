package extract

import (
	"regexp"

	"splitroom/internal/normalize"
	"splitroom/pkg/models"
)

// GenericID names the fallback parser in evidence.
const GenericID = "GENERIC"

const amountPT = `([0-9]{1,3}(?:[\.\s][0-9]{3})*,[0-9]{2})`

var lastEuroAmount = regexp.MustCompile(amountPT + `\s*€`)

// GenericParser reads the labeled totals and periods common to Portuguese
// bills. It never finds fixed items; those come from provider rules or the
// refiner.
type GenericParser struct {
	rules *RuleSet
}

func NewGenericParser() *GenericParser {
	return &GenericParser{rules: &RuleSet{
		Name: GenericID,
		Totals: []TotalRule{
			{Name: "valor da fatura", Pattern: regexp.MustCompile(`(?i)VALOR\s+DA\s+FATURA\s*[\s:]*` + amountPT)},
			{Name: "valor a debitar", Pattern: regexp.MustCompile(`(?i)Valor\s+a\s+debitar[\s\S]{0,40}?` + amountPT)},
			{Name: "quanto tenho a pagar", Pattern: regexp.MustCompile(`(?i)Quanto\s+tenho\s+a\s+pagar[\s\S]{0,60}?` + amountPT)},
			{Name: "total a pagar", Pattern: regexp.MustCompile(`(?i)Total\s+a\s+pagar[\s\S]{0,60}?` + amountPT)},
		},
		Periods: []PeriodRule{
			{
				Name:    "periodo de faturacao",
				Pattern: regexp.MustCompile(`(?i)Per[ií]odo\s+de\s+fatura[cç][aã]o\s*:\s*([\s\S]{0,40}?)\s+(?:at[eé]|a)\s+([\s\S]{0,40}?)(?:\n|$)`),
				Dates:   datePair(1, 2),
			},
			{
				Name:    "periodo",
				Pattern: regexp.MustCompile(`(?i)Per[ií]odo\s*[:\-]\s*(\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4})\s*(?:a|at[eé])\s*(\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4})`),
				Dates:   datePair(1, 2),
			},
			{
				Name:    "de a",
				Pattern: regexp.MustCompile(`(?i)de\s*(\d{2}-\d{2}-\d{4})\s*a\s*(\d{2}-\d{2}-\d{4})`),
				Dates:   datePair(1, 2),
			},
		},
	}}
}

func (g *GenericParser) ID() string { return GenericID }

// Parse applies the labeled rules; when no labeled total matches, the last
// "nnn,nn €" in the text is taken as the amount due.
func (g *GenericParser) Parse(text string) Fields {
	f := g.rules.Parse(text)
	if f.Total == nil {
		f.Total = lastAmount(text)
	}
	return f
}

func lastAmount(text string) *models.Cents {
	all := lastEuroAmount.FindAllStringSubmatch(text, -1)
	if len(all) == 0 {
		return nil
	}
	v, ok := normalize.ParseMoney(all[len(all)-1][1])
	if !ok {
		return nil
	}
	return &v
}
