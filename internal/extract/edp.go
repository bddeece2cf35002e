package extract

import (
	"regexp"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"

	"splitroom/internal/normalize"
	"splitroom/pkg/models"
)

// EDPComercialID is the provider ID of EDP Comercial.
const EDPComercialID = "EDP_COMERCIAL"

// Portuguese VAT rates on fixed charges.
const (
	VATStandard = 0.23
	VATReduced  = 0.06
)

var (
	edpIVABase   = regexp.MustCompile(`(?i)IVA\s*\(\s*(\d{1,3}(?:\.\d{3})*,\d{2})\s*€?\s*\)\s*23%`)
	edpLineValue = regexp.MustCompile(`(-?\d{1,3}(?:\.\d{3})*,\d{2})\s*€?`)
	edpPeriod    = regexp.MustCompile(`(?i)Per[ií]odo\s+de\s+fatura[çc][ãa]o:[\s\S]{0,20}?(\d{1,2}.*?)\s+a\s+(\d{1,2}.*?20\d{2})`)
	yearRe       = regexp.MustCompile(`20\d{2}`)
)

// NewEDPComercial parses EDP Comercial bills. Fixed charges come from the
// 23% VAT bases when the bill lists them, otherwise from a line scan.
func NewEDPComercial() *RuleSet {
	return &RuleSet{
		Name: EDPComercialID,
		Totals: []TotalRule{
			{Name: "quanto tenho a pagar", Pattern: regexp.MustCompile(`(?i)Quanto\s+tenho\s+a\s+pagar[^\d]{0,50}(\d{1,3}(?:\.\d{3})*,\d{2})`)},
			{Name: "montante", Pattern: regexp.MustCompile(`(?i)Montante:[\s\S]{0,20}?(\d{1,3}(?:\.\d{3})*,\d{2})`)},
		},
		Periods: []PeriodRule{
			{Name: "periodo de faturacao", Pattern: edpPeriod, Dates: edpDates},
		},
		Fixed: []FixedRule{
			{Custom: edpFixedItems},
		},
	}
}

// edpDates handles "6 de agosto a 5 de setembro 2024": the start borrows
// the end's year.
func edpDates(m []string) (*civil.Date, *civil.Date) {
	year := 0
	if y := yearRe.FindString(m[2]); y != "" {
		year, _ = strconv.Atoi(y)
	}

	var start, end *civil.Date
	if d, ok := normalize.ParseDayMonth(m[2], year); ok {
		end = &d
	} else if d, ok := normalize.ParseDate(m[2]); ok {
		end = &d
	}
	if d, ok := normalize.ParseDayMonth(m[1], year); ok {
		start = &d
	} else if d, ok := normalize.ParseDate(m[1]); ok {
		start = &d
	}
	return start, end
}

func edpFixedItems(text string, _ *models.Cents) []models.FixedItem {
	var base models.Cents
	for _, m := range edpIVABase.FindAllStringSubmatch(text, -1) {
		if v, ok := normalize.ParseMoney(m[1]); ok {
			base += v
		}
	}
	if base > 0 {
		return []models.FixedItem{fixedItem("Termos fixos (base IVA 23%)", base, VATStandard, "IVA 23% bases")}
	}

	var items []models.FixedItem
	for _, line := range strings.Split(text, "\n") {
		values := edpLineValue.FindAllStringSubmatch(line, -1)
		if len(values) == 0 {
			continue
		}
		net, ok := normalize.ParseMoney(values[len(values)-1][1])
		if !ok || net == 0 {
			continue
		}

		l := normalize.Fold(line)
		evidence := normalize.CollapseSpace(line)
		isDGEG := strings.Contains(l, "dgeg")
		isCAV := strings.Contains(l, "audiovisual") || strings.Contains(l, "cav")
		timeBased := (strings.Contains(l, "dias") || strings.Contains(l, "mes")) && !strings.Contains(l, "kwh")

		if timeBased && !isDGEG && !isCAV {
			items = append(items, fixedItem("Potência / termo fixo", net, VATStandard, evidence))
		}
		if isDGEG {
			items = append(items, fixedItem("Taxa DGEG", net, VATStandard, evidence))
		}
		if isCAV {
			items = append(items, fixedItem("Contribuição audiovisual", net, VATReduced, evidence))
		}
	}
	return items
}

// fixedItem computes the gross amount as round(net × (1 + vat)).
func fixedItem(label string, net models.Cents, vat float64, evidence string) models.FixedItem {
	return models.FixedItem{
		Label:    label,
		Amount:   models.GrossFromNet(net, vat),
		Net:      net,
		VATRate:  vat,
		Evidence: evidence,
	}
}
