package refine

import (
	"github.com/shopspring/decimal"

	"splitroom/pkg/models"
)

// MinApplyConfidence is the lowest self-reported confidence that is trusted.
const MinApplyConfidence = 0.6

// Reasons reported in Outcome.
const (
	ReasonApplied       = "applied"
	ReasonLowConfidence = "low_confidence"
	ReasonNoItems       = "no_items"
	ReasonExceedsTotal  = "exceeds_total"
)

// Outcome tells whether a suggestion replaced the bill's fixed items.
type Outcome struct {
	Applied    bool
	Reason     string
	Confidence float64
	// Candidate is the gross sum of the accepted items, applied or not.
	Candidate models.Cents
}

// Apply reconciles a suggestion with the bill. Items with a zero or
// non-numeric net are dropped and gross is computed per item. The items
// replace the bill's only when the confidence is high enough and their sum
// does not exceed the total by more than one cent (or the total is
// unknown). A rejected suggestion leaves the bill with no fixed items.
func Apply(bill *models.ExtractedBill, s *Suggestion) Outcome {
	out := Outcome{Reason: ReasonNoItems}
	if s == nil {
		ClearFixed(bill)
		return out
	}
	out.Confidence = s.Confidence

	items := Items(s)
	out.Candidate = models.SumFixed(items)

	switch {
	case s.Confidence < MinApplyConfidence:
		out.Reason = ReasonLowConfidence
	case len(items) == 0:
		out.Reason = ReasonNoItems
	case bill.TotalAmount != nil && out.Candidate > *bill.TotalAmount+1:
		out.Reason = ReasonExceedsTotal
	default:
		bill.FixedItems = items
		bill.FixedTotal = out.Candidate
		out.Applied = true
		out.Reason = ReasonApplied
	}
	if !out.Applied {
		ClearFixed(bill)
	}
	return out
}

// ClearFixed empties the bill's fixed items. Once the refiner is consulted,
// only an applied suggestion may populate them.
func ClearFixed(bill *models.ExtractedBill) {
	bill.FixedItems = []models.FixedItem{}
	bill.FixedTotal = 0
}

// Items converts the usable suggested items to fixed items.
func Items(s *Suggestion) []models.FixedItem {
	items := make([]models.FixedItem, 0, len(s.FixedItems))
	for _, it := range s.FixedItems {
		net, ok := it.Net.(float64)
		if !ok || models.CentsFromFloat(net) == 0 {
			continue
		}
		vat, ok := it.VATRate.(float64)
		if !ok || vat < 0 {
			vat = 0
		}
		label := it.Label
		if label == "" {
			label = "Fixed item"
		}
		gross := decimal.NewFromFloat(net).Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(vat)))
		items = append(items, models.FixedItem{
			Label:    label,
			Amount:   models.CentsFromDecimal(gross),
			Net:      models.CentsFromFloat(net),
			VATRate:  vat,
			Evidence: it.Evidence,
		})
	}
	return items
}
