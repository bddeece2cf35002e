package models

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// UtilityType is the kind of service a bill or expense belongs to.
type UtilityType string

const (
	UtilityElectricity UtilityType = "electricity"
	UtilityWater       UtilityType = "water"
	UtilityGas         UtilityType = "gas"
	UtilityOther       UtilityType = "other"
	UtilityUnknown     UtilityType = "unknown"
)

// ProviderUnknown is reported when no issuer could be detected.
const ProviderUnknown = "UNKNOWN"

// ExtractedBill is the typed result of analyzing one utility bill.
// Absent fields stay nil; an amount of zero is never used to mean "not found".
type ExtractedBill struct {
	TotalAmount       *Cents      `json:"totalAmount"`
	PeriodStart       *civil.Date `json:"periodStart"`
	PeriodEnd         *civil.Date `json:"periodEnd"`
	UtilityType       UtilityType `json:"utilityType"`
	UtilityConfidence float64     `json:"utilityConfidence"`
	FixedItems        []FixedItem `json:"fixedItems"`
	FixedTotal        Cents       `json:"fixedTotal"`
	Provider          string      `json:"provider"`
}

// FixedItem is a non-consumption charge (standing power, CAV, DGEG...).
type FixedItem struct {
	Label    string  `json:"label"`
	Amount   Cents   `json:"amount"` // gross
	Net      Cents   `json:"net"`
	VATRate  float64 `json:"vatRate"`
	Evidence string  `json:"evidence,omitempty"`
}

// GrossFromNet returns round(net × (1 + vatRate)) in cents.
func GrossFromNet(net Cents, vatRate float64) Cents {
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(vatRate))
	return CentsFromDecimal(net.Decimal().Mul(factor))
}

// SumFixed returns the gross sum of items.
func SumFixed(items []FixedItem) Cents {
	var sum Cents
	for _, it := range items {
		sum += it.Amount
	}
	return sum
}

// UtilityScores holds the per-category keyword scores of the classifier.
type UtilityScores struct {
	Electricity int `json:"electricity"`
	Water       int `json:"water"`
	Gas         int `json:"gas"`
}

// Evidence describes how an ExtractedBill was produced.
type Evidence struct {
	AnalysisID   string        `json:"analysisId"`
	OCRSource    string        `json:"ocrSource"`
	TextLength   int           `json:"textLength"`
	Pages        string        `json:"pages,omitempty"`
	Images       int           `json:"images,omitempty"`
	Provider     string        `json:"provider"`
	Parser       string        `json:"parser"`
	Scores       UtilityScores `json:"scores"`
	AIApplied    bool          `json:"aiApplied"`
	AIConfidence float64       `json:"aiConfidence,omitempty"`
	AIReason     string        `json:"aiReason,omitempty"`
}

// AnalysisResponse is the success body of the analysis endpoints.
type AnalysisResponse struct {
	OK        bool           `json:"ok"`
	Extracted *ExtractedBill `json:"extracted"`
	Evidence  Evidence       `json:"evidence"`
}

// ErrorResponse is the failure body shared by every endpoint.
type ErrorResponse struct {
	OK       bool           `json:"ok"`
	Error    string         `json:"error"`
	NeedsOCR bool           `json:"needsOCR,omitempty"`
	Debug    map[string]any `json:"debug,omitempty"`
}
