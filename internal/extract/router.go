package extract

import (
	"github.com/rs/zerolog"

	"splitroom/internal/logger"
	"splitroom/pkg/models"
)

// Router picks the parser for a provider and fills gaps from the generic one.
type Router struct {
	parsers map[string]Parser
	generic Parser
	log     zerolog.Logger
}

// NewRouter registers parsers by ID.
func NewRouter(parsers ...Parser) *Router {
	r := &Router{
		parsers: make(map[string]Parser, len(parsers)),
		generic: NewGenericParser(),
		log:     logger.WithComponent("extract"),
	}
	for _, p := range parsers {
		r.parsers[p.ID()] = p
	}
	return r
}

// DefaultRouter knows SU Eletricidade and EDP Comercial.
func DefaultRouter() *Router {
	return NewRouter(NewSUEletricidade(), NewEDPComercial())
}

// Extract parses text for provider and returns the bill plus the ID of the
// parser that produced it. Utility fields are left for the caller.
// Fixed items summing above the total are dropped.
func (r *Router) Extract(text, provider string) (models.ExtractedBill, string) {
	generic := r.generic.Parse(text)
	fields, parserID := generic, r.generic.ID()

	if p, ok := r.parsers[provider]; ok {
		fields = merge(p.Parse(text), generic)
		parserID = p.ID()
	}

	bill := models.ExtractedBill{
		TotalAmount: fields.Total,
		PeriodStart: fields.PeriodStart,
		PeriodEnd:   fields.PeriodEnd,
		UtilityType: models.UtilityUnknown,
		FixedItems:  fields.FixedItems,
		FixedTotal:  fields.FixedTotal(),
		Provider:    provider,
	}
	if bill.Provider == "" {
		bill.Provider = models.ProviderUnknown
	}

	if bill.TotalAmount != nil && bill.FixedTotal > *bill.TotalAmount {
		r.log.Warn().
			Str("parser", parserID).
			Stringer("fixed_total", bill.FixedTotal).
			Stringer("total", *bill.TotalAmount).
			Msg("fixed items exceed the total, discarding them")
		bill.FixedItems = nil
		bill.FixedTotal = 0
	}
	if bill.FixedItems == nil {
		bill.FixedItems = []models.FixedItem{}
	}
	return bill, parserID
}

// merge keeps provider fields and fills missing ones from fallback.
func merge(specific, fallback Fields) Fields {
	out := specific
	if out.Total == nil {
		out.Total = fallback.Total
	}
	if out.PeriodStart == nil {
		out.PeriodStart = fallback.PeriodStart
	}
	if out.PeriodEnd == nil {
		out.PeriodEnd = fallback.PeriodEnd
	}
	if len(out.FixedItems) == 0 {
		out.FixedItems = fallback.FixedItems
	}
	return out
}
