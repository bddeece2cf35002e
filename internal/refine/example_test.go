package refine_test

import (
	"fmt"

	"splitroom/internal/refine"
	"splitroom/pkg/models"
)

func ExampleRedact() {
	text := "SU Eletricidade NIF 507846044\nCliente 245123987\nRua do Ouro 10"
	fmt.Println(refine.Redact(text, []string{"507 846 044"}))
	// Output:
	// SU Eletricidade NIF 507846044
	// Cliente [REDACTED_NIF]
	// [REDACTED_ADDRESS_LINE]
}

func ExampleApply() {
	total := models.Cents(4512)
	bill := &models.ExtractedBill{TotalAmount: &total, FixedItems: []models.FixedItem{}}

	s := &refine.Suggestion{
		Confidence: 0.9,
		FixedItems: []refine.SuggestedItem{
			{Label: "Potência Contratada", Net: 6.97, VATRate: 0.23},
			{Label: "CAV", Net: 2.85, VATRate: 0.06},
			{Label: "Energia", Net: "n/a"},
		},
	}
	out := refine.Apply(bill, s)
	fmt.Println(out.Reason, bill.FixedTotal)
	for _, it := range bill.FixedItems {
		fmt.Println(it.Label, it.Amount)
	}
	// Output:
	// applied 11.59
	// Potência Contratada 8.57
	// CAV 3.02
}
