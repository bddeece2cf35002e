package classify

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"splitroom/pkg/models"
)

func TestUtility(t *testing.T) {
	c := Default()

	tests := []struct {
		name     string
		text     string
		want     models.UtilityType
		wantConf float64
		scores   models.UtilityScores
	}{
		{
			name:     "electricity with kWh bonus",
			text:     "Fatura de Eletricidade - Consumo 250 kWh - Potência contratada 6,9 kVA",
			want:     models.UtilityElectricity,
			wantConf: 0.95,
			// eletricidade, potencia, potencia contratada, kwh + 2
			scores: models.UtilityScores{Electricity: 6},
		},
		{
			name:     "water",
			text:     "SMAS - Abastecimento de ÁGUA, saneamento e resíduos. Consumo 8 m3",
			want:     models.UtilityWater,
			wantConf: 0.95,
			// m3, agua, abastecimento, saneamento, residuos, smas
			scores: models.UtilityScores{Water: 6},
		},
		{
			name:     "gas",
			text:     "Gás natural, leitura do contador",
			want:     models.UtilityGas,
			wantConf: 0.95,
			scores:   models.UtilityScores{Gas: 2},
		},
		{
			name:   "nothing",
			text:   "Recibo de renda do mês",
			want:   models.UtilityUnknown,
			scores: models.UtilityScores{},
		},
		{
			name:     "tie prefers electricity but confidence is low",
			text:     "eletricidade e agua",
			want:     models.UtilityOther,
			wantConf: 0.5,
			scores:   models.UtilityScores{Electricity: 1, Water: 1},
		},
		{
			name:     "water and gas tie is low confidence",
			text:     "agua agua gas abastecimento gas natural",
			want:     models.UtilityOther,
			wantConf: 0.5,
			scores:   models.UtilityScores{Water: 2, Gas: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Utility(tt.text)
			if got.Type != tt.want {
				t.Errorf("Type = %s, want %s (scores %+v)", got.Type, tt.want, got.Scores)
			}
			if got.Confidence != tt.wantConf {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
			if got.Scores != tt.scores {
				t.Errorf("Scores = %+v, want %+v", got.Scores, tt.scores)
			}
		})
	}
}

func TestKeywordsAreFoldedAndDeduplicated(t *testing.T) {
	var d Dictionaries
	d.Utilities.Water = []string{"Água", "agua", "AGUA"}
	c := New(d)

	got := c.Utility("água")
	if got.Scores.Water != 1 {
		t.Errorf("Water score = %d, want 1", got.Scores.Water)
	}
}

func TestProvider(t *testing.T) {
	c := Default()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"SU by NIF with spaces", "NIF 507 846 044 Lisboa", "SU_ELETRICIDADE"},
		{"SU by keyword", "Comercializador de último recurso - Serviço Universal", "SU_ELETRICIDADE"},
		{"EDP by NIF with dots", "Contribuinte 503.504.564", "EDP_COMERCIAL"},
		{"EDP by keyword", "EDP Comercial - Comercialização de Energia", "EDP_COMERCIAL"},
		{"Galp second NIF", "NIF: 504499772", "GALP"},
		{"Galp keyword", "Petrogal S.A.", "GALP"},
		{"unknown", "Águas do Porto", models.ProviderUnknown},
		// declaration order: SU checked before EDP
		{"first provider wins", "edp comercial / su eletricidade", "SU_ELETRICIDADE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Provider(tt.text); got != tt.want {
				t.Errorf("Provider() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLoadDictionaries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dict.yaml")
	content := `
utilities:
  electricity: [luz]
  water: [agua]
  gas: [gas]
providers:
  - id: ACME
    nifs: ["123 456 789"]
    keywords: [acme energia]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	d, err := LoadDictionaries(path)
	if err != nil {
		t.Fatalf("LoadDictionaries: %v", err)
	}
	c := New(d)
	if got := c.Provider("nif 123456789"); got != "ACME" {
		t.Errorf("Provider() = %s, want ACME", got)
	}
	if got := c.AllowedNIFs(); len(got) != 1 || got[0] != "123456789" {
		t.Errorf("AllowedNIFs() = %v", got)
	}

	if err := os.WriteFile(path, []byte("providers:\n  - nifs: [\"1\"]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDictionaries(path); err == nil || !strings.Contains(err.Error(), "without id") {
		t.Errorf("err = %v, want missing id error", err)
	}
	if _, err := LoadDictionaries(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestDefaultDictionaries(t *testing.T) {
	d, err := DefaultDictionaries()
	if err != nil {
		t.Fatalf("DefaultDictionaries: %v", err)
	}
	ids := New(d).ProviderIDs()
	want := []string{"SU_ELETRICIDADE", "EDP_COMERCIAL", "GALP"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("ProviderIDs() = %v, want %v", ids, want)
	}
}
