package bill

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"splitroom/internal/classify"
	"splitroom/internal/extract"
	"splitroom/internal/ocr"
	"splitroom/internal/refine"
	"splitroom/pkg/models"
)

const suBill = `SU ELETRICIDADE, S.A.
Comercializador de ultimo recurso
Fatura FT 2025/123
Periodo de faturacao de 01-08-2025 a 31-08-2025
Potência contratada 6,90 kVA
Potência contratada 30 dias 9,87 €
Energia 210 kWh 32,36 €
Taxas e impostos 4,32 €
Contribuição audiovisual JCAV 2,85
Valor a pagar 58,40 €`

var waterWithoutAmounts = strings.Repeat("Aguas do Porto abastecimento de agua saneamento residuos urbanos\n", 5)

// textRunner serves pdftotext output chosen by a marker in the PDF bytes.
type textRunner struct{}

func (textRunner) Run(_ context.Context, _ []byte, name string, args ...string) ([]byte, []byte, error) {
	switch name {
	case "pdftotext":
		data, err := os.ReadFile(args[len(args)-2])
		if err != nil {
			return nil, nil, err
		}
		switch {
		case bytes.Contains(data, []byte("BLANK")):
			return []byte("  \f"), nil, nil
		case bytes.Contains(data, []byte("WATER")):
			return []byte(waterWithoutAmounts), nil, nil
		}
		return []byte(suBill), nil, nil
	case "pdfinfo":
		return []byte("Pages:          1\n"), nil, nil
	}
	return nil, []byte(name + ": command not found"), errors.New("exit status 127")
}

type fakeRefiner struct {
	mu    sync.Mutex
	calls int
	s     *refine.Suggestion
	err   error
	got   models.UtilityType
}

func (f *fakeRefiner) Suggest(_ context.Context, _ string, utility models.UtilityType) (*refine.Suggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.got = utility
	return f.s, f.err
}

func newTestAnalyzer() *Analyzer {
	tools := ocr.NewTools(ocr.DefaultToolsConfig(), textRunner{})
	return NewAnalyzer(ocr.NewCascade(tools, nil, nil), classify.Default(), extract.DefaultRouter())
}

func pdf(marker string) ocr.Document {
	return ocr.Document{Data: []byte("%PDF-1.4\n" + marker), MimeType: ocr.MimePDF, Name: "bill.pdf"}
}

func TestAnalyzeWithoutRefiner(t *testing.T) {
	res, err := newTestAnalyzer().Analyze(t.Context(), pdf(""), Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	b := res.Bill
	if b.TotalAmount == nil || *b.TotalAmount != 5840 {
		t.Errorf("total = %v, want 58.40", b.TotalAmount)
	}
	if b.UtilityType != models.UtilityElectricity || b.Provider != "SU_ELETRICIDADE" {
		t.Errorf("utility=%s provider=%s", b.UtilityType, b.Provider)
	}
	if b.FixedTotal != 1704 {
		t.Errorf("fixed total = %s, want 17.04", b.FixedTotal)
	}
	ev := res.Evidence
	if ev.OCRSource != string(ocr.SourceNative) || ev.Parser != extract.SUEletricidadeID || ev.AIApplied {
		t.Errorf("evidence = %+v", ev)
	}
	if ev.AnalysisID == "" || ev.TextLength != len(res.Text) {
		t.Errorf("evidence ids = %+v", ev)
	}
}

func TestAnalyzeRefiner(t *testing.T) {
	suggestion := &refine.Suggestion{
		Confidence: 0.9,
		FixedItems: []refine.SuggestedItem{{Label: "Termo fixo", Net: 10.0, VATRate: 0.0}},
	}

	tests := []struct {
		name       string
		refiner    *fakeRefiner
		opts       Options
		wantCalls  int
		wantFixed  models.Cents
		wantAI     bool
		wantReason string
	}{
		{"applied", &fakeRefiner{s: suggestion}, Options{}, 1, 1000, true, refine.ReasonApplied},
		{"rejected clears rule items", &fakeRefiner{s: &refine.Suggestion{Confidence: 0.3, FixedItems: suggestion.FixedItems}}, Options{}, 1, 0, false, refine.ReasonLowConfidence},
		{"fails open", &fakeRefiner{err: refine.NewRefineError("Refiner.Suggest", refine.ErrUnavailable, "")}, Options{}, 1, 0, false, "unavailable"},
		{"malformed reply", &fakeRefiner{err: &refine.ParseError{Err: errors.New("bad")}}, Options{}, 1, 0, false, "malformed_response"},
		{"disabled per call", &fakeRefiner{s: suggestion}, Options{NoAI: true}, 0, 1704, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnalyzer().WithRefiner(tt.refiner)
			res, err := a.Analyze(t.Context(), pdf(""), tt.opts)
			if err != nil {
				t.Fatalf("Analyze: %v", err)
			}
			if tt.refiner.calls != tt.wantCalls {
				t.Errorf("refiner calls = %d, want %d", tt.refiner.calls, tt.wantCalls)
			}
			if tt.wantCalls > 0 && tt.refiner.got != models.UtilityElectricity {
				t.Errorf("refiner got utility %s", tt.refiner.got)
			}
			if res.Bill.FixedTotal != tt.wantFixed {
				t.Errorf("fixed total = %d, want %d", res.Bill.FixedTotal, tt.wantFixed)
			}
			if tt.wantFixed == 0 && (res.Bill.FixedItems == nil || len(res.Bill.FixedItems) != 0) {
				t.Errorf("fixed items = %#v, want empty", res.Bill.FixedItems)
			}
			if res.Evidence.AIApplied != tt.wantAI || res.Evidence.AIReason != tt.wantReason {
				t.Errorf("evidence ai = %v/%q", res.Evidence.AIApplied, res.Evidence.AIReason)
			}
		})
	}
}

func TestAnalyzeNoUsableText(t *testing.T) {
	_, err := newTestAnalyzer().Analyze(t.Context(), pdf("BLANK"), Options{})
	if !errors.Is(err, ocr.ErrNoUsableText) {
		t.Fatalf("err = %v, want ErrNoUsableText", err)
	}
}

func TestAnalyzeFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return p
	}
	write("a.pdf", "%PDF-1.4\nSU")
	write("b.pdf", "%PDF-1.4\nBLANK")
	write("c.pdf", "%PDF-1.4\nWATER")
	write("notes.txt", "not a bill")

	paths, err := FindBills(dir)
	if err != nil {
		t.Fatalf("FindBills: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("found %v", paths)
	}

	var calls int
	results := newTestAnalyzer().AnalyzeFiles(t.Context(), paths, 2, Options{}, func(done, total int, _ BatchResult) {
		calls++
		if total != 3 || done < 1 || done > 3 {
			t.Errorf("progress %d/%d", done, total)
		}
	})

	want := []struct {
		name, status string
	}{
		{"a.pdf", StatusSuccess},
		{"b.pdf", StatusError},
		{"c.pdf", StatusWarning},
	}
	for i, w := range want {
		r := results[i]
		if r.Filename != w.name || r.Status != w.status || r.Index != i {
			t.Errorf("result %d = %s/%s (err %v), want %s/%s", i, r.Filename, r.Status, r.Error, w.name, w.status)
		}
	}
	if results[2].Result.Bill.UtilityType != models.UtilityWater {
		t.Errorf("water bill classified as %s", results[2].Result.Bill.UtilityType)
	}
	if calls != 3 {
		t.Errorf("progress calls = %d", calls)
	}
}

func TestDetectMimeType(t *testing.T) {
	tests := []struct {
		name, declared, file string
		data                 []byte
		want                 string
	}{
		{"sniffed pdf", "", "x", []byte("%PDF-1.7\n"), ocr.MimePDF},
		{"sniffed png", "application/octet-stream", "x", []byte("\x89PNG\r\n\x1a\n0000"), ocr.MimePNG},
		{"declared wins over text", "image/webp", "x", []byte("hello"), "image/webp"},
		{"extension fallback", "", "scan.JPG", []byte("hello"), ocr.MimeJPEG},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMimeType(tt.data, tt.declared, tt.file); got != tt.want {
				t.Errorf("DetectMimeType = %s, want %s", got, tt.want)
			}
		})
	}
}
