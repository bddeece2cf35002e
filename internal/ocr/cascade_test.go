package ocr

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCascadeNativeFirst(t *testing.T) {
	runner := newStubRunner().on("pdftotext", func([]byte, []string) ([]byte, error) {
		return []byte(usableText("native")), nil
	})
	var attempts []Attempt
	c := NewCascade(NewTools(ToolsConfig{}, runner), nil, func(a Attempt) { attempts = append(attempts, a) })

	text, err := c.Acquire(context.Background(), Document{Data: []byte("%PDF"), MimeType: MimePDF, Name: "edp.pdf"})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if text.Source != SourceNative || len(attempts) != 1 {
		t.Errorf("source = %s, attempts = %d", text.Source, len(attempts))
	}
}

func TestCascadeScannedPDFFallsToLocal(t *testing.T) {
	runner := newStubRunner().
		on("pdftotext", func([]byte, []string) ([]byte, error) { return []byte("\f"), nil }).
		on("pdfinfo", pdfInfo(1)).
		on("pdftoppm", renderStub).
		on("magick", magickStub).
		on("tesseract", func([]byte, []string) ([]byte, error) { return []byte(usableText("scan")), nil })
	c := NewCascade(NewTools(ToolsConfig{}, runner), nil, nil)

	text, err := c.Acquire(context.Background(), Document{Data: []byte("%PDF"), MimeType: MimePDF})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if text.Source != SourceLocal {
		t.Errorf("source = %s, want local-ocr", text.Source)
	}
}

func TestCascadeStrategies(t *testing.T) {
	tools := NewTools(ToolsConfig{}, newStubRunner())
	cloud := NewCloudStrategy(&fakeAnalyzer{}, tools, 1)

	withCloud := NewCascade(tools, cloud, nil)
	if got := sources(withCloud.Strategies(Document{MimeType: MimePDF})); got != "native-text,cloud,local-ocr" {
		t.Errorf("PDF strategies = %s", got)
	}
	if got := sources(withCloud.Strategies(Document{MimeType: MimeJPEG})); got != "cloud,local-ocr" {
		t.Errorf("image strategies = %s", got)
	}

	noCloud := NewCascade(tools, nil, nil)
	if noCloud.HasCloud() || noCloud.Stage(SourceCloud) != nil {
		t.Error("cloud stage registered without an analyzer")
	}
	if got := sources(noCloud.Strategies(Document{MimeType: MimePDF})); got != "native-text,local-ocr" {
		t.Errorf("PDF strategies without cloud = %s", got)
	}
}

func TestAcquireImages(t *testing.T) {
	tesseract := func(stdin []byte, _ []string) ([]byte, error) {
		return []byte(usableText(string(stdin))), nil
	}

	t.Run("too many images", func(t *testing.T) {
		c := NewCascade(NewTools(ToolsConfig{}, newStubRunner()), nil, nil)
		docs := make([]Document, MaxImages+1)
		for i := range docs {
			docs[i] = Document{Data: []byte("x"), MimeType: MimePNG}
		}
		_, err := c.AcquireImages(context.Background(), docs)
		if !errors.Is(err, ErrTooManyFiles) {
			t.Errorf("err = %v, want ErrTooManyFiles", err)
		}
	})

	t.Run("non image rejected", func(t *testing.T) {
		c := NewCascade(NewTools(ToolsConfig{}, newStubRunner()), nil, nil)
		_, err := c.AcquireImages(context.Background(), []Document{{Data: []byte("%PDF"), MimeType: MimePDF}})
		if !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("err = %v, want ErrUnsupportedType", err)
		}
	})

	t.Run("local per image without cloud", func(t *testing.T) {
		runner := newStubRunner().on("magick", magickStub).on("tesseract", tesseract)
		c := NewCascade(NewTools(ToolsConfig{}, runner), nil, nil)

		text, err := c.AcquireImages(context.Background(), []Document{
			{Data: []byte("a"), MimeType: MimePNG},
			{Data: []byte("b"), MimeType: MimeJPEG},
		})
		if err != nil {
			t.Fatalf("AcquireImages: %v", err)
		}
		if text.Source != SourceLocal || text.Images != 2 {
			t.Errorf("text = %s/%d", text.Source, text.Images)
		}
		if !strings.Contains(text.Content, "----- IMAGE 2 -----") {
			t.Error("missing image marker")
		}
	})

	t.Run("cloud failure falls back to local", func(t *testing.T) {
		runner := newStubRunner().on("magick", magickStub).on("tesseract", tesseract)
		tools := NewTools(ToolsConfig{}, runner)
		cloud := NewCloudStrategy(&fakeAnalyzer{fn: func([]byte, string, []int32) (string, error) {
			return "", NewOCRError("fake", ErrAnalysisFailed, "")
		}}, tools, 2)
		c := NewCascade(tools, cloud, nil)

		text, err := c.AcquireImages(context.Background(), []Document{{Data: []byte("a"), MimeType: MimePNG}})
		if err != nil {
			t.Fatalf("AcquireImages: %v", err)
		}
		if text.Source != SourceLocal {
			t.Errorf("source = %s, want local-ocr", text.Source)
		}
	})

	t.Run("unusable cloud text falls back to local", func(t *testing.T) {
		runner := newStubRunner().on("magick", magickStub).on("tesseract", tesseract)
		tools := NewTools(ToolsConfig{}, runner)
		cloud := NewCloudStrategy(&fakeAnalyzer{fn: func([]byte, string, []int32) (string, error) {
			return "12,34 €", nil
		}}, tools, 2)
		c := NewCascade(tools, cloud, nil)

		text, err := c.AcquireImages(context.Background(), []Document{{Data: []byte("a"), MimeType: MimePNG}})
		if err != nil {
			t.Fatalf("AcquireImages: %v", err)
		}
		if text.Source != SourceLocal || runner.callsTo("tesseract") != 1 {
			t.Errorf("source = %s, tesseract calls = %d", text.Source, runner.callsTo("tesseract"))
		}
	})

	t.Run("unusable merged text", func(t *testing.T) {
		runner := newStubRunner().on("magick", magickStub).on("tesseract", func([]byte, []string) ([]byte, error) {
			return []byte("12,34"), nil
		})
		c := NewCascade(NewTools(ToolsConfig{}, runner), nil, nil)

		_, err := c.AcquireImages(context.Background(), []Document{{Data: []byte("a"), MimeType: MimePNG}})
		if !errors.Is(err, ErrNoUsableText) {
			t.Errorf("err = %v, want ErrNoUsableText", err)
		}
	})
}

func sources(strategies []Strategy) string {
	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = string(s.Source())
	}
	return strings.Join(names, ",")
}
