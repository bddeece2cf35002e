package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestCloudStrategySmallPDFUsesPageRange(t *testing.T) {
	runner := newStubRunner().on("pdfinfo", pdfInfo(10))
	analyzer := &fakeAnalyzer{fn: func([]byte, string, []int32) (string, error) {
		return usableText("cloud"), nil
	}}
	cloud := NewCloudStrategy(analyzer, NewTools(ToolsConfig{}, runner), 2)

	text, err := cloud.Extract(context.Background(), Document{Data: []byte("%PDF"), MimeType: MimePDF})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text.Pages != "1-4" {
		t.Errorf("Pages = %q, want 1-4", text.Pages)
	}
	if !slices.Equal(analyzer.pages[0], []int32{1, 2, 3, 4}) || analyzer.mimes[0] != MimePDF {
		t.Errorf("analyzer got pages %v mime %s", analyzer.pages[0], analyzer.mimes[0])
	}
}

func TestCloudStrategyOversizePDFGoesPageByPage(t *testing.T) {
	runner := newStubRunner().
		on("pdfinfo", pdfInfo(3)).
		on("pdftoppm", renderStub).
		on("magick", magickStub)
	analyzer := &fakeAnalyzer{fn: func(data []byte, _ string, _ []int32) (string, error) {
		return "text:" + string(data), nil
	}}
	cloud := NewCloudStrategy(analyzer, NewTools(ToolsConfig{}, runner), 2)

	big := bytes.Repeat([]byte("x"), MaxCloudBytes+1)
	text, err := cloud.Extract(context.Background(), Document{Data: big, MimeType: MimePDF, Pages: "2-9"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "----- PAGE 1 -----\n\ntext:p2\n\n----- PAGE 2 -----\n\ntext:p3"
	if text.Content != want {
		t.Errorf("Content = %q, want %q", text.Content, want)
	}
	if text.Pages != "2-3" {
		t.Errorf("Pages = %q, want 2-3", text.Pages)
	}
	for _, m := range analyzer.mimes {
		if m != MimeJPEG {
			t.Errorf("page sent as %s, want JPEG", m)
		}
	}
}

func TestCloudStrategyDownscalesLargeImage(t *testing.T) {
	runner := newStubRunner().on("magick", magickStub)
	analyzer := &fakeAnalyzer{fn: func(data []byte, _ string, _ []int32) (string, error) {
		return fmt.Sprintf("%d bytes", len(data)), nil
	}}
	cloud := NewCloudStrategy(analyzer, NewTools(ToolsConfig{}, runner), 1)

	small := Document{Data: []byte("png"), MimeType: MimePNG}
	if _, err := cloud.Extract(context.Background(), small); err != nil {
		t.Fatalf("Extract small: %v", err)
	}
	if runner.callsTo("magick") != 0 || analyzer.mimes[0] != MimePNG {
		t.Error("small image should be sent unchanged")
	}

	large := Document{Data: bytes.Repeat([]byte("x"), MaxCloudBytes+10), MimeType: MimePNG}
	if _, err := cloud.Extract(context.Background(), large); err != nil {
		t.Fatalf("Extract large: %v", err)
	}
	if runner.callsTo("magick") != 1 || analyzer.mimes[1] != MimeJPEG {
		t.Error("large image should be downscaled to JPEG")
	}
}

func TestAnalyzePagesKeepsInputOrder(t *testing.T) {
	runner := newStubRunner().on("magick", magickStub)
	analyzer := &fakeAnalyzer{fn: func(data []byte, _ string, _ []int32) (string, error) {
		// later pages answer first
		n := int(data[len(data)-1] - '0')
		time.Sleep(time.Duration(5-n) * 5 * time.Millisecond)
		return string(data), nil
	}}
	cloud := NewCloudStrategy(analyzer, NewTools(ToolsConfig{}, runner), 4)

	docs := []Document{
		{Data: []byte("i1"), MimeType: MimePNG},
		{Data: []byte("i2"), MimeType: MimePNG},
		{Data: []byte("i3"), MimeType: MimePNG},
		{Data: []byte("i4"), MimeType: MimePNG},
	}
	got, err := cloud.AnalyzePages(context.Background(), docs, "IMAGE")
	if err != nil {
		t.Fatalf("AnalyzePages: %v", err)
	}
	want := MergeSections([]string{"i1", "i2", "i3", "i4"}, "IMAGE")
	if got != want {
		t.Errorf("AnalyzePages() = %q, want %q", got, want)
	}
}

func TestAnalyzePagesOnlyDownscalesOversizeImages(t *testing.T) {
	runner := newStubRunner().on("magick", magickStub)
	analyzer := &fakeAnalyzer{fn: func(data []byte, _ string, _ []int32) (string, error) {
		return fmt.Sprintf("%d bytes", len(data)), nil
	}}
	cloud := NewCloudStrategy(analyzer, NewTools(ToolsConfig{}, runner), 1)

	large := bytes.Repeat([]byte("x"), MaxCloudBytes+1)
	_, err := cloud.AnalyzePages(context.Background(), []Document{
		{Data: []byte("small"), MimeType: MimePNG},
		{Data: large, MimeType: MimeWEBP},
	}, "IMAGE")
	if err != nil {
		t.Fatalf("AnalyzePages: %v", err)
	}
	if n := runner.callsTo("magick"); n != 1 {
		t.Errorf("magick calls = %d, want 1", n)
	}
	if want := []string{MimePNG, MimeJPEG}; !slices.Equal(analyzer.mimes, want) {
		t.Errorf("mimes = %v, want %v", analyzer.mimes, want)
	}
}

func TestAnalyzePagesFailsWhenAnyPageFails(t *testing.T) {
	runner := newStubRunner().on("magick", magickStub)
	analyzer := &fakeAnalyzer{fn: func(data []byte, _ string, _ []int32) (string, error) {
		if bytes.HasSuffix(data, []byte("2")) {
			return "", NewOCRError("fake", ErrQuotaExceeded, "")
		}
		return "ok", nil
	}}
	cloud := NewCloudStrategy(analyzer, NewTools(ToolsConfig{}, runner), 2)

	_, err := cloud.AnalyzePages(context.Background(), []Document{
		{Data: []byte("i1"), MimeType: MimeJPEG},
		{Data: []byte("i2"), MimeType: MimeJPEG},
	}, "PAGE")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("err = %v, want ErrQuotaExceeded", err)
	}
}

func TestCloudStrategyBreakerOpens(t *testing.T) {
	analyzer := &fakeAnalyzer{fn: func([]byte, string, []int32) (string, error) {
		return "", NewOCRError("fake", ErrAnalysisFailed, "boom")
	}}
	cloud := NewCloudStrategy(analyzer, NewTools(ToolsConfig{}, newStubRunner()), 1)
	img := Document{Data: []byte("png"), MimeType: MimePNG}

	for range 5 {
		if _, err := cloud.Extract(context.Background(), img); !errors.Is(err, ErrAnalysisFailed) {
			t.Fatalf("err = %v, want ErrAnalysisFailed", err)
		}
	}
	_, err := cloud.Extract(context.Background(), img)
	if !errors.Is(err, ErrCloudUnavailable) {
		t.Errorf("err = %v, want ErrCloudUnavailable once the breaker is open", err)
	}
	if len(analyzer.mimes) != 5 {
		t.Errorf("analyzer called %d times, want 5", len(analyzer.mimes))
	}
}

func TestHandleAnalysisError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"permission", status.Error(codes.PermissionDenied, "no access"), ErrPermissionDenied},
		{"unauthenticated", status.Error(codes.Unauthenticated, "bad key"), ErrPermissionDenied},
		{"quota", status.Error(codes.ResourceExhausted, "quota"), ErrQuotaExceeded},
		{"processor", status.Error(codes.NotFound, "processor"), ErrProcessorNotFound},
		{"bad pdf", status.Error(codes.InvalidArgument, "bad pdf"), ErrInvalidPDF},
		{"unavailable", status.Error(codes.Unavailable, "down"), ErrCloudUnavailable},
		{"grpc deadline", status.Error(codes.DeadlineExceeded, "slow"), ErrTimeout},
		{"context deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), ErrTimeout},
		{"context canceled", context.Canceled, ErrContextCanceled},
		{"rest quota", errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED"), ErrQuotaExceeded},
		{"rest permission", errors.New("googleapi: Error 403: PERMISSION_DENIED"), ErrPermissionDenied},
		{"unknown", errors.New("boom"), ErrAnalysisFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handleAnalysisError("op", "Document AI", tt.err)
			if !errors.Is(err, tt.want) {
				t.Errorf("handleAnalysisError(%v) = %v, want %v", tt.err, err, tt.want)
			}
		})
	}
}
