package ocr

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"splitroom/internal/logger"
)

// ToolsConfig names the local binaries and OCR language.
type ToolsConfig struct {
	PDFToText string
	PDFToPPM  string
	PDFInfo   string
	Magick    string
	Tesseract string
	Lang      string
}

// DefaultToolsConfig expects every binary on PATH.
func DefaultToolsConfig() ToolsConfig {
	return ToolsConfig{
		PDFToText: "pdftotext",
		PDFToPPM:  "pdftoppm",
		PDFInfo:   "pdfinfo",
		Magick:    "magick",
		Tesseract: "tesseract",
		Lang:      "por+eng",
	}
}

// RasterFormat is the image encoding produced by RenderPage.
type RasterFormat string

const (
	RasterJPEG RasterFormat = "jpeg"
	RasterPNG  RasterFormat = "png"
)

const (
	// CloudRenderDPI is scale 1.5 of the 72 dpi PDF user space.
	CloudRenderDPI = 108
	// LocalRenderDPI favors tesseract accuracy over size.
	LocalRenderDPI = 200
	// DownscaleWidth is the target width for oversize images.
	DownscaleWidth = 1800
	// JPEGQuality is used for every re-encoded raster.
	JPEGQuality = 80
)

// Tools wraps the poppler, ImageMagick and tesseract command lines.
type Tools struct {
	runner Runner
	cfg    ToolsConfig
	log    zerolog.Logger
}

// NewTools creates Tools; a nil runner uses ExecRunner.
func NewTools(cfg ToolsConfig, runner Runner) *Tools {
	if runner == nil {
		runner = ExecRunner{}
	}
	def := DefaultToolsConfig()
	if cfg.PDFToText == "" {
		cfg.PDFToText = def.PDFToText
	}
	if cfg.PDFToPPM == "" {
		cfg.PDFToPPM = def.PDFToPPM
	}
	if cfg.PDFInfo == "" {
		cfg.PDFInfo = def.PDFInfo
	}
	if cfg.Magick == "" {
		cfg.Magick = def.Magick
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = def.Tesseract
	}
	if cfg.Lang == "" {
		cfg.Lang = def.Lang
	}
	return &Tools{runner: runner, cfg: cfg, log: logger.WithComponent("ocr-tools")}
}

// PDFText returns the text layer, one "----- PAGE N -----" block per page.
func (t *Tools) PDFText(ctx context.Context, pdf []byte) (string, error) {
	const op = "PDFText"

	var out []byte
	err := withTempPDF(pdf, func(path string) error {
		stdout, stderr, err := t.runner.Run(ctx, nil, t.cfg.PDFToText, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
		if err != nil {
			return toolError(ctx, op, err, stderr)
		}
		out = stdout
		return nil
	})
	if err != nil {
		return "", err
	}

	// pdftotext separates pages with a form feed
	pages := strings.Split(string(out), "\f")
	var b strings.Builder
	for i, page := range pages {
		page = strings.TrimSpace(page)
		if page == "" && i == len(pages)-1 {
			continue
		}
		fmt.Fprintf(&b, "\n\n----- PAGE %d -----\n%s", i+1, page)
	}
	return strings.TrimSpace(b.String()), nil
}

var pagesLine = regexp.MustCompile(`^Pages:\s+(\d+)`)

// PageCount reads the page count reported by pdfinfo.
func (t *Tools) PageCount(ctx context.Context, pdf []byte) (int, error) {
	const op = "PageCount"

	var count int
	err := withTempPDF(pdf, func(path string) error {
		stdout, stderr, err := t.runner.Run(ctx, nil, t.cfg.PDFInfo, path)
		if err != nil {
			return toolError(ctx, op, err, stderr)
		}
		sc := bufio.NewScanner(bytes.NewReader(stdout))
		for sc.Scan() {
			if m := pagesLine.FindStringSubmatch(sc.Text()); m != nil {
				count, _ = strconv.Atoi(m[1])
				return nil
			}
		}
		return NewOCRError(op, ErrInvalidPDF, "pdfinfo reported no page count")
	})
	return count, err
}

// RenderPage rasterizes one PDF page.
func (t *Tools) RenderPage(ctx context.Context, pdf []byte, page int, format RasterFormat, dpi int) ([]byte, error) {
	pages, err := t.RenderPages(ctx, pdf, []int{page}, format, dpi)
	if err != nil {
		return nil, err
	}
	return pages[0], nil
}

// RenderPages rasterizes the given pages, in order, to stdout one at a time.
func (t *Tools) RenderPages(ctx context.Context, pdf []byte, pages []int, format RasterFormat, dpi int) ([][]byte, error) {
	const op = "RenderPages"

	out := make([][]byte, 0, len(pages))
	err := withTempPDF(pdf, func(path string) error {
		for _, p := range pages {
			args := []string{"-f", strconv.Itoa(p), "-l", strconv.Itoa(p), "-singlefile", "-r", strconv.Itoa(dpi)}
			if format == RasterJPEG {
				args = append(args, "-jpeg", "-jpegopt", fmt.Sprintf("quality=%d", JPEGQuality))
			} else {
				args = append(args, "-png")
			}
			args = append(args, path)

			stdout, stderr, err := t.runner.Run(ctx, nil, t.cfg.PDFToPPM, args...)
			if err != nil {
				return toolError(ctx, op, err, stderr)
			}
			if len(stdout) == 0 {
				return NewOCRError(op, ErrToolFailed, fmt.Sprintf("pdftoppm produced no image for page %d", p))
			}
			out = append(out, stdout)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Downscale shrinks an image to DownscaleWidth (never enlarging) as JPEG.
func (t *Tools) Downscale(ctx context.Context, img []byte) ([]byte, error) {
	const op = "Downscale"

	stdout, stderr, err := t.runner.Run(ctx, img, t.cfg.Magick, "-",
		"-auto-orient", "-resize", fmt.Sprintf("%dx>", DownscaleWidth),
		"-quality", strconv.Itoa(JPEGQuality), "jpeg:-")
	if err != nil {
		return nil, toolError(ctx, op, err, stderr)
	}
	return stdout, nil
}

// PrepareForOCR rotates, grayscales and contrast-normalizes an image.
func (t *Tools) PrepareForOCR(ctx context.Context, img []byte) ([]byte, error) {
	const op = "PrepareForOCR"

	stdout, stderr, err := t.runner.Run(ctx, img, t.cfg.Magick, "-",
		"-auto-orient", "-colorspace", "Gray", "-normalize", "png:-")
	if err != nil {
		return nil, toolError(ctx, op, err, stderr)
	}
	return stdout, nil
}

// Tesseract recognizes text in an image read from stdin.
func (t *Tools) Tesseract(ctx context.Context, img []byte) (string, error) {
	const op = "Tesseract"

	stdout, stderr, err := t.runner.Run(ctx, img, t.cfg.Tesseract, "stdin", "stdout", "-l", t.cfg.Lang)
	if err != nil {
		return "", toolError(ctx, op, err, stderr)
	}
	return string(stdout), nil
}

func withTempPDF(pdf []byte, fn func(path string) error) error {
	if len(pdf) == 0 {
		return ErrEmptyDocument
	}
	f, err := os.CreateTemp("", "splitroom-*.pdf")
	if err != nil {
		return err
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(pdf); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return fn(path)
}

func toolError(ctx context.Context, op string, err error, stderr []byte) error {
	if ctxErr := contextError(ctx); ctxErr != nil {
		return NewOCRError(op, ctxErr, "")
	}
	detail := strings.TrimSpace(truncate(string(stderr), 512))
	if detail == "" {
		detail = err.Error()
	}
	return NewOCRError(op, ErrToolFailed, detail)
}
