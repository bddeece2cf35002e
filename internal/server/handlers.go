package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"splitroom/internal/allocation"
	"splitroom/internal/bill"
	"splitroom/internal/ocr"
	"splitroom/pkg/models"
)

const (
	// multipartMemory is kept in memory; larger parts spill to temp files.
	multipartMemory = 32 << 20
	maxSessionBytes = 1 << 20

	// minLocalChars is the shortest local OCR text worth parsing.
	minLocalChars = 30
)

// analyzeBill runs the whole cascade on one PDF or up to ocr.MaxImages
// screenshots. A PDF wins when both are sent.
func (s *Server) analyzeBill(w http.ResponseWriter, r *http.Request) {
	docs, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	var res *bill.Result
	if pdf, ok := firstPDF(docs); ok {
		res, err = s.analyzer.Analyze(ctx, pdf, bill.Options{})
	} else {
		images := make([]ocr.Document, 0, len(docs))
		for _, d := range docs {
			if d.IsImage() {
				images = append(images, d)
			}
		}
		switch {
		case len(images) == 0:
			err = ocr.ErrUnsupportedType
		case len(images) > ocr.MaxImages:
			err = ocr.ErrTooManyFiles
		default:
			res, err = s.analyzer.AnalyzeImages(ctx, images, bill.Options{})
		}
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Response())
}

// scanBill only reads the PDF text layer.
func (s *Server) scanBill(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readSingle(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !doc.IsPDF() {
		writeNeedsOCR(w, http.StatusUnsupportedMediaType, "Upload a PDF for now.")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	text, err := s.runStage(ctx, ocr.SourceNative, doc)
	if err != nil {
		if ctx.Err() != nil {
			s.writeError(w, r, err)
			return
		}
		writeNeedsOCR(w, http.StatusUnprocessableEntity, "Could not extract text from PDF. Likely scanned, OCR needed.")
		return
	}
	if !ocr.IsUsable(text.Content) {
		writeNeedsOCR(w, http.StatusUnprocessableEntity, "This PDF looks scanned or has too little readable text. OCR is needed.")
		return
	}
	writeJSON(w, http.StatusOK, s.analyzer.AnalyzeText(ctx, text, bill.Options{}).Response())
}

// ocrBill runs local OCR only: PDF pages 1-2 or one image.
func (s *Server) ocrBill(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readSingle(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !doc.IsPDF() && !doc.IsImage() {
		writeNeedsOCR(w, http.StatusUnsupportedMediaType, "Upload a PDF or an image (JPG/PNG).")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	text, err := s.runStage(ctx, ocr.SourceLocal, doc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(strings.TrimSpace(text.Content)) < minLocalChars {
		writeNeedsOCR(w, http.StatusUnprocessableEntity, "OCR produced too little text. Try a clearer photo / scan.")
		return
	}
	writeJSON(w, http.StatusOK, s.analyzer.AnalyzeText(ctx, text, bill.Options{}).Response())
}

// cloudBill runs the cloud analyzer only, on the pages given by the
// "pages" query or form value.
func (s *Server) cloudBill(w http.ResponseWriter, r *http.Request) {
	if !s.analyzer.Cascade().HasCloud() {
		s.writeError(w, r, errCloudMissing)
		return
	}
	doc, err := s.readSingle(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !doc.IsPDF() && !doc.IsImage() {
		writeJSON(w, http.StatusUnsupportedMediaType, models.ErrorResponse{Error: "Upload a PDF or image."})
		return
	}
	doc.Pages = r.FormValue("pages")

	ctx, cancel := s.requestContext(r)
	defer cancel()

	text, err := s.runStage(ctx, ocr.SourceCloud, doc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(text.Content) == "" {
		s.writeError(w, r, &ocr.OCRError{Op: "cloudBill", Err: ocr.ErrNoUsableText, Source: ocr.SourceCloud})
		return
	}
	writeJSON(w, http.StatusOK, s.analyzer.AnalyzeText(ctx, text, bill.Options{}).Response())
}

type splitResponse struct {
	OK         bool               `json:"ok"`
	Allocation *models.Allocation `json:"allocation"`
}

// split allocates a session. The benchmark is attached unless
// ?benchmark=false.
func (s *Server) split(w http.ResponseWriter, r *http.Request) {
	var session models.Session
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSessionBytes))
	if err := dec.Decode(&session); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid session body: " + err.Error()})
		return
	}

	alloc, err := allocation.Allocate(session)
	if err != nil {
		var allocErr *allocation.AllocationError
		if errors.As(err, &allocErr) {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: allocErr.Error()})
			return
		}
		s.writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("benchmark") != "false" {
		alloc.Benchmark = allocation.Benchmark(session)
	}
	if s.metrics != nil {
		s.metrics.IncrAllocation()
	}
	writeJSON(w, http.StatusOK, splitResponse{OK: true, Allocation: alloc})
}

// runStage runs one cascade stage directly and reports it to the metrics.
func (s *Server) runStage(ctx context.Context, source ocr.Source, doc ocr.Document) (*ocr.Text, error) {
	stage := s.analyzer.Cascade().Stage(source)
	if stage == nil {
		return nil, errCloudMissing
	}

	start := time.Now()
	text, err := stage.Extract(ctx, doc)
	if s.metrics != nil {
		a := ocr.Attempt{Source: source, Err: err, Duration: time.Since(start)}
		if text != nil {
			a.TextLength = len(text.Content)
		}
		s.metrics.ObserveAttempt(a)
	}
	return text, err
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.opts.RequestTimeout)
}

// readUpload returns the "file" part followed by every "files" part.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]ocr.Document, error) {
	limit := int64(s.opts.MaxUploadMB) << 20
	if r.ContentLength > limit {
		return nil, errTooLarge
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errTooLarge
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, errNoFile
		}
		return nil, errors.Join(errInvalidForm, err)
	}

	var headers []*multipart.FileHeader
	headers = append(headers, r.MultipartForm.File["file"]...)
	headers = append(headers, r.MultipartForm.File["files"]...)
	if len(headers) == 0 {
		return nil, errNoFile
	}

	docs := make([]ocr.Document, 0, len(headers))
	for _, fh := range headers {
		doc, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// readSingle returns the first uploaded file.
func (s *Server) readSingle(w http.ResponseWriter, r *http.Request) (ocr.Document, error) {
	docs, err := s.readUpload(w, r)
	if err != nil {
		return ocr.Document{}, err
	}
	return docs[0], nil
}

func readPart(fh *multipart.FileHeader) (ocr.Document, error) {
	f, err := fh.Open()
	if err != nil {
		return ocr.Document{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return ocr.Document{}, err
	}
	return ocr.Document{
		Data:     data,
		MimeType: bill.DetectMimeType(data, fh.Header.Get("Content-Type"), fh.Filename),
		Name:     fh.Filename,
	}, nil
}

func firstPDF(docs []ocr.Document) (ocr.Document, bool) {
	for _, d := range docs {
		if d.IsPDF() {
			return d, true
		}
	}
	return ocr.Document{}, false
}
