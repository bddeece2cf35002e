package ocr

import (
	"errors"
	"fmt"
)

// Common text acquisition errors
var (
	// ErrNoUsableText is returned when every cascade stage failed the usability test.
	ErrNoUsableText = errors.New("OCR failed: no usable text extracted")

	// ErrNeedsOCR is returned by the native text path when the document has no
	// usable text layer and should be retried through OCR.
	ErrNeedsOCR = errors.New("document has no usable text layer, OCR required")

	// ErrUnsupportedType is returned when a stage cannot handle the content type.
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrTooManyFiles is returned when more than MaxImages images are submitted.
	ErrTooManyFiles = errors.New("too many images submitted")

	// ErrEmptyDocument is returned when a document carries no bytes or no text at all.
	ErrEmptyDocument = errors.New("document contains no readable text")

	// ErrInvalidPDF is returned when the data is not a PDF the tools can open.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrMissingCredentials is returned when neither GOOGLE_APPLICATION_CREDENTIALS
	// nor GOOGLE_CREDENTIALS is configured for the cloud stage.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrCloudUnavailable is returned when the cloud stage is not configured
	// or its circuit breaker is open.
	ErrCloudUnavailable = errors.New("cloud document analysis unavailable")

	// ErrAnalysisFailed is returned when the cloud provider rejects or fails a request.
	ErrAnalysisFailed = errors.New("cloud document analysis failed")

	// ErrPermissionDenied is returned when the service account lacks access.
	ErrPermissionDenied = errors.New("permission denied by document analysis provider")

	// ErrQuotaExceeded is returned when provider quota limits are hit.
	ErrQuotaExceeded = errors.New("document analysis quota exceeded")

	// ErrProcessorNotFound is returned when the Document AI processor does not exist.
	ErrProcessorNotFound = errors.New("Document AI processor not found")

	// ErrToolFailed is returned when a local command (pdftotext, tesseract...) fails.
	ErrToolFailed = errors.New("local text tool failed")

	// ErrTimeout is returned when the caller's deadline expires during acquisition.
	ErrTimeout = errors.New("text acquisition timed out")

	// ErrContextCanceled is returned when the context is canceled during processing.
	ErrContextCanceled = errors.New("OCR processing was canceled")
)

// OCRError wraps errors with additional context about the acquisition failure.
type OCRError struct {
	// Op is the operation that failed (e.g., "Acquire", "AnalyzePages").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string

	// Source is the last stage that was tried, if any.
	Source Source

	// TextLength is the length of the best text seen before giving up.
	TextLength int
}

// Error implements the error interface.
func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OCRError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewOCRError creates a new OCRError with the specified operation and underlying error.
func NewOCRError(op string, err error, details string) *OCRError {
	return &OCRError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapOCRError wraps an error as an OCRError if it isn't already one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}

	return NewOCRError(op, err, details)
}
