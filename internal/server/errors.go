package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"splitroom/internal/ocr"
	"splitroom/pkg/models"
)

var (
	errNoFile       = errors.New("no file uploaded")
	errTooLarge     = errors.New("upload too large")
	errInvalidForm  = errors.New("invalid multipart form")
	errCloudMissing = errors.New("cloud analysis not configured")
)

// User-facing messages. Anything that is not the document's fault gets the
// generic internal message; details only go to the log.
const (
	msgNoFile        = "No file(s) uploaded"
	msgWrongType     = "Upload a PDF or image(s) (JPG/PNG/WEBP)."
	msgTooManyImages = "Too many images. Please upload max 12 screenshots."
	msgNoUsableText  = "OCR failed: no usable text extracted."
	msgInternal      = "Something went wrong on our side. Please try again."
)

// statusFor maps a pipeline error to an HTTP status and user message.
func statusFor(err error, maxUploadMB int) (int, string) {
	switch {
	case errors.Is(err, errNoFile), errors.Is(err, errInvalidForm):
		return http.StatusBadRequest, msgNoFile
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large. Maximum upload size is %d MB.", maxUploadMB)
	case errors.Is(err, ocr.ErrTooManyFiles):
		return http.StatusRequestEntityTooLarge, msgTooManyImages
	case errors.Is(err, ocr.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, msgWrongType
	case errors.Is(err, ocr.ErrEmptyDocument):
		return http.StatusBadRequest, "The uploaded file is empty."
	case errors.Is(err, ocr.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Reading the bill took too long. Try fewer pages or a smaller file."
	case errors.Is(err, ocr.ErrContextCanceled), errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, "The request was canceled."
	case errors.Is(err, ocr.ErrNoUsableText):
		return http.StatusUnprocessableEntity, msgNoUsableText
	case errors.Is(err, ocr.ErrInvalidPDF):
		return http.StatusUnprocessableEntity, "We could not read this PDF. It may be damaged or password protected."
	case errors.Is(err, errCloudMissing), errors.Is(err, ocr.ErrMissingCredentials):
		return http.StatusServiceUnavailable, "Cloud document analysis is not configured on this server."
	case errors.Is(err, ocr.ErrCloudUnavailable), errors.Is(err, ocr.ErrQuotaExceeded):
		return http.StatusServiceUnavailable, "Cloud document analysis is temporarily unavailable."
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// writeError writes the failure body. 5xx causes are logged with the raw
// error; the client only sees the mapped message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err, s.opts.MaxUploadMB)
	body := models.ErrorResponse{Error: msg}

	var ocrErr *ocr.OCRError
	if status == http.StatusUnprocessableEntity && errors.As(err, &ocrErr) {
		body.Debug = map[string]any{
			"ocrSource":  string(ocrErr.Source),
			"textLength": ocrErr.TextLength,
		}
	}

	ev := s.log.Info()
	if status >= http.StatusInternalServerError {
		ev = s.log.Error()
	}
	ev.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")

	writeJSON(w, status, body)
}

// writeNeedsOCR answers a stage endpoint whose input needs a heavier stage.
func writeNeedsOCR(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg, NeedsOCR: true})
}
