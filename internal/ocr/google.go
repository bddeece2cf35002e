package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Cloud backends selectable through CLOUD_OCR_BACKEND.
const (
	BackendDocumentAI = "documentai"
	BackendVision     = "vision"
)

// CloudConfig configures the Google cloud analyzers.
type CloudConfig struct {
	Backend          string
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string
	// CredentialsJSON is inline service account JSON (GOOGLE_CREDENTIALS).
	CredentialsJSON string
	// CredentialsFile is a key file path (GOOGLE_APPLICATION_CREDENTIALS).
	CredentialsFile string
	Timeout         time.Duration
}

// HasCredentials reports whether the cloud stage may be registered.
func (c CloudConfig) HasCredentials() bool {
	return c.CredentialsJSON != "" || c.CredentialsFile != ""
}

func (c CloudConfig) clientOptions() []option.ClientOption {
	var opts []option.ClientOption
	if c.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(c.CredentialsJSON)))
	} else if c.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(c.CredentialsFile))
	}
	return opts
}

// CloudAnalyzer is an Analyzer holding a client connection.
type CloudAnalyzer interface {
	Analyzer
	Close() error
}

// NewCloudAnalyzer creates the configured backend. Without credentials it
// returns ErrMissingCredentials and the cascade runs without a cloud stage.
func NewCloudAnalyzer(ctx context.Context, cfg CloudConfig) (CloudAnalyzer, error) {
	const op = "NewCloudAnalyzer"

	if !cfg.HasCredentials() {
		return nil, NewOCRError(op, ErrMissingCredentials, "")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	switch strings.ToLower(cfg.Backend) {
	case "", BackendDocumentAI:
		return NewDocumentAIAnalyzer(ctx, cfg)
	case BackendVision:
		return NewVisionAnalyzer(ctx, cfg)
	default:
		return nil, NewOCRError(op, ErrCloudUnavailable, fmt.Sprintf("unknown backend %q", cfg.Backend))
	}
}

// handleAnalysisError converts Google API errors to the package sentinels.
// gRPC status codes are checked first; REST errors fall back to the message.
func handleAnalysisError(op, service string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewOCRError(op, ErrTimeout, "processing timeout")
	}
	if errors.Is(err, context.Canceled) {
		return NewOCRError(op, ErrContextCanceled, "processing was canceled")
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.PermissionDenied, codes.Unauthenticated:
			return NewOCRError(op, ErrPermissionDenied, fmt.Sprintf("insufficient permissions for %s", service))
		case codes.ResourceExhausted:
			return NewOCRError(op, ErrQuotaExceeded, fmt.Sprintf("%s quota exceeded", service))
		case codes.NotFound:
			return NewOCRError(op, ErrProcessorNotFound, service)
		case codes.InvalidArgument:
			return NewOCRError(op, ErrInvalidPDF, "document format not supported or corrupted")
		case codes.DeadlineExceeded:
			return NewOCRError(op, ErrTimeout, "processing timeout")
		case codes.Canceled:
			return NewOCRError(op, ErrContextCanceled, "processing was canceled")
		case codes.Unavailable:
			return NewOCRError(op, ErrCloudUnavailable, st.Message())
		}
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return NewOCRError(op, ErrPermissionDenied, fmt.Sprintf("insufficient permissions for %s", service))
	case strings.Contains(errStr, "RESOURCE_EXHAUSTED"), strings.Contains(errStr, "QUOTA_EXCEEDED"):
		return NewOCRError(op, ErrQuotaExceeded, fmt.Sprintf("%s quota exceeded", service))
	case strings.Contains(errStr, "NOT_FOUND"):
		return NewOCRError(op, ErrProcessorNotFound, service)
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return NewOCRError(op, ErrInvalidPDF, "document format not supported or corrupted")
	default:
		return NewOCRError(op, ErrAnalysisFailed, fmt.Sprintf("%s error: %v", service, err))
	}
}
