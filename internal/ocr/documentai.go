package ocr

import (
	"context"
	"fmt"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"splitroom/internal/logger"
)

// DocumentAIAnalyzer reads document text with a Document AI OCR processor.
type DocumentAIAnalyzer struct {
	client *documentai.DocumentProcessorClient
	config CloudConfig
	log    zerolog.Logger
}

// NewDocumentAIAnalyzer creates the client on the regional endpoint.
// Requires GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID.
func NewDocumentAIAnalyzer(ctx context.Context, cfg CloudConfig) (*DocumentAIAnalyzer, error) {
	const op = "NewDocumentAIAnalyzer"

	if cfg.ProjectID == "" || cfg.ProcessorID == "" {
		return nil, NewOCRError(op, ErrCloudUnavailable, "GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID are required")
	}
	if cfg.Location == "" {
		cfg.Location = "eu"
	}

	opts := cfg.clientOptions()
	if cfg.Location != "us" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, NewOCRError(op, ErrCloudUnavailable, fmt.Sprintf("failed to create Document AI client for location %s: %v", cfg.Location, err))
	}

	return &DocumentAIAnalyzer{
		client: client,
		config: cfg,
		log:    logger.WithComponent("document-ai"),
	}, nil
}

func (p *DocumentAIAnalyzer) Name() string { return BackendDocumentAI }

// Analyze processes data inline. For PDFs only pages are read.
func (p *DocumentAIAnalyzer) Analyze(ctx context.Context, data []byte, mimeType string, pages []int32) (string, error) {
	const op = "DocumentAIAnalyzer.Analyze"

	if len(data) == 0 {
		return "", NewOCRError(op, ErrEmptyDocument, "")
	}

	processCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: p.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: mimeType,
			},
		},
	}
	if mimeType == MimePDF && len(pages) > 0 {
		req.ProcessOptions = &documentaipb.ProcessOptions{
			PageRange: &documentaipb.ProcessOptions_IndividualPageSelector_{
				IndividualPageSelector: &documentaipb.ProcessOptions_IndividualPageSelector{Pages: pages},
			},
		}
	}

	resp, err := p.client.ProcessDocument(processCtx, req)
	if err != nil {
		p.log.Warn().Err(err).Str("mime", mimeType).Int("bytes", len(data)).Msg("Document AI request failed")
		return "", handleAnalysisError(op, "Document AI", err)
	}
	if resp.GetDocument() == nil {
		return "", NewOCRError(op, ErrAnalysisFailed, "no document in response")
	}

	text := resp.GetDocument().GetText()
	p.log.Debug().
		Str("mime", mimeType).
		Int("pages", len(resp.GetDocument().GetPages())).
		Int("text_length", len(text)).
		Msg("Document AI analysis completed")
	return text, nil
}

func (p *DocumentAIAnalyzer) processorName() string {
	if p.config.ProcessorVersion != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
			p.config.ProjectID, p.config.Location, p.config.ProcessorID, p.config.ProcessorVersion)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		p.config.ProjectID, p.config.Location, p.config.ProcessorID)
}

// Close closes the underlying Document AI client.
func (p *DocumentAIAnalyzer) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
