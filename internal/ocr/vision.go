package ocr

import (
	"context"
	"fmt"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"

	"splitroom/internal/logger"
)

// MaxVisionPages is the synchronous page limit of files:annotate.
const MaxVisionPages = 5

// VisionAnalyzer reads document text with Cloud Vision DOCUMENT_TEXT_DETECTION.
type VisionAnalyzer struct {
	client *vision.ImageAnnotatorClient
	config CloudConfig
	log    zerolog.Logger
}

func NewVisionAnalyzer(ctx context.Context, cfg CloudConfig) (*VisionAnalyzer, error) {
	const op = "NewVisionAnalyzer"

	client, err := vision.NewImageAnnotatorClient(ctx, cfg.clientOptions()...)
	if err != nil {
		return nil, NewOCRError(op, ErrCloudUnavailable, fmt.Sprintf("failed to create Vision client: %v", err))
	}
	return &VisionAnalyzer{
		client: client,
		config: cfg,
		log:    logger.WithComponent("vision"),
	}, nil
}

func (v *VisionAnalyzer) Name() string { return BackendVision }

func (v *VisionAnalyzer) Analyze(ctx context.Context, data []byte, mimeType string, pages []int32) (string, error) {
	const op = "VisionAnalyzer.Analyze"

	if len(data) == 0 {
		return "", NewOCRError(op, ErrEmptyDocument, "")
	}

	callCtx, cancel := context.WithTimeout(ctx, v.config.Timeout)
	defer cancel()

	features := []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}}

	if mimeType == MimePDF {
		if len(pages) > MaxVisionPages {
			pages = pages[:MaxVisionPages]
		}
		resp, err := v.client.BatchAnnotateFiles(callCtx, &visionpb.BatchAnnotateFilesRequest{
			Requests: []*visionpb.AnnotateFileRequest{{
				InputConfig: &visionpb.InputConfig{Content: data, MimeType: MimePDF},
				Features:    features,
				Pages:       pages,
			}},
		})
		if err != nil {
			return "", handleAnalysisError(op, "Vision", err)
		}
		if len(resp.GetResponses()) == 0 {
			return "", NewOCRError(op, ErrAnalysisFailed, "no response from Vision API")
		}
		fileResp := resp.GetResponses()[0]
		if fileResp.GetError() != nil {
			return "", NewOCRError(op, ErrAnalysisFailed, fileResp.GetError().GetMessage())
		}

		var b strings.Builder
		for i, page := range fileResp.GetResponses() {
			if page.GetError() != nil {
				return "", NewOCRError(op, ErrAnalysisFailed, fmt.Sprintf("page %d: %s", i+1, page.GetError().GetMessage()))
			}
			if i > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(page.GetFullTextAnnotation().GetText())
		}
		v.log.Debug().Int("pages", len(fileResp.GetResponses())).Int("text_length", b.Len()).Msg("Vision file analysis completed")
		return b.String(), nil
	}

	resp, err := v.client.BatchAnnotateImages(callCtx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: data},
			Features: features,
		}},
	})
	if err != nil {
		return "", handleAnalysisError(op, "Vision", err)
	}
	if len(resp.GetResponses()) == 0 {
		return "", NewOCRError(op, ErrAnalysisFailed, "no response from Vision API")
	}
	img := resp.GetResponses()[0]
	if img.GetError() != nil {
		return "", NewOCRError(op, ErrAnalysisFailed, img.GetError().GetMessage())
	}
	return img.GetFullTextAnnotation().GetText(), nil
}

// Close closes the underlying Vision client.
func (v *VisionAnalyzer) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
