package ocr

import "context"

// NativeText reads the embedded text layer of vector PDFs. It is fast,
// free and offline, and fails on scans.
type NativeText struct {
	tools *Tools
}

func NewNativeText(tools *Tools) *NativeText {
	return &NativeText{tools: tools}
}

func (n *NativeText) Source() Source { return SourceNative }

func (n *NativeText) Extract(ctx context.Context, doc Document) (*Text, error) {
	const op = "NativeText.Extract"

	if !doc.IsPDF() {
		return nil, NewOCRError(op, ErrUnsupportedType, doc.MimeType)
	}
	content, err := n.tools.PDFText(ctx, doc.Data)
	if err != nil {
		return nil, WrapOCRError(op, err, "")
	}
	return &Text{Content: content, Source: SourceNative}, nil
}
