// Package extractor routes stored documents to a format-specific text
// extractor by MIME type and filename extension.
package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/extractor/xlsx"
)

var _ ports.TextExtractor = (*Factory)(nil)

type Factory struct {
	plain *plaintext.Extractor
	pdf   *pdf.Extractor
	xlsx  *xlsx.Extractor
}

func NewFactory(storage ports.ObjectStorage) *Factory {
	return &Factory{
		plain: plaintext.NewExtractor(storage),
		pdf:   pdf.NewExtractor(storage),
		xlsx:  xlsx.NewExtractor(storage),
	}
}

func (f *Factory) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	switch {
	case isPDF(doc):
		return f.pdf.Extract(ctx, doc)
	case isXLSX(doc):
		return f.xlsx.Extract(ctx, doc)
	default:
		return f.plain.Extract(ctx, doc)
	}
}

func isPDF(doc *domain.Document) bool {
	return doc.MimeType == "application/pdf" || hasExt(doc, ".pdf")
}

func isXLSX(doc *domain.Document) bool {
	return doc.MimeType == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" ||
		hasExt(doc, ".xlsx")
}

func hasExt(doc *domain.Document, ext string) bool {
	return strings.EqualFold(filepath.Ext(doc.StoragePath), ext)
}
