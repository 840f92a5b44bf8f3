package interfaces

import (
	"context"
)

// PDFExtractor extracts plain text from PDF market reports
type PDFExtractor interface {
	// ExtractText returns the text content of a PDF document
	ExtractText(ctx context.Context, data []byte) (string, error)

	// PageCount returns the number of pages in a PDF document
	PageCount(ctx context.Context, data []byte) (int, error)
}
