// -----------------------------------------------------------------------
// PDF Extractor - Extract text content from PDF market reports
// Uses pdfcpu for Go-native PDF processing
// -----------------------------------------------------------------------

package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/interfaces"
)

// PDFExtractor implements the PDFExtractor interface using pdfcpu
type PDFExtractor struct {
	logger  arbor.ILogger
	tempDir string
}

var _ interfaces.PDFExtractor = (*PDFExtractor)(nil)

// NewPDFExtractor creates a new PDF extractor
func NewPDFExtractor(logger arbor.ILogger) *PDFExtractor {
	tempDir := filepath.Join(os.TempDir(), "demandcast-pdf")
	os.MkdirAll(tempDir, 0755)

	return &PDFExtractor{
		logger:  logger,
		tempDir: tempDir,
	}
}

// ExtractText returns the concatenated text content of a PDF document.
// Each call works in its own temp directory; one extractor is shared across
// all PDF sources and calls run concurrently during ingestion.
func (e *PDFExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	workDir, err := os.MkdirTemp(e.tempDir, "extract_")
	if err != nil {
		return "", fmt.Errorf("failed to create extraction directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	tempFile := filepath.Join(workDir, "source.pdf")
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write temp PDF file: %w", err)
	}

	outDir := filepath.Join(workDir, "pages")
	os.MkdirAll(outDir, 0755)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err != nil {
		return "", fmt.Errorf("failed to extract PDF content: %w", err)
	}

	files, err := os.ReadDir(outDir)
	if err != nil {
		return "", fmt.Errorf("failed to read extracted pages: %w", err)
	}

	names := make([]string, 0, len(files))
	for _, file := range files {
		if !file.IsDir() {
			names = append(names, file.Name())
		}
	}
	sort.Strings(names)

	var builder strings.Builder
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			e.logger.Warn().Err(err).Str("file", name).Msg("Failed to read extracted page")
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		builder.Write(content)
	}

	return builder.String(), nil
}

// PageCount returns the number of pages in a PDF document
func (e *PDFExtractor) PageCount(ctx context.Context, data []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("failed to count PDF pages: %w", err)
	}
	return count, nil
}
