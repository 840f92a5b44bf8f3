// -----------------------------------------------------------------------
// Run Report - PDF summary of one pipeline run
// -----------------------------------------------------------------------

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/common"
	"github.com/ternarybob/demandcast/internal/models"
)

// Service writes the per-run PDF report. Implements the output stage's
// ReportGenerator; a failed report never fails the run.
type Service struct {
	dir    string
	logger arbor.ILogger
}

// NewService creates a report service writing into the configured directory
func NewService(config *common.ReportConfig, logger arbor.ILogger) *Service {
	dir := config.Dir
	if dir == "" {
		dir = "./reports"
	}
	return &Service{
		dir:    dir,
		logger: logger,
	}
}

// Generate renders the run report and returns the written file path
func (s *Service) Generate(job *models.PipelineJob, forecasts []models.ForecastResult, alerts []models.Alert) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	s.writeHeader(pdf, job)
	s.writeSummary(pdf, job, forecasts, alerts)
	s.writeForecastTable(pdf, forecasts)
	s.writeAlerts(pdf, alerts)

	path := filepath.Join(s.dir, fmt.Sprintf("run-%s.pdf", job.ID))
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("path", path).
		Msg("Run report written")

	return path, nil
}

func (s *Service) writeHeader(pdf *fpdf.Fpdf, job *models.PipelineJob) {
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Demand Forecast Run Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 5, fmt.Sprintf("Job %s  |  %s", job.ID, job.StartedAt.Format(time.RFC1123)), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	if job.Provenance == models.ProvenanceFallback {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetTextColor(180, 60, 0)
		pdf.MultiCell(0, 6, "DEGRADED RUN: the figures below are deterministic fallback estimates, not genuine pipeline output. Reason: "+job.Error, "", "L", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(4)
	}
}

func (s *Service) writeSummary(pdf *fpdf.Fpdf, job *models.PipelineJob, forecasts []models.ForecastResult, alerts []models.Alert) {
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)

	totalUnits := 0.0
	for _, forecast := range forecasts {
		totalUnits += forecast.ForecastUnits
	}

	duration := ""
	if job.FinishedAt != nil {
		duration = job.FinishedAt.Sub(job.StartedAt).Round(time.Second).String()
	}

	rows := [][2]string{
		{"Status", string(job.Status)},
		{"Provenance", string(job.Provenance)},
		{"Products forecast", fmt.Sprintf("%d of %d", len(forecasts), job.ProductCount)},
		{"Failed products", fmt.Sprintf("%d", job.FailedProducts)},
		{"Total forecast units", fmt.Sprintf("%.0f", totalUnits)},
		{"Alerts raised", fmt.Sprintf("%d", len(alerts))},
		{"Source failures", fmt.Sprintf("%d", job.SourceFailures)},
		{"Duration", duration},
	}
	for _, row := range rows {
		pdf.CellFormat(50, 6, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func (s *Service) writeForecastTable(pdf *fpdf.Fpdf, forecasts []models.ForecastResult) {
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Forecasts", "", 1, "L", false, 0, "")

	headers := []string{"Product", "Units", "Trend", "Change %", "Confidence", "Model"}
	widths := []float64{50, 25, 20, 25, 25, 35}

	pdf.SetFont("Arial", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 6, header, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	pdf.SetFillColor(255, 255, 255)
	for _, forecast := range forecasts {
		cells := []string{
			forecast.ProductCode,
			fmt.Sprintf("%.0f", forecast.ForecastUnits),
			string(forecast.Trend),
			fmt.Sprintf("%+.1f", forecast.ChangePercent),
			fmt.Sprintf("%.0f", forecast.Confidence),
			forecast.ModelType,
		}
		for i, cell := range cells {
			pdf.CellFormat(widths[i], 6, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

func (s *Service) writeAlerts(pdf *fpdf.Fpdf, alerts []models.Alert) {
	if len(alerts) == 0 {
		return
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Alerts", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)

	for _, alert := range alerts {
		marker := "-"
		if alert.Severity == models.AlertSeverityCritical {
			marker = "!"
			pdf.SetTextColor(180, 0, 0)
		}
		pdf.MultiCell(0, 5, fmt.Sprintf("%s [%s] %s", marker, alert.Severity, alert.Message), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}
}
