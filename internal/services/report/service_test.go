package report

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/common"
	"github.com/ternarybob/demandcast/internal/models"
)

func TestGenerateWritesPDF(t *testing.T) {
	dir := t.TempDir()
	service := NewService(&common.ReportConfig{Dir: dir}, arbor.NewLogger())

	finished := time.Now()
	job := &models.PipelineJob{
		ID:           "job_test",
		Status:       models.JobStatusCompleted,
		Provenance:   models.ProvenanceReal,
		ProductCount: 2,
		StartedAt:    finished.Add(-90 * time.Second),
		FinishedAt:   &finished,
	}
	forecasts := []models.ForecastResult{
		{ProductCode: "p-01", ForecastUnits: 120, Trend: models.TrendUp, ChangePercent: 12.5, Confidence: 80, ModelType: "baseline-ma3"},
		{ProductCode: "p-02", ForecastUnits: 90, Trend: models.TrendStable, ChangePercent: -1.2, Confidence: 65, ModelType: "baseline-ma3"},
	}
	alerts := []models.Alert{
		{Severity: models.AlertSeverityWarning, Message: "Forecast demand increase of 12.5% for p-01"},
	}

	path, err := service.Generate(job, forecasts, alerts)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !strings.HasSuffix(path, "run-job_test.pdf") {
		t.Errorf("unexpected report path: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("report file not written: %v", err)
	}
	if len(data) < 100 || string(data[:5]) != "%PDF-" {
		t.Errorf("report is not a PDF (%d bytes)", len(data))
	}
}

func TestGenerateDegradedRunBanner(t *testing.T) {
	dir := t.TempDir()
	service := NewService(&common.ReportConfig{Dir: dir}, arbor.NewLogger())

	job := &models.PipelineJob{
		ID:         "job_degraded",
		Status:     models.JobStatusDegraded,
		Provenance: models.ProvenanceFallback,
		Error:      "deadline exceeded during ingestion",
		StartedAt:  time.Now(),
	}

	path, err := service.Generate(job, nil, nil)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("degraded report not written: %v", err)
	}
}
