package localfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

// ReportFile keeps only the latest monitor report.
type ReportFile struct {
	path string
}

func NewReportFile(path string) *ReportFile {
	if path == "" {
		path = "./data/monitor_report.json"
	}
	return &ReportFile{path: path}
}

func (f *ReportFile) SaveReport(_ context.Context, report *domain.MonitorReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := writeFileAtomic(f.path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func (f *ReportFile) LatestReport(_ context.Context) (*domain.MonitorReport, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if isNotExist(err) {
			return nil, domain.ErrReportNotFound
		}
		return nil, fmt.Errorf("read report: %w", err)
	}
	var report domain.MonitorReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode report", err)
	}
	return &report, nil
}
