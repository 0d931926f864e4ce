package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/fleet-service-api/internal/models"
	appErrors "github.com/noah-isme/fleet-service-api/pkg/errors"
	"github.com/noah-isme/fleet-service-api/pkg/export"
)

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders technician schedules for download.
type ExportService struct {
	schedules *ScheduleService
	renderers map[export.Format]datasetRenderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to
// the package defaults.
func NewExportService(schedules *ScheduleService, csv, xlsx datasetRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		schedules: schedules,
		renderers: map[export.Format]datasetRenderer{export.FormatCSV: csv, export.FormatXLSX: xlsx},
		logger:    logger,
	}
}

// ScheduleHeaders are the columns of a schedule export.
var ScheduleHeaders = []string{"block_id", "request_id", "technician_id", "start", "end", "duration_minutes"}

// ScheduleDataset turns blocks into export rows with RFC 3339 UTC times.
func ScheduleDataset(technicianID string, blocks []models.ScheduleBlock) export.Dataset {
	rows := make([][]string, 0, len(blocks))
	for _, b := range blocks {
		rows = append(rows, []string{
			b.ID,
			b.RequestID,
			b.TechnicianID,
			b.Start.UTC().Format(time.RFC3339),
			b.End.UTC().Format(time.RFC3339),
			fmt.Sprintf("%d", int(b.End.Sub(b.Start).Minutes())),
		})
	}
	return export.Dataset{
		Title:   "Schedule " + technicianID,
		Headers: ScheduleHeaders,
		Rows:    rows,
	}
}

// ExportSchedule renders the technician's blocks in [from, to).
func (s *ExportService) ExportSchedule(ctx context.Context, technicianID string, from, to time.Time, format export.Format) (*ExportFile, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	blocks, err := s.schedules.TechnicianSchedule(ctx, technicianID, from, to)
	if err != nil {
		return nil, err
	}
	body, err := renderer.Render(ScheduleDataset(technicianID, blocks))
	if err != nil {
		s.logger.Error("schedule export failed", zap.String("technician_id", technicianID), zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("schedule-%s.%s", technicianID, format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}
