package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/fleet-service-api/pkg/errors"
	"github.com/noah-isme/fleet-service-api/pkg/export"
)

type failingRenderer struct{}

func (failingRenderer) Render(export.Dataset) ([]byte, error) { return nil, errors.New("disk full") }

func TestExportScheduleCSV(t *testing.T) {
	f := newFixture(t)
	f.newRequest(t, "R")
	f.mustApply(t, dispatchActor, "R", "SCHEDULE", TransitionPayload{TechnicianID: "T1", Window: window(9, 0, 10, 30)})

	svc := NewExportService(f.scheduler, nil, nil, nil)
	file, err := svc.ExportSchedule(context.Background(), "T1", day, day.AddDate(0, 0, 1), export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "schedule-T1.csv", file.Filename)

	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "block_id,request_id"))
	assert.Contains(t, lines[1], ",R,T1,2024-06-03T09:00:00Z,2024-06-03T10:30:00Z,90")
}

func TestExportScheduleErrors(t *testing.T) {
	f := newFixture(t)
	svc := NewExportService(f.scheduler, failingRenderer{}, nil, nil)
	ctx := context.Background()

	_, err := svc.ExportSchedule(ctx, "T1", day, day.AddDate(0, 0, 1), export.Format("pdf"))
	requireCode(t, err, appErrors.ErrValidation)

	_, err = svc.ExportSchedule(ctx, "T1", day, day.AddDate(0, 0, 1), export.FormatCSV)
	requireCode(t, err, appErrors.ErrInternal)
}
