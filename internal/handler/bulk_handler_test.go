package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fleet-service-api/internal/models"
	"github.com/noah-isme/fleet-service-api/internal/service"
	appErrors "github.com/noah-isme/fleet-service-api/pkg/errors"
)

type bulkServiceMock struct {
	last   service.BulkRequest
	result *service.BulkResult
	err    error
}

func (m *bulkServiceMock) ApplyBulk(_ context.Context, in service.BulkRequest) (*service.BulkResult, error) {
	m.last = in
	return m.result, m.err
}

func TestBulkHandlerPartialSuccess(t *testing.T) {
	svc := &bulkServiceMock{result: &service.BulkResult{
		Operation: service.BulkAssign,
		Items: []service.ItemResult{
			{RequestID: "a", Request: &models.ServiceRequest{ID: "a"}, Intents: []models.SideEffectIntent{{Kind: models.IntentLogActivity}}},
			{RequestID: "b", Error: appErrors.ErrSchedulingConflict},
		},
		Succeeded: 1,
		Failed:    1,
	}}
	sink := &sinkMock{}
	h := NewBulkHandler(svc, sink)

	c, w := newContext(http.MethodPost, "/requests/bulk", `{"operation":"assign","request_ids":["a","b"],"params":{"technician_id":"T1"}}`, &dispatcher)
	h.Apply(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dispatcher, svc.last.Actor)
	assert.Equal(t, []string{"a", "b"}, svc.last.RequestIDs)
	assert.Len(t, sink.intents, 1)
	assert.Contains(t, string(decodeEnvelope(t, w)["meta"]), `"failed":1`)
}

func TestBulkHandlerAllFailed(t *testing.T) {
	svc := &bulkServiceMock{result: &service.BulkResult{
		Items:  []service.ItemResult{{RequestID: "a", Error: appErrors.ErrNotFound}},
		Failed: 1,
	}}
	h := NewBulkHandler(svc, nil)

	c, w := newContext(http.MethodPost, "/requests/bulk", `{"operation":"assign","request_ids":["a"]}`, &dispatcher)
	h.Apply(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBulkHandlerMalformedBatch(t *testing.T) {
	h := NewBulkHandler(&bulkServiceMock{err: appErrors.ErrValidation}, nil)
	c, w := newContext(http.MethodPost, "/requests/bulk", `{"operation":"explode"}`, &dispatcher)
	h.Apply(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
