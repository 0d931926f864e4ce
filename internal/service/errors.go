package service

import (
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/fleet-service-api/internal/core/lifecycle"
	"github.com/noah-isme/fleet-service-api/internal/store"
	appErrors "github.com/noah-isme/fleet-service-api/pkg/errors"
)

// storeError maps store sentinels onto typed errors. Errors that are already
// typed pass through untouched.
func storeError(err error, what string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	case errors.Is(err, store.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrConflict, what+" already exists")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to access "+what)
}

func denialError(err error) error {
	var d *lifecycle.Denial
	if !errors.As(err, &d) {
		return err
	}
	switch d.Kind {
	case lifecycle.DenialUnauthorized:
		return appErrors.Wrap(d, appErrors.ErrUnauthorizedActor.Code, appErrors.ErrUnauthorizedActor.Status, d.Reason)
	case lifecycle.DenialInvalidInput:
		return appErrors.Wrap(d, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, d.Reason)
	default:
		return appErrors.Wrap(d, appErrors.ErrInvalidTransition.Code, appErrors.ErrInvalidTransition.Status, d.Reason)
	}
}

// outcomeOf buckets an error for the domain counters.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case appErrors.HasCode(err, appErrors.ErrSchedulingConflict):
		return outcomeConflict
	case appErrors.HasCode(err, appErrors.ErrInternal):
		return outcomeError
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return outcomeRejected
	}
	return outcomeError
}

func encodeJSON(v interface{}) types.JSONText {
	raw, err := json.Marshal(v)
	if err != nil {
		return types.JSONText(`{}`)
	}
	return types.JSONText(raw)
}
