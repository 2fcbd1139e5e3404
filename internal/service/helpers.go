package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/workhabits-api/pkg/errors"
)

// NewValidator returns a validator that reports JSON field names so
// validation errors line up with request payloads.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func lookupError(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// trimmedOrNil trims optional text, collapsing blanks to nil.
func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

type cacheInvalidator interface {
	InvalidateOwner(ctx context.Context, ownerID string) error
}

// invalidateAnalytics drops the owner's cached analytics. Failures never fail
// the write that triggered them.
func invalidateAnalytics(ctx context.Context, cache cacheInvalidator, ownerID string) {
	if cache == nil {
		return
	}
	_ = cache.InvalidateOwner(ctx, ownerID)
}

func marshalAuditValues(values map[string]interface{}) []byte {
	raw, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return raw
}
