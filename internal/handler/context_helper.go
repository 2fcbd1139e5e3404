package handler

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/workhabits-api/internal/middleware"
	appErrors "github.com/noah-isme/workhabits-api/pkg/errors"
	"github.com/noah-isme/workhabits-api/pkg/response"
)

// ownerFromContext resolves the authenticated owner or renders 401.
func ownerFromContext(c *gin.Context) (string, bool) {
	owner, ok := middleware.CurrentOwner(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return owner, true
}

// bindJSON decodes the request body or renders a validation error.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Validation(err, message))
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON for endpoints whose body may be omitted.
func bindOptionalJSON(c *gin.Context, dest interface{}, message string) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Validation(err, message))
		return false
	}
	return true
}

func queryBool(c *gin.Context, key string) *bool {
	switch strings.ToLower(strings.TrimSpace(c.Query(key))) {
	case "true", "1":
		v := true
		return &v
	case "false", "0":
		v := false
		return &v
	}
	return nil
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// queryMillis parses an epoch-milliseconds query parameter.
func queryMillis(c *gin.Context, key string) (*int64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid "+key+" parameter")
	}
	return &v, nil
}
