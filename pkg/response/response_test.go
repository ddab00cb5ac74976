package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gamecatalog/pkg/errors"
)

func render(t *testing.T, err error) (int, ErrorBody) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", func(c *gin.Context) { Error(c, err) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestError_AppError(t *testing.T) {
	code, body := render(t, fmt.Errorf("delete: %w", apperrors.StaticEntryImmutable("static-1")))

	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, apperrors.CodeStaticEntry, body.Code)
}

func TestError_ValidatorErrors(t *testing.T) {
	type input struct {
		Title string `validate:"required"`
	}
	err := validator.New().Struct(input{})

	code, body := render(t, err)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, apperrors.CodeValidation, body.Code)
	assert.Equal(t, "Title is required", body.Error)
}

func TestError_DeadlineBecomesTimeout(t *testing.T) {
	code, body := render(t, fmt.Errorf("list: %w", context.DeadlineExceeded))

	assert.Equal(t, http.StatusGatewayTimeout, code)
	assert.Equal(t, apperrors.CodeTimeout, body.Code)
}

func TestError_UnclassifiedHidesDetails(t *testing.T) {
	code, body := render(t, errors.New("sql: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, apperrors.CodeStore, body.Code)
	assert.NotContains(t, body.Error, "connection refused")
}
