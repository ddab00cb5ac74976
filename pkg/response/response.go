// Package response renders errors for gin handlers.
package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apperrors "gamecatalog/pkg/errors"
	"gamecatalog/pkg/logger"
)

type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Error writes err as {"error": message, "code": CODE} with the status of its
// AppError. Unclassified errors become STORE_ERROR and are logged; their text
// is never sent to the client.
func Error(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		err = apperrors.FromValidator(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		if _, ok := apperrors.As(err); !ok {
			err = apperrors.Timeout("request timed out", err)
		}
	}

	appErr, ok := apperrors.As(err)
	if !ok {
		logger.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("unclassified error")
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody{
			Error: "internal server error",
			Code:  apperrors.CodeStore,
		})
		return
	}

	if appErr.Status >= http.StatusInternalServerError {
		logger.Ctx(c.Request.Context()).Error().Err(appErr).Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(appErr.Status, ErrorBody{Error: appErr.Message, Code: appErr.Code})
}

// BadRequest is a shorthand for malformed request bodies.
func BadRequest(c *gin.Context, message string) {
	Error(c, apperrors.Validation(message, nil))
}
