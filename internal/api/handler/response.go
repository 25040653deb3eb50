package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/vinieshwan/parking-system/internal/apperr"
	"github.com/vinieshwan/parking-system/internal/logger"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type envelope struct {
	OK    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{OK: true, Data: data})
}

// respondError writes err using its kind. Internal causes are logged and
// replaced by a generic message.
func respondError(c *gin.Context, log logger.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(kind), envelope{
		Error: &errorBody{Kind: kind.String(), Message: apperr.MessageOf(err)},
	})
}

// bindingError turns a binding or validation failure into an InvalidArgument.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.InvalidArgument(fe.Field() + " failed on the '" + fe.Tag() + "' rule")
	}
	return apperr.InvalidArgument("malformed request body")
}
