package handler

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var objectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// IsResourceID accepts document store object ids and UUIDs, the two id
// formats issued by the storage backends.
func IsResourceID(s string) bool {
	if objectIDPattern.MatchString(s) {
		return true
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func validateResourceID(fl validator.FieldLevel) bool {
	return IsResourceID(fl.Field().String())
}

// RegisterValidators installs the custom binding rules on gin's validator and
// reports field names by their json or uri tag.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "uri"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	_ = v.RegisterValidation("resourceid", validateResourceID)
}
