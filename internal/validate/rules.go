package validate

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers the osm_key rule, which rejects keys
// and namespaces holding any of problemChars.
func RegisterCustomValidators(v *validator.Validate, problemChars string) error {
	return v.RegisterValidation("osm_key", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), problemChars)
	})
}
