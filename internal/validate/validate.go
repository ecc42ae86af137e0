// Package validate wraps go-playground/validator with json field names so
// error messages point at the request field the client actually sent.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

func New() *validator.Validate {
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

// FirstError returns the json field and failing tag of the first
// validation failure in err. ok is false for non-validation errors.
func FirstError(err error) (field, tag string, ok bool) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field(), verrs[0].Tag(), true
	}
	return "", "", false
}
