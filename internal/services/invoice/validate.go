package invoice

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"invoice-manager-backend/internal/apperror"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate

	indexPattern = regexp.MustCompile(`\[(\d+)\]`)
)

func formatValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// validateFormats checks lengths, ranges and the email shape of the fields
// that are present. Blank strings count as absent. Presence itself is checked
// by Normalize.
func validateFormats(r *Request, errs apperror.FieldErrors) {
	err := formatValidator().Struct(r.compact())
	if err == nil {
		return
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add("request", err.Error())
		return
	}
	for _, fe := range verrs {
		field := fieldPath(fe.Namespace())
		errs.Add(field, formatMessage(field, fe))
	}
}

// fieldPath turns "Request.line_items[2].name" into "line_items.2.name".
func fieldPath(namespace string) string {
	_, path, found := strings.Cut(namespace, ".")
	if !found {
		path = namespace
	}
	return indexPattern.ReplaceAllString(path, ".$1")
}

func formatMessage(field string, fe validator.FieldError) string {
	label := strings.ReplaceAll(field, "_", " ")
	switch fe.Tag() {
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", label)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must not be greater than %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("The %s field must not be greater than %s.", label, fe.Param())
	case "min":
		return fmt.Sprintf("The %s field must be at least %s.", label, fe.Param())
	}
	return fmt.Sprintf("The %s field is invalid.", label)
}
