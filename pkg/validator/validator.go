package validator

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

// Validator checks struct tags and reports every failing field.
type Validator interface {
	Validate(interface{}) []errors.FieldError
}

type tagValidator struct {
	v *validator.Validate
}

// New returns a validator that names fields by their json tag.
func New() Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &tagValidator{v: v}
}

func (t *tagValidator) Validate(obj interface{}) []errors.FieldError {
	err := t.v.Struct(obj)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return []errors.FieldError{{Field: "", Message: err.Error()}}
	}

	out := make([]errors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, errors.FieldError{
			Field:   fieldPath(fe),
			Message: describe(fe),
		})
	}
	return out
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "unique":
		return "must not contain duplicates"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gtefield":
		return fmt.Sprintf("must not be before %s", strings.ToLower(fe.Param()))
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
