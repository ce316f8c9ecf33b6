package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/errors"
)

// Validator runs struct tag validation and reports every failing field.
type Validator interface {
	Validate(obj interface{}) error
	// ValidateStruct returns the field errors of obj, or nil.
	ValidateStruct(obj interface{}) *apperrors.ValidationError
}

type structValidator struct {
	v *validator.Validate
}

// New returns a Validator that names fields after their json tags.
func New() Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(JSONTagName)
	return &structValidator{v: v}
}

// JSONTagName resolves the json name of a struct field.
func JSONTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

func (s *structValidator) Validate(obj interface{}) error {
	return s.ValidateStruct(obj).OrNil()
}

func (s *structValidator) ValidateStruct(obj interface{}) *apperrors.ValidationError {
	err := s.v.Struct(obj)
	if err == nil {
		return nil
	}

	out := &apperrors.ValidationError{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out.Add("", err.Error())
		return out
	}
	for _, fe := range verrs {
		out.Add(fieldPath(fe), Message(fe))
	}
	return out
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// Message renders a human readable message for a failed tag.
func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	default:
		return fmt.Sprintf("failed on %s", fe.Tag())
	}
}
