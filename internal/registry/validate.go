package registry

import (
	"errors"
	"reflect"
	"strings"

	"github.com/ad/go-scholar-wizard/internal/models"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a payload's field constraints. Violations are reported as a
// *models.ValidationError.
func Validate(p models.StepPayload) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &models.ValidationError{Step: p.StepKey()}
	for _, fe := range verrs {
		out.Violations = append(out.Violations, models.FieldViolation{
			Field: fe.Field(),
			Rule:  fe.Tag(),
		})
	}
	return out
}
