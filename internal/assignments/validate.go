package assignments

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	pkgerrors "github.com/angelmondragon/shuttle-dispatch/pkg/errors"
)

var (
	validate = newValidator()

	maxLatitude  = decimal.NewFromInt(90)
	maxLongitude = decimal.NewFromInt(180)

	embeddedPrefixes = strings.NewReplacer("NewAssignment.", "", "AssignmentUpdate.", "")
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// fieldError reports a rule that struct tags cannot express.
type fieldError struct {
	field   string
	message string
}

func (e fieldError) Error() string {
	return fmt.Sprintf("%s %s", e.field, e.message)
}

func validateCreate(input CreateAssignmentInput) error {
	errs := validate.Struct(input)
	if input.StartDate.IsZero() {
		errs = multierr.Append(errs, fieldError{field: "start_date", message: "is required"})
	}
	errs = multierr.Append(errs, validateStops(input.Stops))
	return asValidationError(errs, "invalid assignment")
}

func validateUpdate(input UpdateAssignmentInput) error {
	errs := validate.Struct(input)
	if input.StartDate.IsZero() {
		errs = multierr.Append(errs, fieldError{field: "start_date", message: "is required"})
	}
	if !input.ReplaceStops && len(input.Stops) > 0 {
		errs = multierr.Append(errs, fieldError{field: "stops", message: "requires replace_stops"})
	}
	errs = multierr.Append(errs, validateStops(input.Stops))
	return asValidationError(errs, "invalid assignment update")
}

func validateStops(stops []NewAssignmentStop) error {
	var errs error
	seen := make(map[int]struct{}, len(stops))
	for i, stop := range stops {
		if stop.Latitude.Abs().GreaterThan(maxLatitude) {
			errs = multierr.Append(errs, fieldError{field: fmt.Sprintf("stops[%d].latitude", i), message: "must be between -90 and 90"})
		}
		if stop.Longitude.Abs().GreaterThan(maxLongitude) {
			errs = multierr.Append(errs, fieldError{field: fmt.Sprintf("stops[%d].longitude", i), message: "must be between -180 and 180"})
		}
		if _, dup := seen[stop.Index]; dup {
			errs = multierr.Append(errs, fieldError{field: fmt.Sprintf("stops[%d].index", i), message: "is repeated"})
		}
		seen[stop.Index] = struct{}{}
	}
	return errs
}

func asValidationError(errs error, message string) error {
	if errs == nil {
		return nil
	}
	details := map[string]string{}
	for _, err := range multierr.Errors(errs) {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				details[fieldPath(fe)] = validationMessage(fe)
			}
			continue
		}
		var fe fieldError
		if errors.As(err, &fe) {
			details[fe.field] = fe.message
			continue
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, message)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(details)
}

// fieldPath drops the root struct name and embedded struct names.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.IndexByte(ns, '.'); idx >= 0 {
		ns = ns[idx+1:]
	}
	return embeddedPrefixes.Replace(ns)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return "is invalid"
}
