package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/moviestore/internal/model"
	"github.com/iliyamo/moviestore/internal/repository"
)

// RequestValidator plugs go-playground/validator into Echo. Besides the
// built-in tags it knows "day" (YYYY-MM-DD) and "clock" (HH:MM or HH:MM:SS).
type RequestValidator struct {
	v *validator.Validate
}

var _ echo.Validator = (*RequestValidator)(nil)

// NewValidator registers the custom tags and reports fields by their
// json, form or query name.
func NewValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	_ = v.RegisterValidation("day", func(fl validator.FieldLevel) bool {
		_, err := model.ParseDay(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := model.ParseClock(fl.Field().String())
		return err == nil
	})
	return &RequestValidator{v: v}
}

// Validate reports the first failing field as a validation error.
func (rv *RequestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return fmt.Errorf("%w: %v", repository.ErrValidation, err)
	}
	fe := ves[0]
	switch fe.Tag() {
	case "required":
		return invalid("%s is required", fe.Field())
	case "day":
		return invalid("%s must be a date in YYYY-MM-DD format", fe.Field())
	case "clock":
		return invalid("%s must be a time in HH:MM format", fe.Field())
	case "email":
		return invalid("%s must be a valid email address", fe.Field())
	case "oneof":
		return invalid("%s must be one of: %s", fe.Field(), fe.Param())
	case "min", "max", "gte", "lte", "gt", "lt":
		return invalid("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return invalid("%s is invalid", fe.Field())
}
