package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ============================================================
// Request Validation
// ============================================================

type Validator struct {
	v *validator.Validate
}

// FieldError описывает ошибку одного поля для ответа клиенту.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error собирает ошибки валидации, отдаётся как {"error": ..., "fields": [...]}.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// New создает validator, который называет поля по json тегам.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Struct проверяет структуру и возвращает *Error для ошибок полей.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	out := &Error{Fields: make([]FieldError, 0, len(fieldErrors))}
	for _, fe := range fieldErrors {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "required_without":
		return "this field is required"
	case "email":
		return "invalid email format"
	case "min":
		if e.Kind() == reflect.String {
			return "must be at least " + e.Param() + " characters"
		}
		return "must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "must be at most " + e.Param() + " characters"
		}
		return "must be at most " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "url":
		return "invalid URL format"
	case "e164":
		return "invalid phone format"
	default:
		return "invalid value"
	}
}
