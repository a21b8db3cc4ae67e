package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// В сообщениях используем имена полей из json-тегов.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Struct проверяет структуру по тегам validate.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return &Error{Errors: verrs}
	}
	return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
}

// Error оборачивает ValidationErrors; сопоставляется с domain.ErrInvalidInput.
type Error struct {
	Errors validator.ValidationErrors
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("field '%s' %s", fe.Field(), message(fe)))
	}
	return strings.Join(msgs, "; ")
}

func (e *Error) Is(target error) bool {
	return target == domain.ErrInvalidInput
}

// Fields возвращает сообщения по именам полей.
func (e *Error) Fields() map[string]string {
	fields := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		fields[fe.Field()] = message(fe)
	}
	return fields
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "alpha":
		return "must contain letters only"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "hexcolor":
		return "must be a hex color"
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}
