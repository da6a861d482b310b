package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FromValidation converts validator failures into an InvalidInput error naming the fields.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewInvalidInputError(err.Error())
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, describeField(fe))
	}
	return NewInvalidInputError(strings.Join(parts, "; "))
}

func describeField(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("поле %s обязательно", field)
	case "max":
		return fmt.Sprintf("поле %s длиннее %s символов", field, fe.Param())
	case "min":
		return fmt.Sprintf("поле %s короче %s символов", field, fe.Param())
	case "e164", "phone":
		return fmt.Sprintf("поле %s должно быть телефоном", field)
	default:
		return fmt.Sprintf("поле %s не прошло проверку %s", field, fe.Tag())
	}
}
