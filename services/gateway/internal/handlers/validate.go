package handlers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var fieldMessages = map[string]string{
	"required": "Обязательное поле",
	"email":    "Введите корректный email",
	"min":      "Слишком короткое значение",
	"max":      "Слишком длинное значение",
	"eqfield":  "Пароли не совпадают",
	"oneof":    "Недопустимое значение",
	"gte":      "Слишком маленькое значение",
	"lte":      "Слишком большое значение",
}

// validationFields turns validator errors into field -> message.
func validationFields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Tag()]
		if !ok {
			msg = "Некорректное значение"
		}
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = msg
		}
	}
	return out
}

func firstMessage(fields map[string]string, order ...string) string {
	for _, f := range order {
		if msg, ok := fields[f]; ok {
			return msg
		}
	}
	for _, msg := range fields {
		return msg
	}
	return ""
}
