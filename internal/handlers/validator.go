package handlers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"example.com/expense-tracker/backend/internal/auth"
	"example.com/expense-tracker/backend/internal/models"
)

// Validator проверяет тела запросов. Ошибки называют поля по json-тегам.
type Validator struct {
	validate *validator.Validate
}

// NewValidator регистрирует теги category и frequency поверх go-playground/validator.
func NewValidator() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "category", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseCategory(fl.Field().String())
		return ok
	})
	mustRegister(v, "frequency", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseFrequency(fl.Field().String())
		return ok
	})

	return &Validator{validate: v}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// validationMessage описывает первое нарушенное правило.
func validationMessage(err error) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return "validation failed"
	}

	fe := fieldErrors[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "category":
		return fe.Field() + " must be one of " + categoryNames()
	case "frequency":
		return fe.Field() + " must be one of Daily, Weekly, Monthly, Yearly"
	case "eqfield":
		if fe.Field() == "confirm_password" {
			return auth.ErrPasswordMismatch.Error()
		}
	}
	return "validation failed"
}

func categoryNames() string {
	categories := models.Categories()
	names := make([]string, 0, len(categories))
	for _, category := range categories {
		names = append(names, string(category))
	}
	return strings.Join(names, ", ")
}
